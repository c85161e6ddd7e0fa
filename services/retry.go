package services

import "time"

// retryLinear runs fn up to attempts times, sleeping step, 2*step, ... between
// tries. It returns nil on the first success, or the last error.
func retryLinear(attempts int, step time.Duration, fn func() error) error {
	return retryLinearIf(attempts, step, fn, func(error) bool { return true })
}

// retryLinearIf is retryLinear with a gate: a non-retryable error is returned
// immediately without burning the remaining attempts.
func retryLinearIf(attempts int, step time.Duration, fn func() error, retryable func(error) bool) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !retryable(err) || attempt == attempts {
			return err
		}
		time.Sleep(time.Duration(attempt) * step)
	}
	return err
}
