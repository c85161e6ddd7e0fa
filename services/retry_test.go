package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryLinear_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := retryLinear(3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryLinear_ExhaustsAttempts(t *testing.T) {
	calls := 0
	sentinel := errors.New("still broken")
	err := retryLinear(3, time.Millisecond, func() error {
		calls++
		return sentinel
	})

	assert.Equal(t, sentinel, err)
	assert.Equal(t, 3, calls)
}

func TestRetryLinearIf_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	fatal := errors.New("fatal")
	err := retryLinearIf(3, time.Millisecond, func() error {
		calls++
		return fatal
	}, func(err error) bool {
		return !errors.Is(err, fatal)
	})

	assert.Equal(t, fatal, err)
	assert.Equal(t, 1, calls)
}

func TestRetryLinearIf_NoRetryNeeded(t *testing.T) {
	calls := 0
	err := retryLinearIf(3, time.Millisecond, func() error {
		calls++
		return nil
	}, func(error) bool { return true })

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}
