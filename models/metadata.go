package models

// CheckoutMetadata is the closed view over the string-keyed metadata bag
// attached to checkout sessions and payment intents. Modeling the bag as a
// struct keeps every branch that reads it covered at compile time.
type CheckoutMetadata struct {
	RestaurantID     string
	OrderID          string
	TableID          string
	IdempotencyKey   string
	Plan             string
	Interval         string
	IsUpgrade        string
	TrialPreserved   string
	OriginalTrialEnd string
}

// ToMap renders the metadata for the gateway, dropping empty fields so the
// bag stays minimal.
func (m CheckoutMetadata) ToMap() map[string]string {
	out := make(map[string]string)
	put := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	put("restaurant_id", m.RestaurantID)
	put("order_id", m.OrderID)
	put("table_id", m.TableID)
	put("idempotency_key", m.IdempotencyKey)
	put("plan", m.Plan)
	put("interval", m.Interval)
	put("is_upgrade", m.IsUpgrade)
	put("trial_preserved", m.TrialPreserved)
	put("original_trial_end", m.OriginalTrialEnd)
	return out
}

// CheckoutMetadataFromMap reads a gateway metadata bag. Unknown keys are
// ignored, missing keys come back empty.
func CheckoutMetadataFromMap(m map[string]string) CheckoutMetadata {
	return CheckoutMetadata{
		RestaurantID:     m["restaurant_id"],
		OrderID:          m["order_id"],
		TableID:          m["table_id"],
		IdempotencyKey:   m["idempotency_key"],
		Plan:             m["plan"],
		Interval:         m["interval"],
		IsUpgrade:        m["is_upgrade"],
		TrialPreserved:   m["trial_preserved"],
		OriginalTrialEnd: m["original_trial_end"],
	}
}

// IsSubscription reports whether the session that carried this metadata was
// a billing checkout rather than a table order.
func (m CheckoutMetadata) IsSubscription() bool {
	return m.Plan != ""
}
