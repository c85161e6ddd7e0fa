package config_test

import (
	"testing"

	"github.com/BenyD/DineEasy-sub000/config"

	"github.com/stretchr/testify/assert"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("STRIPE_API_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_123")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "8087", cfg.Port)
	assert.Equal(t, 0.02, cfg.PlatformFeeRate)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadConfig_MissingStripeKeys(t *testing.T) {
	t.Setenv("STRIPE_API_KEY", "")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")

	_, err := config.LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_FeeRateOverride(t *testing.T) {
	setRequired(t)
	t.Setenv("PLATFORM_FEE_RATE", "0.05")

	cfg, err := config.LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, 0.05, cfg.PlatformFeeRate)
}

func TestLoadConfig_InvalidFeeRate(t *testing.T) {
	setRequired(t)
	t.Setenv("PLATFORM_FEE_RATE", "1.5")

	_, err := config.LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_KafkaBrokerList(t *testing.T) {
	setRequired(t)
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092,")

	cfg, err := config.LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
}
