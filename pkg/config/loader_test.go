package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/revenuekit/pkg/config"
)

type testConfig struct {
	Name    string `env:"TEST_CFG_NAME" envDefault:"revenuekit"`
	Workers int    `env:"TEST_CFG_WORKERS" envDefault:"4"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		var cfg testConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "revenuekit", cfg.Name)
		assert.Equal(t, 4, cfg.Workers)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("TEST_CFG_WORKERS", "16")
		var cfg testConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, 16, cfg.Workers)
	})

	t.Run("nil destination rejected", func(t *testing.T) {
		err := config.Load[testConfig](nil)
		assert.ErrorIs(t, err, config.ErrNilPointer)
	})

	t.Run("invalid value reported", func(t *testing.T) {
		t.Setenv("TEST_CFG_WORKERS", "not-a-number")
		var cfg testConfig
		err := config.Load(&cfg)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})
}
