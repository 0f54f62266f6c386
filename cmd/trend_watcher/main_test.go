package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trend_trader/internal/config"
)

func TestBuildExchange(t *testing.T) {
	for _, name := range []string{"binance", "alpaca", "paper"} {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Exchange = name
			ex, err := buildExchange(cfg)
			require.NoError(t, err)
			assert.Equal(t, name, ex.Name())
		})
	}

	cfg := config.Default()
	cfg.Exchange = "kraken"
	_, err := buildExchange(cfg)
	assert.Error(t, err)
}
