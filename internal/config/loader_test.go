package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, 5*time.Minute, cfg.Selector.LeaseDuration)
	assert.Equal(t, 200, cfg.Selector.ScanBatchSize)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	require.NoError(t, validate(cfg))
}

func TestLeaseCanBeDisabled(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("selector_lease_duration", "0s")

	cfg := fromViper(v)
	assert.Zero(t, cfg.Selector.LeaseDuration)
	assert.NoError(t, validate(cfg))
}
