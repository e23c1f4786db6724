package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		HttpPort:      8080,
		StorageType:   STORAGE_TYPE_INMEM,
		TemplateStyle: "braces",
	}
}

func TestValidate(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T, c Config){
		"valid memory config": func(t *testing.T, c Config) {
			require.NoError(t, c.Validate())
		},
		"invalid port": func(t *testing.T, c Config) {
			c.HttpPort = 0
			require.True(t, errors.Is(c.Validate(), ErrInvalidPort))
		},
		"unknown storage": func(t *testing.T, c Config) {
			c.StorageType = "dynamo"
			require.True(t, errors.Is(c.Validate(), ErrInvalidStorage))
		},
		"redis needs address": func(t *testing.T, c Config) {
			c.StorageType = STORAGE_TYPE_REDIS
			c.RedisConfig.Addrs = []string{""}
			require.True(t, errors.Is(c.Validate(), ErrMissingRedisAddr))
			c.RedisConfig.Addrs = []string{"localhost:6379"}
			require.NoError(t, c.Validate())
		},
		"template style": func(t *testing.T, c Config) {
			c.TemplateStyle = "dollar"
			require.NoError(t, c.Validate())
			c.TemplateStyle = "percent"
			require.True(t, errors.Is(c.Validate(), ErrInvalidTemplateStyle))
		},
		"refresh needs source": func(t *testing.T, c Config) {
			c.StateRefreshInterval = time.Minute
			require.True(t, errors.Is(c.Validate(), ErrInvalidRefresh))
			c.StateSourceURL = "/state"
			require.NoError(t, c.Validate())
		},
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, validConfig())
		})
	}
}
