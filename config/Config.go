package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/mohitkumar/flowcall/analytics"
	"github.com/mohitkumar/flowcall/vars"
)

type StorageType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_INMEM StorageType = "memory"

var ErrInvalidPort = errors.New("invalid http port")
var ErrInvalidStorage = errors.New("invalid storage type")
var ErrMissingRedisAddr = errors.New("redis storage requires at least one address")
var ErrInvalidTemplateStyle = errors.New("invalid template style")
var ErrInvalidRefresh = errors.New("state refresh requires a state source url")

type Config struct {
	HttpPort             int
	StorageType          StorageType
	RedisConfig          RedisStorageConfig
	BaseURL              string
	RequestTimeout       time.Duration
	DefaultHeaders       map[string]string
	HistoryMax           int
	TemplateStyle        string
	PathIndicator        string
	StrictPaths          bool
	StateSourceURL       string
	StateRefreshInterval time.Duration
	CatalogFile          string
	WorkerCapacity       int
	LogLevel             string
	Development          bool
	AnalyticsConfig      analytics.DataCollectorConfig
}

type RedisStorageConfig struct {
	Addrs     []string
	Namespace string
	Password  string
	PoolSize  int
}

func (c Config) Validate() error {
	if c.HttpPort <= 0 || c.HttpPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.HttpPort)
	}
	switch c.StorageType {
	case STORAGE_TYPE_INMEM:
	case STORAGE_TYPE_REDIS:
		if len(c.RedisConfig.Addrs) == 0 || c.RedisConfig.Addrs[0] == "" {
			return ErrMissingRedisAddr
		}
	default:
		return fmt.Errorf("%w: %s", ErrInvalidStorage, c.StorageType)
	}
	if _, err := vars.ParseMarkerStyle(c.TemplateStyle); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTemplateStyle, c.TemplateStyle)
	}
	if c.StateRefreshInterval > 0 && c.StateSourceURL == "" {
		return ErrInvalidRefresh
	}
	return nil
}
