package config

import (
	"fmt"
	"time"

	"github.com/mikesparr/redis-workflow/analytics"
	api "github.com/mikesparr/redis-workflow/api/v1"
	"github.com/mikesparr/redis-workflow/expression"
	"github.com/mikesparr/redis-workflow/persistence/redis"
)

type StorageType string

type TransportType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_SQLITE StorageType = "sqlite"
const STORAGE_TYPE_INMEM StorageType = "memory"

const TRANSPORT_TYPE_REDIS TransportType = "redis"
const TRANSPORT_TYPE_INMEM TransportType = "memory"

type Config struct {
	RedisConfig     redis.Config
	SqliteConfig    SqliteStorageConfig
	StorageType     StorageType
	TransportType   TransportType
	EvaluatorType   expression.EvaluatorType
	Channels        []string
	HttpPort        int
	SchedulerConfig SchedulerConfig
	AnalyticsConfig analytics.DataCollectorConfig
	LogLevel        string
	Development     bool
}

type SqliteStorageConfig struct {
	Path string
}

type SchedulerConfig struct {
	Enabled      bool
	PollInterval time.Duration
}

func Default() Config {
	return Config{
		RedisConfig: redis.Config{
			Addrs:    []string{"localhost:6379"},
			PoolSize: 10,
		},
		SqliteConfig:  SqliteStorageConfig{Path: "redis-workflow.db"},
		StorageType:   STORAGE_TYPE_REDIS,
		TransportType: TRANSPORT_TYPE_REDIS,
		EvaluatorType: expression.EVALUATOR_JAVASCRIPT,
		HttpPort:      8080,
		SchedulerConfig: SchedulerConfig{
			Enabled:      true,
			PollInterval: time.Second,
		},
		AnalyticsConfig: analytics.DataCollectorConfig{
			CollectorType: analytics.NOOP_DATA_COLLECTOR,
		},
		LogLevel: "info",
	}
}

// Validate reports the first setting the agent could not act on.
func (c Config) Validate() error {
	switch c.StorageType {
	case STORAGE_TYPE_REDIS, STORAGE_TYPE_INMEM:
	case STORAGE_TYPE_SQLITE:
		if len(c.SqliteConfig.Path) == 0 {
			return api.NewError(api.CONFIGURATION_ERROR, "sqlite storage needs a path")
		}
	default:
		return api.NewError(api.CONFIGURATION_ERROR, "unknown storage %q", c.StorageType)
	}
	switch c.TransportType {
	case TRANSPORT_TYPE_REDIS, TRANSPORT_TYPE_INMEM:
	default:
		return api.NewError(api.CONFIGURATION_ERROR, "unknown transport %q", c.TransportType)
	}
	if c.UsesRedis() && len(c.RedisConfig.Addrs) == 0 {
		return api.NewError(api.CONFIGURATION_ERROR, "redis needs at least one address")
	}
	if _, err := expression.NewEvaluator(string(c.EvaluatorType)); err != nil {
		return err
	}
	if c.HttpPort < 0 || c.HttpPort > 65535 {
		return api.NewError(api.CONFIGURATION_ERROR, "invalid http port %d", c.HttpPort)
	}
	if c.SchedulerConfig.Enabled && c.SchedulerConfig.PollInterval <= 0 {
		return api.NewError(api.CONFIGURATION_ERROR, "scheduler poll interval must be positive")
	}
	for _, channel := range c.Channels {
		if err := api.ValidateChannel(channel); err != nil {
			return err
		}
	}
	return nil
}

// UsesRedis tells whether a redis client has to be created.
func (c Config) UsesRedis() bool {
	return c.StorageType == STORAGE_TYPE_REDIS || c.TransportType == TRANSPORT_TYPE_REDIS
}

func (c Config) String() string {
	return fmt.Sprintf("storage=%s transport=%s evaluator=%s channels=%v http=%d",
		c.StorageType, c.TransportType, c.EvaluatorType, c.Channels, c.HttpPort)
}
