// Package config loads clustercore's engine configuration via viper,
// bindable from a config file or environment variables.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// ColumnConfig names one configured clustering column and its target
// cluster count, mirroring orchestrator.ColumnConfig so the orchestrator
// package itself carries no viper dependency.
type ColumnConfig struct {
	Column      string `mapstructure:"column"`
	NumClusters int    `mapstructure:"num_clusters"`
}

// Config is the full, unified configuration for one orchestrator run.
type Config struct {
	Table   string         `mapstructure:"table"`
	Columns []ColumnConfig `mapstructure:"columns"`

	MergeSmallChunks      bool `mapstructure:"merge_small_chunks"`
	SmallChunkThreshold   int  `mapstructure:"small_chunk_threshold"`
	MaxParallelPartitions int  `mapstructure:"max_parallel_partitions"`
	MaxPartitionRetries   int  `mapstructure:"max_partition_retries"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// defaults holds the values applied before a config file or environment
// overrides them.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"merge_small_chunks":      true,
		"small_chunk_threshold":   64,
		"max_parallel_partitions": 4,
		"max_partition_retries":   3,
		"log_level":               "info",
		"log_format":              "text",
	}
}

// Load reads configuration from path (if non-empty), overlaying
// CLUSTERCORE_-prefixed environment variables, and unmarshals the result
// into a Config. An empty path skips file loading entirely and returns
// the defaults plus any environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("CLUSTERCORE")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}
