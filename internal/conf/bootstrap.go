// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment variables,
// with CLI flag overrides.
package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/protobuf/types/known/durationpb"
)

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies defaults,
// and allows overrides from environment variables prefixed with CIRCUITLANE_.
//
// Configuration priority: CLI flags > Environment variables > Config file > Defaults
//
// Required environment variables:
//   - MYSQL_DSN or CIRCUITLANE_DATA_DATABASE_SOURCE: MySQL connection string
//   - ADMIN_KEY or CIRCUITLANE_AUTH_ADMIN_KEY: admin API credential
//
// Parameters:
//   - configPath: Path to the configuration file or directory
//
// Returns:
//   - *Bootstrap: Loaded configuration
//   - error: Configuration loading or validation error
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Enable environment variable support with CIRCUITLANE_ prefix
	v.SetEnvPrefix("CIRCUITLANE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow direct environment variable names (without CIRCUITLANE_ prefix) for compatibility
	// Bind specific environment variables for required fields
	_ = v.BindEnv("data.database.source", "MYSQL_DSN", "CIRCUITLANE_DATA_DATABASE_SOURCE")
	_ = v.BindEnv("data.redis.addr", "REDIS_ADDR", "CIRCUITLANE_DATA_REDIS_ADDR")
	_ = v.BindEnv("auth.admin_key", "ADMIN_KEY", "CIRCUITLANE_AUTH_ADMIN_KEY")

	// Load configuration file
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// If config file is specified but not found, return error
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	// Parse configuration into Bootstrap structure
	bc := &Bootstrap{
		Server: &Server{
			Http: &Server_HTTP{
				Network: v.GetString("server.http.network"),
				Addr:    v.GetString("server.http.addr"),
				Timeout: durationpb.New(v.GetDuration("server.http.timeout")),
			},
		},
		Data: &Data{
			Database: &Data_Database{
				Driver: v.GetString("data.database.driver"),
				Source: v.GetString("data.database.source"),
			},
			Redis: &Data_Redis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				ReadTimeout:  durationpb.New(v.GetDuration("data.redis.read_timeout")),
				WriteTimeout: durationpb.New(v.GetDuration("data.redis.write_timeout")),
			},
		},
		Breaker: &Breaker{
			Defaults:     breakerConfigAt(v, "breaker.defaults"),
			Dependencies: dependencyConfigs(v),
			Health: &Breaker_Health{
				Enabled:      v.GetBool("breaker.health.enabled"),
				Interval:     durationpb.New(v.GetDuration("breaker.health.interval")),
				ProbeTimeout: durationpb.New(v.GetDuration("breaker.health.probe_timeout")),
			},
			Events: &Breaker_Events{
				Channel:  v.GetString("breaker.events.channel"),
				DedupTTL: durationpb.New(v.GetDuration("breaker.events.dedup_ttl")),
			},
		},
		Auth: &Auth{
			AdminKey: v.GetString("auth.admin_key"),
		},
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
	}

	// Validate required fields
	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

// breakerConfigAt reads one breaker configuration block rooted at the given
// key. Unset fields stay zero; the registry resolves the effective values
// from the preset and the library defaults.
func breakerConfigAt(v *viper.Viper, root string) *Breaker_Config {
	return &Breaker_Config{
		Preset:                v.GetString(root + ".preset"),
		FailureThreshold:      v.GetInt(root + ".failure_threshold"),
		SuccessThreshold:      v.GetInt(root + ".success_threshold"),
		Timeout:               durationpb.New(v.GetDuration(root + ".timeout")),
		HalfOpenMaxCalls:      v.GetInt(root + ".half_open_max_calls"),
		FailureRateThreshold:  v.GetFloat64(root + ".failure_rate_threshold"),
		WindowSize:            v.GetInt(root + ".window_size"),
		SlowCallThreshold:     durationpb.New(v.GetDuration(root + ".slow_call_threshold")),
		SlowCallRateThreshold: v.GetFloat64(root + ".slow_call_rate_threshold"),
	}
}

// dependencyConfigs reads the per-dependency override map. Viper lowercases
// map keys, which matches the registry's dependency naming.
func dependencyConfigs(v *viper.Viper) map[string]*Breaker_Config {
	deps := make(map[string]*Breaker_Config)
	for name := range v.GetStringMap("breaker.dependencies") {
		deps[name] = breakerConfigAt(v, "breaker.dependencies."+name)
	}
	return deps
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8080")
	v.SetDefault("server.http.timeout", 30*time.Second)

	// Data defaults
	v.SetDefault("data.database.driver", "mysql")
	// Note: data.database.source (MYSQL_DSN) is required from environment

	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.addr", "127.0.0.1:6379")
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)

	// Breaker defaults
	// Threshold fields default to zero here on purpose: the registry fills
	// them from the preset so the effective values live in one place.
	v.SetDefault("breaker.defaults.preset", "default")
	v.SetDefault("breaker.health.enabled", true)
	v.SetDefault("breaker.health.interval", 30*time.Second)
	v.SetDefault("breaker.health.probe_timeout", 5*time.Second)
	v.SetDefault("breaker.events.channel", "circuitlane:circuit-events")
	v.SetDefault("breaker.events.dedup_ttl", 5*time.Minute)

	// Auth defaults
	// Note: auth.admin_key (ADMIN_KEY) is required from environment

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that all required configuration fields are present and valid.
// It returns an error listing all missing required fields.
func Validate(bc *Bootstrap) error {
	var missingFields []string

	// Check required database configuration
	if bc.Data == nil || bc.Data.Database == nil || bc.Data.Database.Source == "" {
		missingFields = append(missingFields, "data.database.source (MYSQL_DSN)")
	}

	// Check required auth configuration
	if bc.Auth == nil || bc.Auth.AdminKey == "" {
		missingFields = append(missingFields, "auth.admin_key (ADMIN_KEY)")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required configuration fields: %s", strings.Join(missingFields, ", "))
	}

	return nil
}
