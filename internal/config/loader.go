package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/graphbind/graphbind/pkg/constants"
)

// LoadConfig loads the configuration from file and environment variables.
// Environment variables use the GRAPHBIND_ prefix with underscores for
// nesting, e.g. GRAPHBIND_AUTH_CLIENT_ID.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("auth.client_id", "")
	v.SetDefault("auth.client_secret", "")
	v.SetDefault("auth.tenant_url", "")
	v.SetDefault("auth.resource", constants.GraphResource)
	v.SetDefault("token_store.redis_address", "localhost:6379")
	v.SetDefault("token_store.redis_password", "")
	v.SetDefault("token_store.redis_db", 0)
	v.SetDefault("token_store.auth_hostname", "")
	v.SetDefault("token_store.signing_key", "")
	v.SetDefault("graph.base_url", constants.GraphBaseURL)
	v.SetDefault("subscriptions.store_path", "")
	v.SetDefault("subscriptions.notification_url", "")
	v.SetDefault("subscriptions.refresh_interval", "0s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("monitoring.pprof_enabled", false)

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/graphbind/")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables
	v.SetEnvPrefix("GRAPHBIND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
