package config

import (
	"fmt"
	"time"
)

// Config holds the application's configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Auth          AuthConfig          `mapstructure:"auth"`
	TokenStore    TokenStoreConfig    `mapstructure:"token_store"`
	Graph         GraphConfig         `mapstructure:"graph"`
	Subscriptions SubscriptionsConfig `mapstructure:"subscriptions"`
	Log           LogConfig           `mapstructure:"log"`
	Monitoring    MonitoringConfig    `mapstructure:"monitoring"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// AuthConfig carries the application credential and AAD endpoints used for
// client-credentials and on-behalf-of token requests.
type AuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	TenantURL    string `mapstructure:"tenant_url"`
	Resource     string `mapstructure:"resource"`
}

// TokenEndpoint returns the AAD v1 token endpoint for the configured tenant.
func (c *AuthConfig) TokenEndpoint() string {
	return fmt.Sprintf("%s/oauth2/token", c.TenantURL)
}

// TokenStoreConfig configures the redis-backed per-user token store and the
// auth host used to refresh AAD tokens.
type TokenStoreConfig struct {
	RedisAddress   string `mapstructure:"redis_address"`
	RedisPassword  string `mapstructure:"redis_password"`
	RedisDB        int    `mapstructure:"redis_db"`
	AuthHostname   string `mapstructure:"auth_hostname"`
	SigningKey     string `mapstructure:"signing_key"`
}

// RefreshEndpoint returns the auth-host endpoint that refreshes stored tokens.
func (c *TokenStoreConfig) RefreshEndpoint() string {
	return fmt.Sprintf("https://%s/.auth/refresh", c.AuthHostname)
}

type GraphConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// SubscriptionsConfig configures the subscription store and notification URL.
type SubscriptionsConfig struct {
	StorePath       string        `mapstructure:"store_path"`
	NotificationURL string        `mapstructure:"notification_url"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MonitoringConfig struct {
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	if c.Auth.ClientID == "" || c.Auth.ClientSecret == "" {
		return fmt.Errorf("auth.client_id and auth.client_secret are required")
	}
	if c.Auth.TenantURL == "" {
		return fmt.Errorf("auth.tenant_url is required")
	}
	if c.Subscriptions.StorePath == "" {
		return fmt.Errorf("subscriptions.store_path is required")
	}
	if c.Subscriptions.NotificationURL == "" {
		return fmt.Errorf("subscriptions.notification_url is required")
	}
	return nil
}
