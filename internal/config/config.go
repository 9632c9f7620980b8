package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/contact-intake/")
	v.AddConfigPath("$HOME/.contact-intake")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("CONTACT_INTAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.listen_address", "0.0.0.0:8080")
	v.SetDefault("server.trusted_proxy", true)
	v.SetDefault("server.forwarded_header", "X-Forwarded-For")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{"https://growthspect.com", "https://www.growthspect.com"})

	// Rate limit defaults
	v.SetDefault("ratelimit.store", "memory")
	v.SetDefault("ratelimit.window", "15m")
	v.SetDefault("ratelimit.max_requests", 5)
	v.SetDefault("ratelimit.cleanup_frequency", "5m")
	v.SetDefault("ratelimit.sqlite_path", "/data/contact_ratelimit.db")
	v.SetDefault("ratelimit.mysql_dsn", "user:password@tcp(localhost:3306)/contact_intake")
	v.SetDefault("ratelimit.redis_addr", "localhost:6379")
	v.SetDefault("ratelimit.redis_password", "")
	v.SetDefault("ratelimit.redis_db", 0)
	v.SetDefault("ratelimit.redis_prefix", "contact:ratelimit")

	// SMTP defaults
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.security", "starttls")
	v.SetDefault("smtp.from_address", "")
	v.SetDefault("smtp.from_name", "GrowthSpect")
	v.SetDefault("smtp.notify_address", "")
	v.SetDefault("smtp.timeout", "10s")
	v.SetDefault("smtp.max_retries", 1)
	v.SetDefault("smtp.retry_delay", "2s")
	v.SetDefault("smtp.sends_per_minute", 30)

	// Spam screening defaults
	v.SetDefault("spam.enabled", false)
	v.SetDefault("spam.threshold", 0.85)
	v.SetDefault("spam.whitelisted_domains", []string{})
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 500)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.max_message_size", 4096)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
