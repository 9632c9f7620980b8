package config

import "time"

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	ListenAddress   string
	TrustedProxy    bool
	ForwardedHeader string
	MaxBodyBytes    int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// CORSConfig represents the cross-origin policy configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// RateLimitConfig represents the rate limiter configuration
type RateLimitConfig struct {
	Store            string
	Window           time.Duration
	MaxRequests      int
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisPrefix      string
}

// SMTPConfig represents the outbound mail relay configuration
type SMTPConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	Security       string
	FromAddress    string
	FromName       string
	NotifyAddress  string
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	SendsPerMinute int
}

// SpamConfig represents the optional spam screening configuration
type SpamConfig struct {
	Enabled            bool
	Threshold          float64
	WhitelistedDomains []string
}

// OpenAIConfig represents the configuration for the OpenAI spam screen
type OpenAIConfig struct {
	APIKey         string
	ModelName      string
	MaxTokens      int
	Temperature    float32
	MaxMessageSize int
}

// GetServer returns the HTTP server configuration
func (c *Config) GetServer() (ServerConfig, error) {
	readTimeout, err := c.GetDuration("server.read_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	writeTimeout, err := c.GetDuration("server.write_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	shutdownTimeout, err := c.GetDuration("server.shutdown_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	return ServerConfig{
		ListenAddress:   c.GetString("server.listen_address"),
		TrustedProxy:    c.GetBool("server.trusted_proxy"),
		ForwardedHeader: c.GetString("server.forwarded_header"),
		MaxBodyBytes:    c.GetInt("server.max_body_bytes"),
		ReadTimeout:     readTimeout,
		WriteTimeout:    writeTimeout,
		ShutdownTimeout: shutdownTimeout,
	}, nil
}

// GetCORS returns the cross-origin policy configuration
func (c *Config) GetCORS() CORSConfig {
	return CORSConfig{
		AllowedOrigins: c.GetStringSlice("cors.allowed_origins"),
	}
}

// GetRateLimit returns the rate limiter configuration
func (c *Config) GetRateLimit() (RateLimitConfig, error) {
	window, err := c.GetDuration("ratelimit.window")
	if err != nil {
		return RateLimitConfig{}, err
	}
	cleanupFreq, err := c.GetDuration("ratelimit.cleanup_frequency")
	if err != nil {
		return RateLimitConfig{}, err
	}
	return RateLimitConfig{
		Store:            c.GetString("ratelimit.store"),
		Window:           window,
		MaxRequests:      c.GetInt("ratelimit.max_requests"),
		CleanupFrequency: cleanupFreq,
		SQLitePath:       c.GetString("ratelimit.sqlite_path"),
		MySQLDSN:         c.GetString("ratelimit.mysql_dsn"),
		RedisAddr:        c.GetString("ratelimit.redis_addr"),
		RedisPassword:    c.GetString("ratelimit.redis_password"),
		RedisDB:          c.GetInt("ratelimit.redis_db"),
		RedisPrefix:      c.GetString("ratelimit.redis_prefix"),
	}, nil
}

// GetSMTP returns the outbound mail relay configuration
func (c *Config) GetSMTP() (SMTPConfig, error) {
	timeout, err := c.GetDuration("smtp.timeout")
	if err != nil {
		return SMTPConfig{}, err
	}
	retryDelay, err := c.GetDuration("smtp.retry_delay")
	if err != nil {
		return SMTPConfig{}, err
	}
	return SMTPConfig{
		Host:           c.GetString("smtp.host"),
		Port:           c.GetInt("smtp.port"),
		Username:       c.GetString("smtp.username"),
		Password:       c.GetString("smtp.password"),
		Security:       c.GetString("smtp.security"),
		FromAddress:    c.GetString("smtp.from_address"),
		FromName:       c.GetString("smtp.from_name"),
		NotifyAddress:  c.GetString("smtp.notify_address"),
		Timeout:        timeout,
		MaxRetries:     c.GetInt("smtp.max_retries"),
		RetryDelay:     retryDelay,
		SendsPerMinute: c.GetInt("smtp.sends_per_minute"),
	}, nil
}

// GetSpam returns the spam screening configuration
func (c *Config) GetSpam() SpamConfig {
	return SpamConfig{
		Enabled:            c.GetBool("spam.enabled"),
		Threshold:          c.GetFloat64("spam.threshold"),
		WhitelistedDomains: c.GetStringSlice("spam.whitelisted_domains"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:         c.GetString("openai.api_key"),
		ModelName:      c.GetString("openai.model_name"),
		MaxTokens:      c.GetInt("openai.max_tokens"),
		Temperature:    float32(c.GetFloat64("openai.temperature")),
		MaxMessageSize: c.GetInt("openai.max_message_size"),
	}
}
