package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Service   ServiceConfig
	License   LicenseConfig
	Tenant    TenantConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Queue     QueueConfig
	Storage   StorageConfig
	Invoice   InvoiceConfig
	Plugins   PluginsConfig
	Swagger   SwaggerConfig
	Metrics   MetricsConfig
	Telemetry TelemetryConfig
	Profiling ProfilingConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// IsProduction reports whether the app runs in production
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL             string // takes precedence over the discrete fields
	Driver          string // postgres or sqlite
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	LogLevel        string
	AutoMigrate     bool
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	URL      string
	Host     string
	Port     int
	Password string
	DB       int
	Enabled  bool
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string
	RefreshSecret          string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	Issuer                 string
	MaxRefreshCount        int
}

// ServiceConfig holds service-to-service auth settings
type ServiceConfig struct {
	Secret   string
	Allowed  []string // service names permitted to call internal routes
	TokenTTL time.Duration
}

// LicenseConfig holds commercial plugin licensing settings
type LicenseConfig struct {
	Mode   string // stub or jwt
	Secret string
}

// TenantConfig holds tenant resolution settings
type TenantConfig struct {
	BaseDomain     string
	HeaderEnabled  bool
	HostEnabled    bool
	PublicPaths    []string
	PublicPrefixes []string
	CacheTTL       time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	Output     string // stdout, stderr, or file path
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int
	AuthRateLimitRPS float64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// QueueConfig holds background job queue settings
type QueueConfig struct {
	Enabled      bool
	Backend      string // redis or memory
	Name         string
	Workers      int
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	PollInterval time.Duration
	JobTimeout   time.Duration
}

// StorageConfig holds S3-compatible object storage settings
type StorageConfig struct {
	Enabled      bool
	Bucket       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	PublicURL    string
	UsePathStyle bool
	MaxImageSize int64
}

// InvoiceConfig holds invoice rendering settings
type InvoiceConfig struct {
	ChromeURL string // remote DevTools websocket; empty runs a local browser
	Timeout   time.Duration
}

// PluginsConfig holds platform-wide third-party API keys used as defaults
// when a store has not configured its own
type PluginsConfig struct {
	StripeAPIKey      string
	StripeCheckoutURL string
	GoogleClientID    string
}

// SwaggerConfig holds Swagger documentation endpoint configuration
type SwaggerConfig struct {
	Enabled     bool
	RequireAuth bool
	AllowedIPs  []string
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	LogsEnabled       bool
	DBTraceEnabled    bool
}

// ProfilingConfig holds continuous profiling configuration
type ProfilingConfig struct {
	Enabled       bool
	ServerAddress string
	AuthToken     string
}

// envAliases binds unprefixed variables commonly set by hosting platforms
var envAliases = map[string][]string{
	"app.port":               {"PORT"},
	"app.env":                {"APP_ENV"},
	"database.url":           {"DATABASE_URL"},
	"redis.url":              {"REDIS_URL"},
	"jwt.secret":             {"JWT_SECRET"},
	"service.secret":         {"SERVICE_SECRET"},
	"license.secret":         {"LICENSE_SECRET"},
	"plugins.stripe_api_key": {"STRIPE_API_KEY"},
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with MALL_ prefix (e.g., MALL_DATABASE_PASSWORD)
// 2. Unprefixed aliases (DATABASE_URL, REDIS_URL, JWT_SECRET, ...)
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/mall")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("MALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, aliases := range envAliases {
		names := append([]string{"MALL_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	setViperDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("database.url"),
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			LogLevel:        v.GetString("database.log_level"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			URL:      v.GetString("redis.url"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Enabled:  v.GetBool("redis.enabled"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			RefreshSecret:          v.GetString("jwt.refresh_secret"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			Issuer:                 v.GetString("jwt.issuer"),
			MaxRefreshCount:        v.GetInt("jwt.max_refresh_count"),
		},
		Service: ServiceConfig{
			Secret:   v.GetString("service.secret"),
			Allowed:  v.GetStringSlice("service.allowed"),
			TokenTTL: v.GetDuration("service.token_ttl"),
		},
		License: LicenseConfig{
			Mode:   v.GetString("license.mode"),
			Secret: v.GetString("license.secret"),
		},
		Tenant: TenantConfig{
			BaseDomain:     v.GetString("tenant.base_domain"),
			HeaderEnabled:  v.GetBool("tenant.header_enabled"),
			HostEnabled:    v.GetBool("tenant.host_enabled"),
			PublicPaths:    v.GetStringSlice("tenant.public_paths"),
			PublicPrefixes: v.GetStringSlice("tenant.public_prefixes"),
			CacheTTL:       v.GetDuration("tenant.cache_ttl"),
		},
		Log: LogConfig{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Output:     v.GetString("log.output"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			RateLimitEnabled: v.GetBool("http.rate_limit_enabled"),
			RateLimitRPS:     v.GetFloat64("http.rate_limit_rps"),
			RateLimitBurst:   v.GetInt("http.rate_limit_burst"),
			AuthRateLimitRPS: v.GetFloat64("http.auth_rate_limit_rps"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Queue: QueueConfig{
			Enabled:      v.GetBool("queue.enabled"),
			Backend:      v.GetString("queue.backend"),
			Name:         v.GetString("queue.name"),
			Workers:      v.GetInt("queue.workers"),
			MaxAttempts:  v.GetInt("queue.max_attempts"),
			BaseDelay:    v.GetDuration("queue.base_delay"),
			MaxDelay:     v.GetDuration("queue.max_delay"),
			PollInterval: v.GetDuration("queue.poll_interval"),
			JobTimeout:   v.GetDuration("queue.job_timeout"),
		},
		Storage: StorageConfig{
			Enabled:      v.GetBool("storage.enabled"),
			Bucket:       v.GetString("storage.bucket"),
			Region:       v.GetString("storage.region"),
			Endpoint:     v.GetString("storage.endpoint"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			PublicURL:    v.GetString("storage.public_url"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
			MaxImageSize: v.GetInt64("storage.max_image_size"),
		},
		Invoice: InvoiceConfig{
			ChromeURL: v.GetString("invoice.chrome_url"),
			Timeout:   v.GetDuration("invoice.timeout"),
		},
		Plugins: PluginsConfig{
			StripeAPIKey:      v.GetString("plugins.stripe_api_key"),
			StripeCheckoutURL: v.GetString("plugins.stripe_checkout_url"),
			GoogleClientID:    v.GetString("plugins.google_client_id"),
		},
		Swagger: SwaggerConfig{
			Enabled:     v.GetBool("swagger.enabled"),
			RequireAuth: v.GetBool("swagger.require_auth"),
			AllowedIPs:  v.GetStringSlice("swagger.allowed_ips"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Path:    v.GetString("metrics.path"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
		},
		Profiling: ProfilingConfig{
			Enabled:       v.GetBool("profiling.enabled"),
			ServerAddress: v.GetString("profiling.server_address"),
			AuthToken:     v.GetString("profiling.auth_token"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setViperDefaults registers defaults for booleans, which cannot be told
// apart from "unset" after loading.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("redis.enabled", true)
	v.SetDefault("tenant.header_enabled", true)
	v.SetDefault("tenant.host_enabled", true)
	v.SetDefault("http.rate_limit_enabled", true)
	v.SetDefault("queue.enabled", true)
	v.SetDefault("swagger.enabled", true)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("telemetry.insecure", true)
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "jiffoo-mall"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "jiffoo_mall"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}

	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.JWT.RefreshTokenExpiration == 0 {
		cfg.JWT.RefreshTokenExpiration = 168 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "jiffoo-mall"
	}
	if cfg.JWT.MaxRefreshCount == 0 {
		cfg.JWT.MaxRefreshCount = 10
	}

	if cfg.Service.TokenTTL == 0 {
		cfg.Service.TokenTTL = time.Hour
	}
	if cfg.License.Mode == "" {
		cfg.License.Mode = "stub"
	}

	if cfg.Tenant.BaseDomain == "" {
		cfg.Tenant.BaseDomain = "localhost"
	}
	if len(cfg.Tenant.PublicPaths) == 0 {
		cfg.Tenant.PublicPaths = []string{"/health", "/metrics", "/api/v1/tenants", "/api/v1/plugins/catalog"}
	}
	if len(cfg.Tenant.PublicPrefixes) == 0 {
		cfg.Tenant.PublicPrefixes = []string{"/swagger/", "/api/v1/platform/", "/api/v1/internal/"}
	}
	if cfg.Tenant.CacheTTL == 0 {
		cfg.Tenant.CacheTTL = 5 * time.Minute
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 100
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 7
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 28
	}

	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20
	}
	if cfg.HTTP.RateLimitRPS == 0 {
		cfg.HTTP.RateLimitRPS = 20
	}
	if cfg.HTTP.RateLimitBurst == 0 {
		cfg.HTTP.RateLimitBurst = 40
	}
	if cfg.HTTP.AuthRateLimitRPS == 0 {
		cfg.HTTP.AuthRateLimitRPS = 0.2
	}
	// CORS origins have no wildcard fallback; they must be configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "Accept-Language", "X-Request-ID", "X-Tenant-ID", "X-Service-Token"}
	}

	if cfg.Queue.Backend == "" {
		cfg.Queue.Backend = "redis"
	}
	if cfg.Queue.Name == "" {
		cfg.Queue.Name = "default"
	}
	if cfg.Queue.Workers == 0 {
		cfg.Queue.Workers = 4
	}
	if cfg.Queue.MaxAttempts == 0 {
		cfg.Queue.MaxAttempts = 5
	}
	if cfg.Queue.BaseDelay == 0 {
		cfg.Queue.BaseDelay = time.Second
	}
	if cfg.Queue.MaxDelay == 0 {
		cfg.Queue.MaxDelay = 5 * time.Minute
	}
	if cfg.Queue.PollInterval == 0 {
		cfg.Queue.PollInterval = time.Second
	}
	if cfg.Queue.JobTimeout == 0 {
		cfg.Queue.JobTimeout = 30 * time.Second
	}

	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.MaxImageSize == 0 {
		cfg.Storage.MaxImageSize = 5 << 20
	}
	if cfg.Invoice.Timeout == 0 {
		cfg.Invoice.Timeout = 20 * time.Second
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Profiling.ServerAddress == "" {
		cfg.Profiling.ServerAddress = "http://localhost:4040"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	switch c.License.Mode {
	case "stub", "jwt":
	default:
		return fmt.Errorf("license.mode must be stub or jwt, got %q", c.License.Mode)
	}
	if c.License.Mode == "jwt" && c.License.Secret == "" {
		return fmt.Errorf("license.secret is required when license.mode is jwt")
	}
	switch c.Queue.Backend {
	case "redis", "memory":
	default:
		return fmt.Errorf("queue.backend must be redis or memory, got %q", c.Queue.Backend)
	}
	if c.Queue.MaxDelay < c.Queue.BaseDelay {
		return fmt.Errorf("queue.max_delay cannot be smaller than queue.base_delay")
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.IsProduction() {
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if len(c.Service.Secret) < 32 {
			return fmt.Errorf("service.secret must be at least 32 characters in production")
		}
		if c.License.Mode == "stub" {
			return fmt.Errorf("license.mode cannot be 'stub' in production")
		}
		if c.Database.URL == "" && c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Swagger.Enabled && !c.Swagger.RequireAuth && len(c.Swagger.AllowedIPs) == 0 {
			return fmt.Errorf("swagger endpoint must be disabled, require authentication, or have IP restriction in production")
		}
	}
	return nil
}

// DSN returns the database connection string with properly escaped values.
// For sqlite the DBName is used as the file path.
func (d *DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	if d.Driver == "sqlite" {
		return d.DBName
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
