package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
// Value precedence, highest first:
// 1. Vault (if configured)
// 2. Config file values
// 3. Environment variables (TALENTRANK_ENGINE_LOCALTIMEOUT, ...)
// 4. Compiled-in defaults
type Config struct {
	Engine        EngineConfig        `mapstructure:"engine"`
	AI            AIConfig            `mapstructure:"ai"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// EngineConfig holds the resolution and ranking engine knobs.
type EngineConfig struct {
	// LocalTimeout bounds the local scoring attempt before escalation.
	LocalTimeout time.Duration `mapstructure:"localTimeout"`
	// RemoteTimeout bounds the single remote attempt. Generous because it
	// is the last high-quality tier before the rule-based fallback.
	RemoteTimeout time.Duration `mapstructure:"remoteTimeout"`
	// MaxConcurrentResolutions caps in-flight remote resolutions globally
	// and bounds the per-batch ranking fan-out.
	MaxConcurrentResolutions int `mapstructure:"maxConcurrentResolutions"`
	// DuplicateThreshold is the blended-similarity cutoff for flagging
	// near-duplicate candidate records.
	DuplicateThreshold float64 `mapstructure:"duplicateThreshold"`
	// EscalateOnDegraded escalates local results whose semantic term was
	// unavailable (missing embedding) to the remote tier.
	EscalateOnDegraded bool `mapstructure:"escalateOnDegraded"`
	// VocabularyFile optionally extends the built-in skills vocabulary.
	// Watched for changes when set.
	VocabularyFile string `mapstructure:"vocabularyFile"`

	Scoring ScoringConfig `mapstructure:"scoring"`
}

// ScoringConfig holds the scoring weights and recommendation thresholds.
// These are deployment-tunable policy, never per-request, so every result
// in a ranking run is comparable.
type ScoringConfig struct {
	SkillWeight      float64 `mapstructure:"skillWeight"`
	ExperienceWeight float64 `mapstructure:"experienceWeight"`
	SemanticWeight   float64 `mapstructure:"semanticWeight"`

	// Split of the skill term between required and preferred coverage.
	RequiredShare  float64 `mapstructure:"requiredShare"`
	PreferredShare float64 `mapstructure:"preferredShare"`

	StronglyRecommendMin int `mapstructure:"stronglyRecommendMin"`
	RecommendMin         int `mapstructure:"recommendMin"`
	ConsiderMin          int `mapstructure:"considerMin"`
}

// AIConfig holds the remote tier and embedding provider configuration.
type AIConfig struct {
	Provider       string               `mapstructure:"provider"`
	Model          string               `mapstructure:"model"`
	EmbeddingModel string               `mapstructure:"embeddingModel"`
	APIKey         string               `mapstructure:"apiKey"`
	Temperature    float32              `mapstructure:"temperature"`
	Enabled        bool                 `mapstructure:"enabled"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// CacheConfig holds the cache layer bounds. The engine must produce correct
// results with Enabled=false; the caches are an optimization only.
type CacheConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	ResultTTL         time.Duration `mapstructure:"resultTTL"`
	ResultCapacity    int           `mapstructure:"resultCapacity"`
	EmbeddingTTL      time.Duration `mapstructure:"embeddingTTL"`
	EmbeddingCapacity int           `mapstructure:"embeddingCapacity"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	// Static TLS serving (optional). Both must be set to enable TLS.
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`

	// API Authentication
	APIKeys []string `mapstructure:"apiKeys"` // Valid API keys for authentication

	// Rate Limiting Configuration
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`        // Enable/disable rate limiting
	RequestsPerMin int           `mapstructure:"requestsPerMin"` // Requests allowed per minute
	BurstCapacity  int           `mapstructure:"burstCapacity"`  // Burst capacity for token bucket
	ByIP           bool          `mapstructure:"byIP"`           // Enable per-IP rate limiting
	ByAPIKey       bool          `mapstructure:"byAPIKey"`       // Enable per-API-key rate limiting
	Window         time.Duration `mapstructure:"window"`         // Rate limiting window duration
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Tracing         TracingConfig       `mapstructure:"tracing"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
	HealthCheck     HealthCheckConfig   `mapstructure:"healthCheck"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig holds fine-grained custom metrics configuration
type CustomMetricsConfig struct {
	Resolutions    ResolutionMetricsConfig     `mapstructure:"resolutions"`
	Engine         EngineMetricsConfig         `mapstructure:"engine"`
	Infrastructure InfrastructureMetricsConfig `mapstructure:"infrastructure"`
}

// ResolutionMetricsConfig holds resolution pipeline metrics configuration
type ResolutionMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackDuration   bool `mapstructure:"trackDuration"`
	TrackTokenUsage bool `mapstructure:"trackTokenUsage"`
}

// EngineMetricsConfig holds engine business metrics configuration
type EngineMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackCacheStats bool `mapstructure:"trackCacheStats"`
	TrackBatchSizes bool `mapstructure:"trackBatchSizes"`
}

// InfrastructureMetricsConfig holds infrastructure metrics configuration
type InfrastructureMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackRateLimits bool `mapstructure:"trackRateLimits"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// HealthCheckConfig holds health check configuration
type HealthCheckConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	AIModelCheckTimeout time.Duration `mapstructure:"aiModelCheckTimeout"`
}

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Set up environment variable handling
	v.SetEnvPrefix("TALENTRANK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set up config file handling
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/talentrank/")
	v.AddConfigPath("$HOME/.talentrank")
	v.AddConfigPath(".")

	// Read the config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal the configuration into the Config struct
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply legacy environment variable overrides
	config.applyFallbacks()

	// Validate the configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid. A missing AI API key is
// not an error here: Vault secrets are applied after loading, and the
// engine runs local-only when no key ever arrives.
func (c *Config) Validate() error {
	if c.Engine.LocalTimeout <= 0 {
		return fmt.Errorf("engine local timeout must be positive")
	}
	if c.Engine.RemoteTimeout <= 0 {
		return fmt.Errorf("engine remote timeout must be positive")
	}
	if c.Engine.MaxConcurrentResolutions <= 0 {
		return fmt.Errorf("engine max concurrent resolutions must be positive")
	}
	if c.Engine.DuplicateThreshold < 0 || c.Engine.DuplicateThreshold > 1 {
		return fmt.Errorf("duplicate threshold must be in [0,1], got %v", c.Engine.DuplicateThreshold)
	}

	if err := c.Engine.Scoring.validate(); err != nil {
		return err
	}

	if c.Cache.ResultCapacity <= 0 || c.Cache.EmbeddingCapacity <= 0 {
		return fmt.Errorf("cache capacities must be positive")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if (c.Server.CertFile == "") != (c.Server.KeyFile == "") {
		return fmt.Errorf("server certFile and keyFile must be set together")
	}

	validFormats := make(map[string]bool)
	for _, format := range c.App.SupportedFormats {
		validFormats[format] = true
	}
	if !validFormats[c.App.DefaultFormat] {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	return nil
}

func (s ScoringConfig) validate() error {
	sum := s.SkillWeight + s.ExperienceWeight + s.SemanticWeight
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %v", sum)
	}
	share := s.RequiredShare + s.PreferredShare
	if share < 0.999 || share > 1.001 {
		return fmt.Errorf("required/preferred shares must sum to 1.0, got %v", share)
	}
	if s.StronglyRecommendMin <= s.RecommendMin || s.RecommendMin <= s.ConsiderMin || s.ConsiderMin <= 0 {
		return fmt.Errorf("recommendation thresholds must be strictly decreasing and positive")
	}
	return nil
}

// applyFallbacks applies legacy environment variable overrides. The flat
// names predate the viper key scheme and stay supported for deployments
// driven purely by environment.
func (c *Config) applyFallbacks() {
	if secs, ok := envSeconds("LOCAL_TIMEOUT_SECONDS"); ok {
		c.Engine.LocalTimeout = secs
	}
	if secs, ok := envSeconds("REMOTE_TIMEOUT_SECONDS"); ok {
		c.Engine.RemoteTimeout = secs
	}
	if n, ok := envInt("MAX_CONCURRENT_RESOLUTIONS"); ok {
		c.Engine.MaxConcurrentResolutions = n
	}
	if secs, ok := envSeconds("CACHE_TTL_SECONDS"); ok {
		c.Cache.ResultTTL = secs
	}
	if n, ok := envInt("CACHE_CAPACITY"); ok {
		c.Cache.ResultCapacity = n
	}
	if f, ok := envFloat("DUPLICATE_SIMILARITY_THRESHOLD"); ok {
		c.Engine.DuplicateThreshold = f
	}

	// Legacy support for the bare Gemini key variable
	if c.AI.APIKey == "" {
		c.AI.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	// Parse API keys from environment variable if not set in config
	if len(c.Server.APIKeys) == 0 {
		if apiKeysEnv := os.Getenv("TALENTRANK_SERVER_APIKEYS"); apiKeysEnv != "" {
			c.Server.APIKeys = strings.Split(apiKeysEnv, ",")
			for i, key := range c.Server.APIKeys {
				c.Server.APIKeys[i] = strings.TrimSpace(key)
			}
		}
	}

	// Set dynamic service instance ID if not specified
	if c.Observability.ServiceInstance == "" {
		if hostname, err := os.Hostname(); err == nil {
			c.Observability.ServiceInstance = fmt.Sprintf("%s-%s", c.Observability.ServiceName, hostname)
		} else {
			c.Observability.ServiceInstance = fmt.Sprintf("%s-1", c.Observability.ServiceName)
		}
	}

	// Set console output based on log level if not explicitly configured
	if c.App.LogLevel == "debug" && !c.Observability.ConsoleOutput {
		c.Observability.ConsoleOutput = true
	}
}

func envSeconds(name string) (time.Duration, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs <= 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

func envInt(name string) (int, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(name string) (float64, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
