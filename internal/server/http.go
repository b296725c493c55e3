package server

import (
	"time"

	"talentrank/internal/config"
	"talentrank/internal/engine"
	talentrankErrors "talentrank/internal/errors"
	"talentrank/internal/types"
)

// CandidatePayload carries one candidate's raw text through the API.
type CandidatePayload struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Email string `json:"email,omitempty"`
}

// JobPayload carries a job either as free text or in structured form.
// Exactly one of the two should be set; structured wins when both are.
type JobPayload struct {
	Text       string          `json:"text,omitempty"`
	Structured *types.JobInput `json:"structured,omitempty"`
}

type RankRequest struct {
	Job        JobPayload         `json:"job"`
	Candidates []CandidatePayload `json:"candidates"`
	TopN       int                `json:"topN,omitempty"`
}

type MatchRequest struct {
	Candidate CandidatePayload `json:"candidate"`
	Job       JobPayload       `json:"job"`
}

type DuplicatesRequest struct {
	Candidate CandidatePayload   `json:"candidate"`
	Pool      []CandidatePayload `json:"pool,omitempty"`

	// Register adds the scanned candidate to the server's pool after the
	// scan, so later scans see it.
	Register bool `json:"register,omitempty"`
}

type ExtractRequest struct {
	// Kind selects what to extract: "candidate" (default) or "job".
	Kind  string `json:"kind,omitempty"`
	Text  string `json:"text"`
	Email string `json:"email,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// Assembled resolution pipeline shared by all handlers
	Engine *engine.Engine

	// Static TLS serving; both must be set to enable TLS
	CertFile string
	KeyFile  string

	// API Authentication
	APIKeys map[string]bool

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	// Logger
	Logger *talentrankErrors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	CertFile       string
	KeyFile        string
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, eng *engine.Engine, cfg ServerConfig, logger *talentrankErrors.Logger) *Server {
	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.Window,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		Engine:         eng,
		CertFile:       cfg.CertFile,
		KeyFile:        cfg.KeyFile,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Logger:         logger,
	}
}
