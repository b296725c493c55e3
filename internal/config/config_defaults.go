package config

import (
	"github.com/spf13/viper"
)

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Engine defaults
	v.SetDefault("engine.localTimeout", "5s")
	v.SetDefault("engine.remoteTimeout", "12s")
	v.SetDefault("engine.maxConcurrentResolutions", 50)
	v.SetDefault("engine.duplicateThreshold", 0.85)
	v.SetDefault("engine.escalateOnDegraded", true)
	v.SetDefault("engine.vocabularyFile", "")

	// Scoring defaults
	v.SetDefault("engine.scoring.skillWeight", 0.5)
	v.SetDefault("engine.scoring.experienceWeight", 0.3)
	v.SetDefault("engine.scoring.semanticWeight", 0.2)
	v.SetDefault("engine.scoring.requiredShare", 0.7)
	v.SetDefault("engine.scoring.preferredShare", 0.3)
	v.SetDefault("engine.scoring.stronglyRecommendMin", 80)
	v.SetDefault("engine.scoring.recommendMin", 60)
	v.SetDefault("engine.scoring.considerMin", 40)

	// AI defaults
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("ai.embeddingModel", "gemini-embedding-001")
	v.SetDefault("ai.temperature", 0.1)
	v.SetDefault("ai.enabled", true)

	// Circuit breaker defaults
	v.SetDefault("ai.circuitBreaker.enabled", true)
	v.SetDefault("ai.circuitBreaker.maxRequests", 3)
	v.SetDefault("ai.circuitBreaker.interval", "60s")
	v.SetDefault("ai.circuitBreaker.timeout", "30s")
	v.SetDefault("ai.circuitBreaker.minRequests", 5)
	v.SetDefault("ai.circuitBreaker.failureThreshold", 0.6)

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.resultTTL", "5m")
	v.SetDefault("cache.resultCapacity", 1000)
	v.SetDefault("cache.embeddingTTL", "24h")
	v.SetDefault("cache.embeddingCapacity", 5000)

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", "30s")
	v.SetDefault("server.writeTimeout", "60s")
	v.SetDefault("server.idleTimeout", "120s")
	v.SetDefault("server.certFile", "")
	v.SetDefault("server.keyFile", "")
	v.SetDefault("server.apiKeys", []string{})

	// Rate limiting defaults
	v.SetDefault("server.rateLimit.enabled", true)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", true)
	v.SetDefault("server.rateLimit.window", "1m")

	// App defaults
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "json")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 10*1024*1024) // 10MB

	// Vault defaults
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "secret/data/talentrank/api-keys")
	v.SetDefault("vault.secrets.geminiKey", "secret/data/talentrank/gemini")

	// Observability defaults
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "talentrank")
	v.SetDefault("observability.serviceVersion", "dev")
	v.SetDefault("observability.serviceInstance", "")
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)

	// Tracing defaults
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)

	// Metrics defaults
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", "30s")

	// Custom metrics defaults
	v.SetDefault("observability.customMetrics.resolutions.enabled", true)
	v.SetDefault("observability.customMetrics.resolutions.trackDuration", true)
	v.SetDefault("observability.customMetrics.resolutions.trackTokenUsage", true)
	v.SetDefault("observability.customMetrics.engine.enabled", true)
	v.SetDefault("observability.customMetrics.engine.trackCacheStats", true)
	v.SetDefault("observability.customMetrics.engine.trackBatchSizes", true)
	v.SetDefault("observability.customMetrics.infrastructure.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackRateLimits", true)

	// Console defaults
	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)

	// Prometheus defaults
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")

	// OTLP defaults
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})

	// Health check defaults
	v.SetDefault("observability.healthCheck.timeout", "5s")
	v.SetDefault("observability.healthCheck.aiModelCheckTimeout", "3s")
}
