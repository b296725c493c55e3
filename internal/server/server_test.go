package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"talentrank/internal/config"
	"talentrank/internal/engine"
	"talentrank/internal/errors"
	"talentrank/internal/observability"
	"talentrank/internal/types"
)

func testConfig() *config.Config {
	return &config.Config{
		Engine: config.EngineConfig{
			LocalTimeout:             2 * time.Second,
			RemoteTimeout:            5 * time.Second,
			MaxConcurrentResolutions: 4,
			DuplicateThreshold:       0.85,
			Scoring: config.ScoringConfig{
				SkillWeight:          0.5,
				ExperienceWeight:     0.3,
				SemanticWeight:       0.2,
				RequiredShare:        0.7,
				PreferredShare:       0.3,
				StronglyRecommendMin: 80,
				RecommendMin:         60,
				ConsiderMin:          40,
			},
		},
		Cache: config.CacheConfig{
			Enabled:           true,
			ResultTTL:         time.Minute,
			ResultCapacity:    16,
			EmbeddingTTL:      time.Minute,
			EmbeddingCapacity: 16,
		},
		App: config.AppConfig{
			LogLevel:    "error",
			MaxFileSize: 1 << 20,
		},
	}
}

// newTestServer builds a server on a local-only engine (no remote tier) with
// routes wired through a disabled observability manager.
func newTestServer(t *testing.T, apiKeys []string) (*Server, *http.ServeMux) {
	t.Helper()

	cfg := testConfig()
	logger := errors.NewLogger(slog.LevelError)

	eng, err := engine.New(cfg, logger)
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}

	srv := NewServer(cfg, eng, ServerConfig{
		Host:           "127.0.0.1",
		Port:           "0",
		Version:        "test",
		APIKeys:        apiKeys,
		MaxRequestSize: cfg.App.MaxFileSize,
	}, logger)

	om, err := observability.NewObservabilityManager(observability.ObservabilityConfig{}, cfg)
	if err != nil {
		t.Fatalf("NewObservabilityManager failed: %v", err)
	}

	return srv, srv.setupRoutes(om)
}

func postJSON(mux *http.ServeMux, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestHealthHandler(t *testing.T) {
	_, mux := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse health response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", body["status"])
	}

	remote, ok := body["remote_tier"].(map[string]any)
	if !ok {
		t.Fatalf("missing remote_tier in health response")
	}
	if remote["enabled"] != false {
		t.Errorf("expected remote tier disabled, got %v", remote["enabled"])
	}
	if remote["healthy"] != true {
		t.Errorf("expected remote tier healthy when disabled, got %v", remote["healthy"])
	}
}

func TestHealthHandlerMethodNotAllowed(t *testing.T) {
	_, mux := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}

func TestStatsHandler(t *testing.T) {
	_, mux := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse stats response: %v", err)
	}
	rl, ok := body["rate_limiting"].(map[string]any)
	if !ok {
		t.Fatalf("missing rate_limiting in stats response")
	}
	if rl["enabled"] != false {
		t.Errorf("expected rate limiting disabled, got %v", rl["enabled"])
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, mux := newTestServer(t, []string{"valid-key-12345678"})

	body := `{"kind":"candidate","text":"Python developer"}`

	// No key
	rr := postJSON(mux, "/extract", body)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", rr.Code)
	}

	// Invalid key
	req := httptest.NewRequest(http.MethodPost, "/extract", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "wrong-key")
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with invalid key, got %d", rr.Code)
	}

	// Valid key via X-API-Key
	req = httptest.NewRequest(http.MethodPost, "/extract", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "valid-key-12345678")
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200 with valid key, got %d: %s", rr.Code, rr.Body.String())
	}

	// Valid key via Bearer token
	req = httptest.NewRequest(http.MethodPost, "/extract", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer valid-key-12345678")
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200 with bearer token, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRankEndpoint(t *testing.T) {
	_, mux := newTestServer(t, nil)

	body := `{
		"job": {"text": "Backend Engineer\nWe need Python and Go, 3+ years. Nice to have: docker."},
		"candidates": [
			{"id": "strong", "text": "Senior engineer, 6 years of Python, Go and Docker. Led a team of 4."},
			{"id": "weak", "text": "Junior Java developer, 1 year of experience."}
		]
	}`
	rr := postJSON(mux, "/rank", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var output types.RankOutput
	if err := json.Unmarshal(rr.Body.Bytes(), &output); err != nil {
		t.Fatalf("failed to parse rank response: %v", err)
	}
	if len(output.Ranked) != 2 {
		t.Fatalf("expected 2 ranked candidates, got %d", len(output.Ranked))
	}
	if output.Ranked[0].CandidateID != "strong" {
		t.Errorf("expected the stronger candidate first, got %s", output.Ranked[0].CandidateID)
	}
	if output.Ranked[0].Result.Score < output.Ranked[1].Result.Score {
		t.Errorf("ranking order violates descending score: %d < %d",
			output.Ranked[0].Result.Score, output.Ranked[1].Result.Score)
	}
	if len(output.Excluded) != 0 {
		t.Errorf("expected no exclusions, got %v", output.Excluded)
	}
}

func TestRankEndpointValidation(t *testing.T) {
	_, mux := newTestServer(t, nil)

	// Missing candidates
	rr := postJSON(mux, "/rank", `{"job": {"text": "Python engineer"}}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing candidates, got %d", rr.Code)
	}

	// Candidate without id
	rr = postJSON(mux, "/rank", `{
		"job": {"text": "Python engineer"},
		"candidates": [{"text": "Python developer"}]
	}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for candidate without id, got %d", rr.Code)
	}

	// Missing job
	rr = postJSON(mux, "/rank", `{
		"candidates": [{"id": "c1", "text": "Python developer"}]
	}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing job, got %d", rr.Code)
	}
}

func TestMatchEndpoint(t *testing.T) {
	_, mux := newTestServer(t, nil)

	body := `{
		"candidate": {"id": "c1", "text": "Python and React developer with 5 years of experience"},
		"job": {"structured": {
			"title": "Frontend Engineer",
			"required_skills": ["python", "react"],
			"experience_required": 3
		}}
	}`
	rr := postJSON(mux, "/match", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var result types.MatchResult
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse match response: %v", err)
	}
	if result.Score < 0 || result.Score > 100 {
		t.Errorf("score out of range: %d", result.Score)
	}
	if result.Source != types.SourceLocal {
		t.Errorf("expected local source without remote tier, got %s", result.Source)
	}
	if result.Recommendation == "" {
		t.Error("expected a recommendation bucket")
	}
}

func TestDuplicatesEndpoint(t *testing.T) {
	srv, mux := newTestServer(t, nil)

	text := "Staff engineer, 8 years of Go and Kubernetes. Led platform migrations."
	body := `{
		"candidate": {"id": "new-hire", "text": ` + jsonQuote(text) + `},
		"pool": [
			{"id": "existing", "text": ` + jsonQuote(text) + `},
			{"id": "other", "text": "Designer with Figma experience"}
		]
	}`
	rr := postJSON(mux, "/duplicates", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var report types.DuplicateReport
	if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to parse duplicates response: %v", err)
	}
	if report.CandidateID != "new-hire" {
		t.Errorf("expected candidateId new-hire, got %s", report.CandidateID)
	}
	if len(report.Duplicates) != 1 {
		t.Fatalf("expected exactly 1 duplicate, got %d", len(report.Duplicates))
	}
	if report.Duplicates[0].MatchedID != "existing" {
		t.Errorf("expected match against existing, got %s", report.Duplicates[0].MatchedID)
	}

	// Register was not set, so the scanned candidate stays out of the pool.
	if srv.Engine.PoolSize() != 2 {
		t.Errorf("expected pool size 2 (pool entries only), got %d", srv.Engine.PoolSize())
	}
}

func TestDuplicatesEndpointRegister(t *testing.T) {
	srv, mux := newTestServer(t, nil)

	body := `{
		"candidate": {"id": "c1", "text": "Python developer, 4 years"},
		"register": true
	}`
	rr := postJSON(mux, "/duplicates", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if srv.Engine.PoolSize() != 1 {
		t.Errorf("expected registered candidate in pool, got size %d", srv.Engine.PoolSize())
	}
}

func TestExtractEndpoint(t *testing.T) {
	_, mux := newTestServer(t, nil)

	// Candidate extraction (default kind)
	rr := postJSON(mux, "/extract", `{"text": "Python and Docker engineer, 5 years"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var fs types.FeatureSet
	if err := json.Unmarshal(rr.Body.Bytes(), &fs); err != nil {
		t.Fatalf("failed to parse extract response: %v", err)
	}
	if !fs.HasSkill("python") || !fs.HasSkill("docker") {
		t.Errorf("expected python and docker skills, got %v", fs.Skills)
	}
	if fs.ExperienceYears != 5 {
		t.Errorf("expected 5 years, got %v", fs.ExperienceYears)
	}

	// Job extraction
	rr = postJSON(mux, "/extract", `{"kind": "job", "text": "Engineer\nMust know Go. Nice to have: rust."}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for job extract, got %d: %s", rr.Code, rr.Body.String())
	}
	var spec types.JobSpec
	if err := json.Unmarshal(rr.Body.Bytes(), &spec); err != nil {
		t.Fatalf("failed to parse job extract response: %v", err)
	}
	if len(spec.RequiredSkills) != 1 || spec.RequiredSkills[0] != "go" {
		t.Errorf("expected required [go], got %v", spec.RequiredSkills)
	}
	if len(spec.PreferredSkills) != 1 || spec.PreferredSkills[0] != "rust" {
		t.Errorf("expected preferred [rust], got %v", spec.PreferredSkills)
	}

	// Unknown kind
	rr = postJSON(mux, "/extract", `{"kind": "company", "text": "whatever"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown kind, got %d", rr.Code)
	}

	// Missing text
	rr = postJSON(mux, "/extract", `{"kind": "candidate"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing text, got %d", rr.Code)
	}
}

func TestContentTypeRequired(t *testing.T) {
	_, mux := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/extract", strings.NewReader(`{"text": "x"}`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without content-type, got %d", rr.Code)
	}
}

func TestRequestSizeLimit(t *testing.T) {
	srv, mux := newTestServer(t, nil)
	srv.MaxRequestSize = 64

	big := `{"text": "` + strings.Repeat("a", 256) + `"}`
	rr := postJSON(mux, "/extract", big)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for oversized body, got %d", rr.Code)
	}
}

// jsonQuote quotes a string for inline JSON request bodies.
func jsonQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestMaskAPIKey(t *testing.T) {
	if got := maskAPIKey("short"); got != "****" {
		t.Errorf("expected **** for short key, got %s", got)
	}
	if got := maskAPIKey("abcdefgh12345678"); got != "abcdefgh****" {
		t.Errorf("expected abcdefgh****, got %s", got)
	}
}

func TestGetRateLimitKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/rank", nil)
	req.RemoteAddr = "192.168.1.10:54321"

	if key := getRateLimitKey(req, false, false); key != "" {
		t.Errorf("expected empty key with both disabled, got %s", key)
	}
	if key := getRateLimitKey(req, false, true); key != "ip:192.168.1.10" {
		t.Errorf("expected ip key, got %s", key)
	}

	req.Header.Set("X-API-Key", "my-key")
	if key := getRateLimitKey(req, true, true); key != "api:my-key" {
		t.Errorf("expected api key to win over ip, got %s", key)
	}

	req.Header.Del("X-API-Key")
	req.Header.Set("Authorization", "Bearer token-abc")
	if key := getRateLimitKey(req, true, false); key != "api:token-abc" {
		t.Errorf("expected bearer token key, got %s", key)
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:12345"

	if ip := getClientIP(req); ip != "10.0.0.1" {
		t.Errorf("expected RemoteAddr host, got %s", ip)
	}

	req.Header.Set("X-Real-IP", "203.0.113.7")
	if ip := getClientIP(req); ip != "203.0.113.7" {
		t.Errorf("expected X-Real-IP, got %s", ip)
	}

	req.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.1")
	if ip := getClientIP(req); ip != "198.51.100.4" {
		t.Errorf("expected first X-Forwarded-For entry, got %s", ip)
	}
}

func TestParseFirstIP(t *testing.T) {
	if ip := parseFirstIP("not-an-ip, 192.0.2.1"); ip != "192.0.2.1" {
		t.Errorf("expected first valid IP, got %s", ip)
	}
	if ip := parseFirstIP("garbage"); ip != "" {
		t.Errorf("expected empty for no valid IP, got %s", ip)
	}
}

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter(60, time.Minute, 2, nil)
	defer rl.Close()

	if !rl.Allow("client") {
		t.Error("first request should be allowed")
	}
	if !rl.Allow("client") {
		t.Error("second request should fit in burst")
	}
	if rl.Allow("client") {
		t.Error("third request should exceed burst capacity")
	}

	// A different key gets its own bucket.
	if !rl.Allow("other") {
		t.Error("separate key should have its own limiter")
	}
}
