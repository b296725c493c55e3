package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"talentrank/internal/config"
	"talentrank/internal/errors"
	"talentrank/internal/scoring"
	"talentrank/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"
)

const remoteSystemPrompt = `You are a technical recruiter scoring how well a candidate matches a job.
Score from 0 (no fit) to 100 (ideal fit). Weigh required skills most heavily,
then experience, then overall seniority signals. Be specific in strengths and
gaps: name the skills and the experience delta. Never invent skills the
candidate does not list.`

// remoteMatchOutput is the JSON shape the model is constrained to produce.
type remoteMatchOutput struct {
	Score     int      `json:"score"`
	Strengths []string `json:"strengths"`
	Gaps      []string `json:"gaps"`
}

// GeminiResolver is the remote tier: a single LLM-backed scoring attempt
// per request, guarded by a circuit breaker. There is no retry loop; the
// orchestrator's latency budget does not allow one, and the rule-based
// fallback is always available.
type GeminiResolver struct {
	client  *genai.Client
	cfg     config.AIConfig
	scorer  *scoring.Scorer
	breaker *RemoteCircuitBreaker
	logger  *errors.Logger

	// lastTokens holds the most recent call's token usage for telemetry.
	lastTokens atomic.Pointer[TokenUsage]
}

var _ Resolver = (*GeminiResolver)(nil)

// NewGeminiResolver creates the remote tier.
func NewGeminiResolver(cfg config.AIConfig, scorer *scoring.Scorer, logger *errors.Logger) (*GeminiResolver, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, errors.NewRemoteError(errors.ErrCodeRemoteError,
			"Failed to create Gemini client", err)
	}

	return &GeminiResolver{
		client:  client,
		cfg:     cfg,
		scorer:  scorer,
		breaker: NewRemoteCircuitBreaker(cfg.CircuitBreaker, logger),
		logger:  logger,
	}, nil
}

// Resolve sends the pair to the model with a constrained JSON schema and
// re-buckets the returned score with the deployment thresholds.
func (g *GeminiResolver) Resolve(ctx context.Context, req Request) (types.MatchResult, error) {
	tracer := otel.Tracer("talentrank.resolve.gemini")
	ctx, span := tracer.Start(ctx, "gemini.score_match")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", g.cfg.Provider),
		attribute.String("ai.model", g.cfg.Model),
		attribute.String("candidate.id", req.CandidateID),
		attribute.Int("candidate.skills", len(req.Candidate.Skills)),
		attribute.Int("job.required_skills", len(req.Job.RequiredSkills)),
	)

	genaiConfig := g.buildMatchSchema()
	genaiConfig.SystemInstruction = genai.NewContentFromText(remoteSystemPrompt, genai.RoleUser)

	userPrompt := buildMatchPrompt(req)

	result, err := g.breaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(userPrompt), genaiConfig)
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return types.MatchResult{}, classifyRemoteError(err)
	}

	var output remoteMatchOutput
	if err := json.Unmarshal([]byte(result.Text()), &output); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return types.MatchResult{}, errors.NewRemoteError(errors.ErrCodeRemoteError,
			"Failed to parse remote scoring response", err)
	}

	if len(output.Strengths) == 0 && len(output.Gaps) == 0 {
		return types.MatchResult{}, errors.NewRemoteError(errors.ErrCodeRemoteError,
			"Remote response carried neither strengths nor gaps", nil)
	}

	score := output.Score
	if score < 0 {
		score = 0
	} else if score > 100 {
		score = 100
	}

	if usage := extractTokenUsage(result); usage != nil {
		g.lastTokens.Store(usage)
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}
	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Int("match.score", score),
	)

	return types.MatchResult{
		Score:          score,
		Strengths:      output.Strengths,
		Gaps:           output.Gaps,
		Recommendation: g.scorer.Recommend(score),
		Source:         types.SourceRemote,
		ComputedAt:     time.Now().UTC(),
	}, nil
}

// Healthy reports whether the remote tier's circuit breaker is closed.
func (g *GeminiResolver) Healthy() bool {
	return g.breaker.IsHealthy()
}

// BreakerStats exposes circuit breaker statistics for the stats endpoint.
func (g *GeminiResolver) BreakerStats() map[string]any {
	return g.breaker.Stats()
}

// LastTokenUsage returns the token usage of the most recent remote call,
// or nil when no remote call has completed yet.
func (g *GeminiResolver) LastTokenUsage() *TokenUsage {
	return g.lastTokens.Load()
}

func (g *GeminiResolver) buildMatchSchema() *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"score":     {Type: genai.TypeInteger},
				"strengths": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
				"gaps":      {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			},
			Required: []string{"score", "strengths", "gaps"},
		},
	}
	if g.cfg.Temperature > 0 {
		config.Temperature = genai.Ptr(g.cfg.Temperature)
	}
	return config
}

func buildMatchPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Job: %s\n", req.Job.Title)
	fmt.Fprintf(&b, "Required skills: %s\n", strings.Join(req.Job.RequiredSkills, ", "))
	fmt.Fprintf(&b, "Preferred skills: %s\n", strings.Join(req.Job.PreferredSkills, ", "))
	fmt.Fprintf(&b, "Minimum experience: %.1f years\n\n", req.Job.MinExperienceYears)

	fmt.Fprintf(&b, "Candidate skills: %s\n", strings.Join(req.Candidate.Skills, ", "))
	fmt.Fprintf(&b, "Candidate experience: %.1f years\n", req.Candidate.ExperienceYears)
	fmt.Fprintf(&b, "Leadership/impact signals: %d\n", req.Candidate.AchievementSignals)

	return b.String()
}

func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
