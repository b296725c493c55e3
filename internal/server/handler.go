package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"talentrank/internal/errors"
	"talentrank/internal/observability"
	"talentrank/internal/ranking"
	"talentrank/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

// resolveJob builds a JobSpec from either form of the job payload.
func (s *Server) resolveJob(r *http.Request, job JobPayload) (types.JobSpec, error) {
	if job.Structured != nil {
		return s.Engine.JobFromInput(r.Context(), *job.Structured), nil
	}
	if strings.TrimSpace(job.Text) == "" {
		return types.JobSpec{}, fmt.Errorf("job text or structured job is required")
	}
	return s.Engine.ExtractJob(r.Context(), job.Text), nil
}

func validateCandidate(c CandidatePayload) error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("candidate id is required")
	}
	if strings.TrimSpace(c.Text) == "" {
		return fmt.Errorf("candidate text is required")
	}
	return nil
}

// createRankHandler wraps the ranking handler with observability
func (s *Server) createRankHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("talentrank.api")
		ctx, span := tracer.Start(ctx, "api.rank")
		defer span.End()
		r = r.WithContext(ctx)

		var req RankRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", "", err.Error(), http.StatusBadRequest)
			return
		}

		if len(req.Candidates) == 0 {
			err := fmt.Errorf("missing candidates")
			span.RecordError(err)
			writeErrorResponse(w, "Missing candidates", errors.ErrCodeInvalidRequest, "candidates field is required", http.StatusBadRequest)
			return
		}
		for _, c := range req.Candidates {
			if err := validateCandidate(c); err != nil {
				span.RecordError(err)
				writeErrorResponse(w, "Invalid candidate", errors.ErrCodeInvalidRequest, err.Error(), http.StatusBadRequest)
				return
			}
		}

		job, err := s.resolveJob(r, req.Job)
		if err != nil {
			span.RecordError(err)
			writeErrorResponse(w, "Invalid job", errors.ErrCodeInvalidRequest, err.Error(), http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.Int("request.candidate_count", len(req.Candidates)),
			attribute.Int("request.top_n", req.TopN),
			attribute.String("operation", "rank"),
		)

		candidates := make([]ranking.Candidate, len(req.Candidates))
		for i, c := range req.Candidates {
			candidates[i] = ranking.Candidate{
				ID:       c.ID,
				Features: s.Engine.ExtractCandidate(ctx, c.ID, c.Text, c.Email),
			}
		}

		metrics := om.GetMetrics()
		metrics.RecordRankBatch(ctx, len(candidates), om)

		output, err := s.Engine.Rank(ctx, job, candidates, req.TopN)
		if err != nil && errors.CodeOf(err) != errors.ErrCodeBatchPartial {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "ranking"))
			metrics.RecordBusinessMetric(ctx, "candidate_ranked", false, om,
				attribute.String("error_code", errors.CodeOf(err)))
			writeErrorResponse(w, "Failed to rank candidates", errors.CodeOf(err), err.Error(), http.StatusInternalServerError)
			return
		}

		// A partial failure still ranks the candidates that resolved; the
		// excluded ids travel in the response body.
		for range output.Ranked {
			metrics.RecordBusinessMetric(ctx, "candidate_ranked", true, om)
		}

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("response.ranked_count", len(output.Ranked)),
			attribute.Int("response.excluded_count", len(output.Excluded)),
		)

		writeJSONResponse(w, output)
	}
}

// createMatchHandler wraps the single-match handler with observability
func (s *Server) createMatchHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("talentrank.api")
		ctx, span := tracer.Start(ctx, "api.match")
		defer span.End()
		r = r.WithContext(ctx)

		var req MatchRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", "", err.Error(), http.StatusBadRequest)
			return
		}

		if err := validateCandidate(req.Candidate); err != nil {
			span.RecordError(err)
			writeErrorResponse(w, "Invalid candidate", errors.ErrCodeInvalidRequest, err.Error(), http.StatusBadRequest)
			return
		}

		job, err := s.resolveJob(r, req.Job)
		if err != nil {
			span.RecordError(err)
			writeErrorResponse(w, "Invalid job", errors.ErrCodeInvalidRequest, err.Error(), http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.String("candidate.id", req.Candidate.ID),
			attribute.String("operation", "match"),
		)

		fs := s.Engine.ExtractCandidate(ctx, req.Candidate.ID, req.Candidate.Text, req.Candidate.Email)

		metrics := om.GetMetrics()
		resolveStart := time.Now().UTC()
		var result types.MatchResult
		err = metrics.TrackResolutionWithTokens(ctx, "match", func(ctx context.Context) *observability.ResolutionResult {
			res, resolveErr := s.Engine.Match(ctx, req.Candidate.ID, fs, job)
			result = res
			rr := &observability.ResolutionResult{
				Error:  resolveErr,
				Source: string(res.Source),
			}
			if tu := s.Engine.RemoteTokenUsage(); tu != nil && res.Source == types.SourceRemote {
				rr.TokenUsage = &observability.TokenUsage{
					InputTokens:  tu.InputTokens,
					OutputTokens: tu.OutputTokens,
					TotalTokens:  tu.TotalTokens,
				}
			}
			return rr
		}, om)

		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "resolution"))
			writeErrorResponse(w, "Failed to resolve match", errors.CodeOf(err), err.Error(), http.StatusInternalServerError)
			return
		}

		// A result computed before this request started came out of the
		// result cache; fresh resolutions stamp ComputedAt during the call.
		cacheHit := result.ComputedAt.Before(resolveStart)
		metrics.RecordCacheAccess(ctx, "results", cacheHit, om)
		if !cacheHit && result.Source != types.SourceLocal {
			metrics.RecordBusinessMetric(ctx, "escalation", true, om,
				attribute.String("source", string(result.Source)))
		}

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("match.score", result.Score),
			attribute.String("match.source", string(result.Source)),
		)

		writeJSONResponse(w, result)
	}
}

// createDuplicatesHandler wraps the duplicate-scan handler with observability
func (s *Server) createDuplicatesHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("talentrank.api")
		ctx, span := tracer.Start(ctx, "api.duplicates")
		defer span.End()
		r = r.WithContext(ctx)

		var req DuplicatesRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", "", err.Error(), http.StatusBadRequest)
			return
		}

		if err := validateCandidate(req.Candidate); err != nil {
			span.RecordError(err)
			writeErrorResponse(w, "Invalid candidate", errors.ErrCodeInvalidRequest, err.Error(), http.StatusBadRequest)
			return
		}
		for _, p := range req.Pool {
			if err := validateCandidate(p); err != nil {
				span.RecordError(err)
				writeErrorResponse(w, "Invalid pool entry", errors.ErrCodeInvalidRequest, err.Error(), http.StatusBadRequest)
				return
			}
		}

		// Pool entries supplied in the request join the server's pool before
		// the scan; the scanned candidate stays out unless Register is set.
		for _, p := range req.Pool {
			s.Engine.ExtractCandidate(ctx, p.ID, p.Text, p.Email)
		}
		fs := s.Engine.ExtractCandidate(ctx, "", req.Candidate.Text, req.Candidate.Email)

		span.SetAttributes(
			attribute.String("candidate.id", req.Candidate.ID),
			attribute.Int("pool.size", s.Engine.PoolSize()),
			attribute.String("operation", "duplicates"),
		)

		report := s.Engine.Duplicates(req.Candidate.ID, fs)

		if req.Register {
			s.Engine.AddToPool(req.Candidate.ID, fs)
		}

		metrics := om.GetMetrics()
		metrics.RecordBusinessMetric(ctx, "duplicate_check", true, om,
			attribute.Int("duplicates_found", len(report.Duplicates)))

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Int("response.duplicate_count", len(report.Duplicates)),
		)

		writeJSONResponse(w, report)
	}
}

// createExtractHandler wraps the feature-extraction handler with observability
func (s *Server) createExtractHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("talentrank.api")
		ctx, span := tracer.Start(ctx, "api.extract")
		defer span.End()
		r = r.WithContext(ctx)

		var req ExtractRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", "", err.Error(), http.StatusBadRequest)
			return
		}

		if strings.TrimSpace(req.Text) == "" {
			err := fmt.Errorf("missing text")
			span.RecordError(err)
			writeErrorResponse(w, "Missing text", errors.ErrCodeInvalidRequest, "text field is required", http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.Int("request.text_length", len(req.Text)),
			attribute.String("request.kind", req.Kind),
			attribute.String("operation", "extract"),
		)

		switch req.Kind {
		case "", "candidate":
			fs := s.Engine.ExtractCandidate(ctx, "", req.Text, req.Email)
			span.SetAttributes(attribute.Int("response.skill_count", len(fs.Skills)))
			writeJSONResponse(w, fs)
		case "job":
			job := s.Engine.ExtractJob(ctx, req.Text)
			span.SetAttributes(attribute.Int("response.required_count", len(job.RequiredSkills)))
			writeJSONResponse(w, job)
		default:
			err := fmt.Errorf("unknown kind %q", req.Kind)
			span.RecordError(err)
			writeErrorResponse(w, "Invalid kind", errors.ErrCodeInvalidRequest, "kind must be \"candidate\" or \"job\"", http.StatusBadRequest)
		}
	}
}

// createRateLimitMiddleware adds observability to rate limiting
func (s *Server) createRateLimitMiddleware(om *observability.ObservabilityManager) func(http.HandlerFunc) http.HandlerFunc {
	originalMiddleware := s.rateLimitMiddleware()

	return func(next http.HandlerFunc) http.HandlerFunc {
		return originalMiddleware(func(w http.ResponseWriter, r *http.Request) {
			// Wrap the ResponseWriter to detect rate limit responses
			wrapper := &responseWrapper{ResponseWriter: w, statusCode: 200}

			next(wrapper, r)

			// If rate limited, record metric
			if wrapper.statusCode == http.StatusTooManyRequests {
				metrics := om.GetMetrics()
				metrics.RecordBusinessMetric(r.Context(), "rate_limit_hit", true, om,
					attribute.String("endpoint", r.URL.Path),
					attribute.String("method", r.Method))
			}
		})
	}
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
