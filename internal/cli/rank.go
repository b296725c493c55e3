package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"talentrank/internal/common"
	"talentrank/internal/engine"
	"talentrank/internal/errors"
	"talentrank/internal/ranking"
	"talentrank/internal/types"

	"github.com/spf13/cobra"
)

var rankCmd = &cobra.Command{
	Use:   "rank [job-file] [candidate-file...]",
	Short: "Rank candidates against a job description",
	Long: `Rank one or more candidates against a job description.
The first argument is the job description file; every following argument is
one candidate file. Candidates are scored through the tiered resolution
pipeline and returned in descending score order. Candidates whose resolution
fails even after the rule-based fallback are listed as excluded.`,
	Args: cobra.MinimumNArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		// Apply default format if not specified
		if rankConfig.OutputFormat == "" {
			rankConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(rankConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runRank,
}

var rankConfig common.CommandConfig
var rankTopN int

func init() {
	rankCmd.Flags().StringVarP(&rankConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	rankCmd.Flags().StringVar(&rankConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	rankCmd.Flags().IntVar(&rankTopN, "top", 0, "Return only the top N candidates (0 = all)")

	// Add completion for format flag
	_ = rankCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return []string{}, cobra.ShellCompDirectiveError
		}
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

type rankInput struct {
	jobText    string
	candidates []namedText
}

type namedText struct {
	id   string
	text string
}

// candidateID derives a stable candidate id from a file path.
func candidateID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func runRank(cmd *cobra.Command, args []string) error {
	cfg, err := getConfigFromContext(cmd.Context())
	if err != nil {
		return err
	}
	logger, err := getLoggerFromContext(cmd.Context())
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build engine: %w", err)
	}
	defer func() { _ = eng.Close() }()

	createInput := func(contents []string) (rankInput, error) {
		if len(contents) < 2 {
			return rankInput{}, fmt.Errorf("expected a job file and at least 1 candidate file, got %d files", len(contents))
		}
		input := rankInput{jobText: contents[0]}
		for i, text := range contents[1:] {
			input.candidates = append(input.candidates, namedText{
				id:   candidateID(args[i+1]),
				text: text,
			})
		}
		return input, nil
	}

	logDetails := func(input rankInput, cfg common.CommandConfig) {
		logger.Info("Starting candidate ranking",
			"job_chars", len(input.jobText),
			"candidate_count", len(input.candidates),
			"top_n", rankTopN,
			"output_format", cfg.OutputFormat)
	}

	rankOperation := func(ctx context.Context, input rankInput) (types.RankOutput, error) {
		job := eng.ExtractJob(ctx, input.jobText)
		candidates := make([]ranking.Candidate, len(input.candidates))
		for i, c := range input.candidates {
			candidates[i] = ranking.Candidate{
				ID:       c.id,
				Features: eng.ExtractCandidate(ctx, c.id, c.text, ""),
			}
		}
		output, rankErr := eng.Rank(ctx, job, candidates, rankTopN)
		if rankErr != nil && errors.CodeOf(rankErr) == errors.ErrCodeBatchPartial {
			// Partial failure still ranks the candidates that resolved;
			// the excluded ids appear in the output.
			logger.Warn("Some candidates could not be resolved",
				"excluded_count", len(output.Excluded))
			return output, nil
		}
		return output, rankErr
	}

	err = common.RunCommand(
		cmd.Context(),
		logger,
		rankConfig,
		args,
		createInput,
		rankOperation,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to rank candidates: %w", err)
	}
	logger.Info("Candidate ranking completed successfully")
	return nil
}
