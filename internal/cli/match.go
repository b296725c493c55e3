package cli

import (
	"context"
	"fmt"

	"talentrank/internal/common"
	"talentrank/internal/engine"
	"talentrank/internal/types"

	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match [candidate-file] [job-file]",
	Short: "Match one candidate against a job description",
	Long: `Match a single candidate against a job description.
The command takes two arguments: the path to the candidate file and the path
to the job description file. The candidate is resolved through the tiered
pipeline (local scorer, optional remote tier, rule-based fallback) and the
result reports a score, strengths, gaps and a recommendation.`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		// Apply default format if not specified
		if matchConfig.OutputFormat == "" {
			matchConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(matchConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runMatch,
}

var matchConfig common.CommandConfig

func init() {
	matchCmd.Flags().StringVarP(&matchConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	matchCmd.Flags().StringVar(&matchConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	// Add completion for format flag
	_ = matchCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return []string{}, cobra.ShellCompDirectiveError
		}
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

type matchInput struct {
	candidateID   string
	candidateText string
	jobText       string
}

func runMatch(cmd *cobra.Command, args []string) error {
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

	createInput := func(contents []string) (matchInput, error) {
		if len(contents) != 2 {
			return matchInput{}, fmt.Errorf("expected 2 file paths, got %d", len(contents))
		}
		return matchInput{
			candidateID:   candidateID(args[0]),
			candidateText: contents[0],
			jobText:       contents[1],
		}, nil
	}

	logDetails := func(input matchInput, cfg common.CommandConfig) {
		logger.Info("Starting candidate match",
			"candidate_id", input.candidateID,
			"candidate_chars", len(input.candidateText),
			"job_chars", len(input.jobText),
			"output_format", cfg.OutputFormat)
	}

	matchOperation := func(ctx context.Context, input matchInput) (types.MatchResult, error) {
		fs := eng.ExtractCandidate(ctx, input.candidateID, input.candidateText, "")
		job := eng.ExtractJob(ctx, input.jobText)
		return eng.Match(ctx, input.candidateID, fs, job)
	}

	err = common.RunCommand(
		cmd.Context(),
		logger,
		matchConfig,
		args,
		createInput,
		matchOperation,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to match candidate: %w", err)
	}
	logger.Info("Candidate match completed successfully")
	return nil
}
