package cli

import (
	"context"
	"fmt"

	"talentrank/internal/common"
	"talentrank/internal/engine"
	"talentrank/internal/types"

	"github.com/spf13/cobra"
)

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates [candidate-file] [pool-file...]",
	Short: "Scan a pool of candidates for duplicates",
	Long: `Scan a pool of candidate files for likely duplicates of one candidate.
The first argument is the candidate to check; every following argument is one
pool member. Similarity blends skill overlap and embedding similarity; a
matching email address short-circuits to an exact duplicate. Matches at or
above the configured threshold are reported, most similar first.`,
	Args: cobra.MinimumNArgs(2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		// Apply default format if not specified
		if duplicatesConfig.OutputFormat == "" {
			duplicatesConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(duplicatesConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runDuplicates,
}

var duplicatesConfig common.CommandConfig

func init() {
	duplicatesCmd.Flags().StringVarP(&duplicatesConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	duplicatesCmd.Flags().StringVar(&duplicatesConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	// Add completion for format flag
	_ = duplicatesCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return []string{}, cobra.ShellCompDirectiveError
		}
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

type duplicatesInput struct {
	candidate namedText
	pool      []namedText
}

func runDuplicates(cmd *cobra.Command, args []string) error {
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

	createInput := func(contents []string) (duplicatesInput, error) {
		if len(contents) < 2 {
			return duplicatesInput{}, fmt.Errorf("expected a candidate file and at least 1 pool file, got %d files", len(contents))
		}
		input := duplicatesInput{
			candidate: namedText{id: candidateID(args[0]), text: contents[0]},
		}
		for i, text := range contents[1:] {
			input.pool = append(input.pool, namedText{
				id:   candidateID(args[i+1]),
				text: text,
			})
		}
		return input, nil
	}

	logDetails := func(input duplicatesInput, cfg common.CommandConfig) {
		logger.Info("Starting duplicate scan",
			"candidate_id", input.candidate.id,
			"pool_size", len(input.pool),
			"output_format", cfg.OutputFormat)
	}

	duplicatesOperation := func(ctx context.Context, input duplicatesInput) (types.DuplicateReport, error) {
		for _, p := range input.pool {
			eng.ExtractCandidate(ctx, p.id, p.text, "")
		}
		fs := eng.ExtractCandidate(ctx, "", input.candidate.text, "")
		return eng.Duplicates(input.candidate.id, fs), nil
	}

	err = common.RunCommand(
		cmd.Context(),
		logger,
		duplicatesConfig,
		args,
		createInput,
		duplicatesOperation,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to scan for duplicates: %w", err)
	}
	logger.Info("Duplicate scan completed successfully")
	return nil
}
