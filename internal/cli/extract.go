package cli

import (
	"context"
	"fmt"

	"talentrank/internal/common"
	"talentrank/internal/engine"
	"talentrank/internal/types"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract [candidate-file]",
	Short: "Extract the feature set of a candidate",
	Long: `Extract and display the normalized feature set of a candidate file:
recognized skills, years of experience, achievement signals, and the
embedding dimensionality. Useful for debugging why a candidate scored the
way it did.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		// Apply default format if not specified
		if extractConfig.OutputFormat == "" {
			extractConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(extractConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runExtract,
}

var extractConfig common.CommandConfig

func init() {
	extractCmd.Flags().StringVarP(&extractConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().StringVar(&extractConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	// Add completion for format flag
	_ = extractCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return []string{}, cobra.ShellCompDirectiveError
		}
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runExtract(cmd *cobra.Command, args []string) error {
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

	createInput := func(contents []string) (string, error) {
		if len(contents) != 1 {
			return "", fmt.Errorf("expected 1 file path, got %d", len(contents))
		}
		return contents[0], nil
	}

	logDetails := func(input string, cfg common.CommandConfig) {
		logger.Info("Starting feature extraction",
			"candidate_chars", len(input),
			"output_format", cfg.OutputFormat)
	}

	extractOperation := func(ctx context.Context, text string) (types.FeatureSet, error) {
		return eng.ExtractCandidate(ctx, "", text, ""), nil
	}

	err = common.RunCommand(
		cmd.Context(),
		logger,
		extractConfig,
		args,
		createInput,
		extractOperation,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to extract features: %w", err)
	}
	logger.Info("Feature extraction completed successfully")
	return nil
}
