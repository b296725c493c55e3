package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"talentrank/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	// Register default formatters
	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "RankOutput", &RankTextFormatter{})
	registry.RegisterFormatter("markdown", "RankOutput", &RankMarkdownFormatter{})
	registry.RegisterFormatter("text", "MatchResult", &MatchTextFormatter{})
	registry.RegisterFormatter("markdown", "MatchResult", &MatchMarkdownFormatter{})
	registry.RegisterFormatter("text", "DuplicateReport", &DuplicateTextFormatter{})
	registry.RegisterFormatter("markdown", "DuplicateReport", &DuplicateMarkdownFormatter{})
	registry.RegisterFormatter("text", "FeatureSet", &FeatureSetTextFormatter{})
	registry.RegisterFormatter("markdown", "FeatureSet", &FeatureSetMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	// Try specific formatter first
	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.RankOutput:
		return "RankOutput"
	case types.MatchResult:
		return "MatchResult"
	case types.DuplicateReport:
		return "DuplicateReport"
	case types.FeatureSet:
		return "FeatureSet"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// RankTextFormatter handles text formatting for ranking results
type RankTextFormatter struct{}

func (rtf *RankTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.RankOutput)
	if !ok {
		return "", fmt.Errorf("expected RankOutput, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== RANKING ===\n")
	if result.Job.Title != "" {
		output.WriteString(fmt.Sprintf("Job: %s\n", result.Job.Title))
	}
	output.WriteString(fmt.Sprintf("Candidates ranked: %d\n\n", len(result.Ranked)))

	for i, rc := range result.Ranked {
		output.WriteString(fmt.Sprintf("%d. %s  %d/100 (%s, via %s)\n",
			i+1, rc.CandidateID, rc.Result.Score, rc.Result.Recommendation, rc.Result.Source))
		writeBullets(&output, "   + ", rc.Result.Strengths)
		writeBullets(&output, "   - ", rc.Result.Gaps)
	}

	if len(result.Excluded) > 0 {
		output.WriteString("\nExcluded (resolution failed):\n")
		for _, id := range result.Excluded {
			output.WriteString(fmt.Sprintf("  %s\n", id))
		}
	}

	return output.String(), nil
}

func (rtf *RankTextFormatter) SupportedType() string {
	return "RankOutput"
}

// RankMarkdownFormatter handles markdown formatting for ranking results
type RankMarkdownFormatter struct{}

func (rmf *RankMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.RankOutput)
	if !ok {
		return "", fmt.Errorf("expected RankOutput, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Ranking\n\n")
	if result.Job.Title != "" {
		output.WriteString(fmt.Sprintf("**Job:** %s\n\n", result.Job.Title))
	}

	output.WriteString("| # | Candidate | Score | Recommendation | Source |\n")
	output.WriteString("|---|-----------|-------|----------------|--------|\n")
	for i, rc := range result.Ranked {
		output.WriteString(fmt.Sprintf("| %d | %s | %d | %s | %s |\n",
			i+1, rc.CandidateID, rc.Result.Score, rc.Result.Recommendation, rc.Result.Source))
	}
	output.WriteString("\n")

	for i, rc := range result.Ranked {
		output.WriteString(fmt.Sprintf("## %d. %s\n\n", i+1, rc.CandidateID))
		if len(rc.Result.Strengths) > 0 {
			output.WriteString("**Strengths:**\n\n")
			for _, s := range rc.Result.Strengths {
				output.WriteString(fmt.Sprintf("- %s\n", s))
			}
			output.WriteString("\n")
		}
		if len(rc.Result.Gaps) > 0 {
			output.WriteString("**Gaps:**\n\n")
			for _, g := range rc.Result.Gaps {
				output.WriteString(fmt.Sprintf("- %s\n", g))
			}
			output.WriteString("\n")
		}
	}

	if len(result.Excluded) > 0 {
		output.WriteString("## Excluded\n\n")
		for _, id := range result.Excluded {
			output.WriteString(fmt.Sprintf("- %s\n", id))
		}
	}

	return output.String(), nil
}

func (rmf *RankMarkdownFormatter) SupportedType() string {
	return "RankOutput"
}

// MatchTextFormatter handles text formatting for single match results
type MatchTextFormatter struct{}

func (mtf *MatchTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.MatchResult)
	if !ok {
		return "", fmt.Errorf("expected MatchResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== MATCH RESULT ===\n")
	output.WriteString(fmt.Sprintf("Score: %d/100\n", result.Score))
	output.WriteString(fmt.Sprintf("Recommendation: %s\n", result.Recommendation))
	output.WriteString(fmt.Sprintf("Source: %s\n\n", result.Source))

	output.WriteString("Strengths:\n")
	writeBullets(&output, "  + ", result.Strengths)
	output.WriteString("\nGaps:\n")
	writeBullets(&output, "  - ", result.Gaps)

	return output.String(), nil
}

func (mtf *MatchTextFormatter) SupportedType() string {
	return "MatchResult"
}

// MatchMarkdownFormatter handles markdown formatting for single match results
type MatchMarkdownFormatter struct{}

func (mmf *MatchMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.MatchResult)
	if !ok {
		return "", fmt.Errorf("expected MatchResult, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Match Result\n\n")
	output.WriteString(fmt.Sprintf("**Score:** %d/100  \n", result.Score))
	output.WriteString(fmt.Sprintf("**Recommendation:** %s  \n", result.Recommendation))
	output.WriteString(fmt.Sprintf("**Source:** %s\n\n", result.Source))

	if len(result.Strengths) > 0 {
		output.WriteString("## Strengths\n\n")
		for _, s := range result.Strengths {
			output.WriteString(fmt.Sprintf("- %s\n", s))
		}
		output.WriteString("\n")
	}
	if len(result.Gaps) > 0 {
		output.WriteString("## Gaps\n\n")
		for _, g := range result.Gaps {
			output.WriteString(fmt.Sprintf("- %s\n", g))
		}
	}

	return output.String(), nil
}

func (mmf *MatchMarkdownFormatter) SupportedType() string {
	return "MatchResult"
}

// DuplicateTextFormatter handles text formatting for duplicate reports
type DuplicateTextFormatter struct{}

func (dtf *DuplicateTextFormatter) Format(data any) (string, error) {
	report, ok := data.(types.DuplicateReport)
	if !ok {
		return "", fmt.Errorf("expected DuplicateReport, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== DUPLICATE SCAN ===\n")
	output.WriteString(fmt.Sprintf("Candidate: %s\n", report.CandidateID))
	output.WriteString(fmt.Sprintf("Threshold: %.2f\n\n", report.Threshold))

	if len(report.Duplicates) == 0 {
		output.WriteString("No duplicates found.\n")
		return output.String(), nil
	}

	for _, d := range report.Duplicates {
		output.WriteString(fmt.Sprintf("  %s  similarity=%.3f  matched=%s\n",
			d.MatchedID, d.Similarity, strings.Join(d.MatchedFields, ",")))
	}

	return output.String(), nil
}

func (dtf *DuplicateTextFormatter) SupportedType() string {
	return "DuplicateReport"
}

// DuplicateMarkdownFormatter handles markdown formatting for duplicate reports
type DuplicateMarkdownFormatter struct{}

func (dmf *DuplicateMarkdownFormatter) Format(data any) (string, error) {
	report, ok := data.(types.DuplicateReport)
	if !ok {
		return "", fmt.Errorf("expected DuplicateReport, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Duplicate Scan\n\n")
	output.WriteString(fmt.Sprintf("**Candidate:** %s  \n", report.CandidateID))
	output.WriteString(fmt.Sprintf("**Threshold:** %.2f\n\n", report.Threshold))

	if len(report.Duplicates) == 0 {
		output.WriteString("No duplicates found.\n")
		return output.String(), nil
	}

	output.WriteString("| Matched | Similarity | Fields |\n")
	output.WriteString("|---------|------------|--------|\n")
	for _, d := range report.Duplicates {
		output.WriteString(fmt.Sprintf("| %s | %.3f | %s |\n",
			d.MatchedID, d.Similarity, strings.Join(d.MatchedFields, ", ")))
	}

	return output.String(), nil
}

func (dmf *DuplicateMarkdownFormatter) SupportedType() string {
	return "DuplicateReport"
}

// FeatureSetTextFormatter handles text formatting for extracted feature sets
type FeatureSetTextFormatter struct{}

func (ftf *FeatureSetTextFormatter) Format(data any) (string, error) {
	fs, ok := data.(types.FeatureSet)
	if !ok {
		return "", fmt.Errorf("expected FeatureSet, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== EXTRACTED FEATURES ===\n")
	output.WriteString(fmt.Sprintf("Skills (%d): %s\n", len(fs.Skills), strings.Join(fs.Skills, ", ")))
	output.WriteString(fmt.Sprintf("Experience: %.1f years\n", fs.ExperienceYears))
	output.WriteString(fmt.Sprintf("Achievement signals: %d\n", fs.AchievementSignals))
	output.WriteString(fmt.Sprintf("Embedding: %d dimensions\n", len(fs.Embedding)))
	if fs.Email != "" {
		output.WriteString(fmt.Sprintf("Email: %s\n", fs.Email))
	}
	output.WriteString(fmt.Sprintf("Text hash: %s\n", fs.RawTextHash))

	return output.String(), nil
}

func (ftf *FeatureSetTextFormatter) SupportedType() string {
	return "FeatureSet"
}

// FeatureSetMarkdownFormatter handles markdown formatting for extracted feature sets
type FeatureSetMarkdownFormatter struct{}

func (fmf *FeatureSetMarkdownFormatter) Format(data any) (string, error) {
	fs, ok := data.(types.FeatureSet)
	if !ok {
		return "", fmt.Errorf("expected FeatureSet, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Extracted Features\n\n")
	output.WriteString(fmt.Sprintf("**Experience:** %.1f years  \n", fs.ExperienceYears))
	output.WriteString(fmt.Sprintf("**Achievement signals:** %d  \n", fs.AchievementSignals))
	output.WriteString(fmt.Sprintf("**Embedding dimensions:** %d  \n", len(fs.Embedding)))
	output.WriteString(fmt.Sprintf("**Text hash:** `%s`\n\n", fs.RawTextHash))

	output.WriteString("## Skills\n\n")
	for _, s := range fs.Skills {
		output.WriteString(fmt.Sprintf("- %s\n", s))
	}

	return output.String(), nil
}

func (fmf *FeatureSetMarkdownFormatter) SupportedType() string {
	return "FeatureSet"
}

func writeBullets(output *strings.Builder, prefix string, items []string) {
	for _, item := range items {
		output.WriteString(prefix)
		output.WriteString(item)
		output.WriteString("\n")
	}
}

// GlobalRegistry is the default formatter registry instance
var GlobalRegistry = NewFormatterRegistry()
