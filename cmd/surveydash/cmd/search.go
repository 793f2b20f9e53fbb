package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	surveyerrors "github.com/Aman-CERP/surveydash/internal/errors"
	"github.com/Aman-CERP/surveydash/internal/output"
)

// Output formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
)

func validateFormat(format string) error {
	switch format {
	case formatText, formatJSON:
		return nil
	default:
		return surveyerrors.ValidationError("unknown output format: "+format, nil).
			WithSuggestion("Use --format text or --format json")
	}
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search respondent quotes",
		Long: `Search respondent quotes across all themes.

Quotes are ranked by keyword overlap with the query; theme labels and
descriptions count toward every quote in the theme.

Examples:
  surveydash search "waiting room"
  surveydash search parking --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, root, strings.Join(args, " "), format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, root *rootOptions, query, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(root.dir, slog.Default())
	if err != nil {
		return err
	}

	resp := a.search.Search(ctx, query)

	out := output.New(cmd.OutOrStdout())
	if format == formatJSON {
		return out.JSON(resp)
	}
	out.SearchResults(resp)
	return nil
}
