package cmd

import (
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	surveyerrors "github.com/Aman-CERP/surveydash/internal/errors"
	"github.com/Aman-CERP/surveydash/internal/output"
)

func newThemesCmd(root *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "themes [id]",
		Short: "List themes or show one theme",
		Long: `Without an argument, list every theme with its size and preview quotes.
With a theme id, show the theme's description, segments and all quotes.

Examples:
  surveydash themes
  surveydash themes 3
  surveydash themes --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			a, err := newApp(root.dir, slog.Default())
			if err != nil {
				return err
			}
			out := output.New(cmd.OutOrStdout())

			if len(args) == 0 {
				ov := a.search.Overview()
				if format == formatJSON {
					return out.JSON(ov)
				}
				out.Overview(ov)
				return nil
			}

			id, err := strconv.Atoi(args[0])
			if err != nil {
				return surveyerrors.New(surveyerrors.ErrCodeInvalidThemeID, "theme id must be an integer", err).
					WithDetail("theme", args[0])
			}
			theme, err := a.search.Theme(id)
			if err != nil {
				return err
			}
			if format == formatJSON {
				return out.JSON(theme)
			}
			out.Theme(theme)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text, json")

	return cmd
}
