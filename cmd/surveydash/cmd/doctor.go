package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/surveydash/internal/config"
	surveyerrors "github.com/Aman-CERP/surveydash/internal/errors"
	"github.com/Aman-CERP/surveydash/internal/preflight"
)

func newDoctorCmd(root *rootOptions) *cobra.Command {
	var (
		jsonOutput bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the backend is ready to serve",
		Long: `Run readiness checks: configuration, themes and metrics artifacts,
chat credential, log directory and listen address.

Exits non-zero when a required check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, cfgErr := config.Load(root.dir)

			checker := preflight.New(
				preflight.WithOutput(cmd.OutOrStdout()),
				preflight.WithVerbose(verbose),
			)
			results := checker.RunAll(cmd.Context(), cfg, cfgErr)

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(map[string]any{
					"status": checker.SummaryStatus(results),
					"checks": results,
				}); err != nil {
					return err
				}
			} else {
				checker.PrintResults(results)
			}

			if checker.HasCriticalFailures(results) {
				return surveyerrors.New(surveyerrors.ErrCodeConfigInvalid, "required checks failed", nil).
					WithSuggestion("Fix the FAIL items above and run 'surveydash doctor' again")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show check details")

	return cmd
}
