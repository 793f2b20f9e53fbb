// Package preflight provides readiness checks for a surveydash deployment.
//
// The package validates:
//   - Configuration validity
//   - The themes artifact (present and decodable)
//   - The metrics artifact (optional)
//   - The chat provider credential (optional)
//   - Write permissions in the log directory
//   - Availability of the listen address
//
// A config that failed to load is passed alongside its error so the
// remaining checks can still report:
//
//	cfg, err := config.Load(dir)
//	checker := preflight.New()
//	results := checker.RunAll(ctx, cfg, err)
//	if checker.HasCriticalFailures(results) {
//	    return errRequiredChecks
//	}
package preflight
