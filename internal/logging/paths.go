package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLogDir returns ~/.surveydash/logs, or a temp-dir equivalent when
// the home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".surveydash", "logs")
	}
	return filepath.Join(home, ".surveydash", "logs")
}

// DefaultLogPath returns the default server log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "server.log")
}

// FindLogFile returns explicit if it exists, otherwise the default log path.
func FindLogFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		return "", fmt.Errorf("log file not found: %s", explicit)
	}

	path := DefaultLogPath()
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("no log file found; run `surveydash serve` first.\nExpected at: %s", path)
}
