package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/Aman-CERP/surveydash/internal/config"
	"github.com/Aman-CERP/surveydash/internal/logging"
	"github.com/Aman-CERP/surveydash/internal/metrics"
	"github.com/Aman-CERP/surveydash/internal/themes"
)

// CheckConfig reports whether the effective configuration loaded.
func (c *Checker) CheckConfig(cfg *config.Config, loadErr error) CheckResult {
	result := CheckResult{Name: "config", Required: true}

	if loadErr != nil || cfg == nil {
		result.Status = StatusFail
		result.Message = "configuration failed to load"
		if loadErr != nil {
			result.Details = loadErr.Error()
		}
		return result
	}

	result.Status = StatusPass
	result.Message = "OK"
	return result
}

// CheckThemes verifies the themes artifact exists and decodes. The server
// still starts without it, but every request then sees an empty dataset.
func (c *Checker) CheckThemes(path string) CheckResult {
	result := CheckResult{Name: "themes_artifact", Required: true, Details: path}

	data, info, err := readArtifact(path)
	if err != nil {
		result.Status = StatusFail
		result.Message = artifactMessage(err)
		return result
	}

	td, err := themes.Decode(data)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("corrupt: %v", err)
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d themes, %d quotes, modified %s",
		len(td.Themes), td.QuoteCount(), info.ModTime().UTC().Format(time.RFC3339))
	if len(td.Themes) == 0 {
		result.Status = StatusWarn
		result.Message = "artifact has no themes"
	}
	return result
}

// CheckMetrics verifies the optional metrics artifact.
func (c *Checker) CheckMetrics(path string) CheckResult {
	result := CheckResult{Name: "metrics_artifact", Details: path}

	data, _, err := readArtifact(path)
	if err != nil {
		result.Status = StatusWarn
		result.Message = artifactMessage(err) + "; /api/metrics serves an empty document"
		return result
	}
	if _, err := metrics.Decode(data); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("corrupt: %v", err)
		return result
	}

	result.Status = StatusPass
	result.Message = "OK"
	return result
}

// CheckCredential reports whether chat can reach a provider.
func (c *Checker) CheckCredential(cfg *config.Config) CheckResult {
	result := CheckResult{Name: "chat_credential"}

	if cfg.APIKey() == "" {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s is not set; chat is disabled", cfg.Chat.APIKeyEnv)
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s set (model %s)", cfg.Chat.APIKeyEnv, cfg.Chat.Model)
	return result
}

// CheckLogDir checks that the log directory can be created and written.
func (c *Checker) CheckLogDir() CheckResult {
	dir := c.logDir
	if dir == "" {
		dir = logging.DefaultLogDir()
	}
	result := CheckResult{Name: "log_directory", Required: true, Details: dir}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create: %v", err)
		return result
	}

	testFile := filepath.Join(dir, ".surveydash-preflight-test")
	f, err := os.Create(testFile)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("permission denied: %v", err)
		return result
	}
	_ = f.Close()
	_ = os.Remove(testFile)

	result.Status = StatusPass
	result.Message = "OK"
	return result
}

// CheckListenAddr warns when the configured address cannot be bound,
// usually because a server is already running.
func (c *Checker) CheckListenAddr(addr string) CheckResult {
	result := CheckResult{Name: "listen_address", Details: addr}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("cannot bind %s: %v", addr, err)
		return result
	}
	_ = ln.Close()

	result.Status = StatusPass
	result.Message = addr + " available"
	return result
}

func readArtifact(path string) ([]byte, fs.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return data, info, nil
}

func artifactMessage(err error) string {
	if errors.Is(err, fs.ErrNotExist) {
		return "not found"
	}
	return fmt.Sprintf("unreadable: %v", err)
}
