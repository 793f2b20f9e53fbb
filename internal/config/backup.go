package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// MaxBackups is the number of config backups kept per file.
	MaxBackups = 3

	// BackupSuffix precedes the timestamp in backup file names.
	BackupSuffix = ".bak"

	backupTimeFormat = "20060102-150405.000"
)

// BackupFile copies path to a timestamped sibling and prunes old backups.
// Returns "" and nil when path does not exist.
func BackupFile(path string) (string, error) {
	if !fileExists(path) {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read config for backup: %w", err)
	}

	backupPath := fmt.Sprintf("%s%s.%s", path, BackupSuffix, time.Now().Format(backupTimeFormat))
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	// Pruning is best effort; the backup itself succeeded.
	_ = pruneBackups(path)

	return backupPath, nil
}

// ListBackups returns backups of path, newest first.
func ListBackups(path string) ([]string, error) {
	dir := filepath.Dir(path)
	prefix := filepath.Base(path) + BackupSuffix + "."

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list config directory: %w", err)
	}

	var backups []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			backups = append(backups, filepath.Join(dir, e.Name()))
		}
	}

	// Timestamps sort lexically.
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}

func pruneBackups(path string) error {
	backups, err := ListBackups(path)
	if err != nil {
		return err
	}
	if len(backups) <= MaxBackups {
		return nil
	}
	for _, b := range backups[MaxBackups:] {
		_ = os.Remove(b)
	}
	return nil
}
