package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"offleaf/internal/logger"
)

const backupInfix = ".backup_"

// BackupManager keeps timestamped copies of files before they are rewritten.
// With a root set, backups of files under root mirror their relative
// directory inside backupDir, so equal base names never collide.
type BackupManager struct {
	root      string
	backupDir string
	now       func() time.Time
}

// NewBackupManager creates a BackupManager. If backupDir is empty, backups are
// created next to the original file.
func NewBackupManager(root, backupDir string) *BackupManager {
	return &BackupManager{root: root, backupDir: backupDir, now: time.Now}
}

// dirFor returns the directory holding backups of path.
func (m *BackupManager) dirFor(path string) string {
	if m.backupDir == "" {
		return filepath.Dir(path)
	}
	if m.root != "" {
		if rel, err := filepath.Rel(m.root, filepath.Dir(path)); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.Join(m.backupDir, rel)
		}
	}
	return m.backupDir
}

// CreateBackup copies path into the backup directory and returns the copy's
// path.
func (m *BackupManager) CreateBackup(path string) (string, error) {
	logger.Debug("creating backup", logger.String("path", path))

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf("file does not exist: %s", path)
	}

	dir := m.dirFor(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("failed to create backup directory", err)
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	timestamp := m.now().Format("20060102_150405.000000")
	backupPath := filepath.Join(dir, filepath.Base(path)+backupInfix+timestamp)

	if err := copyFile(path, backupPath); err != nil {
		logger.Error("failed to copy file", err)
		return "", fmt.Errorf("failed to copy file: %w", err)
	}

	logger.Debug("backup created", logger.String("backupPath", backupPath))
	return backupPath, nil
}

// Restore copies a backup over the original file.
func (m *BackupManager) Restore(backupPath string, originalPath string) error {
	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		return fmt.Errorf("backup file does not exist: %s", backupPath)
	}
	if err := copyFile(backupPath, originalPath); err != nil {
		logger.Error("failed to restore backup", err)
		return fmt.Errorf("failed to restore backup: %w", err)
	}
	logger.Info("file restored from backup", logger.String("path", originalPath))
	return nil
}

// ListBackups lists all backups for path, newest first.
func (m *BackupManager) ListBackups(path string) ([]string, error) {
	dir := m.dirFor(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	prefix := filepath.Base(path) + backupInfix
	var backups []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			backups = append(backups, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}

// CleanupBackups removes old backups, keeping only the most recent keepCount.
func (m *BackupManager) CleanupBackups(path string, keepCount int) error {
	backups, err := m.ListBackups(path)
	if err != nil {
		return err
	}

	removed := 0
	for i := keepCount; i < len(backups); i++ {
		if err := os.Remove(backups[i]); err != nil {
			logger.Warn("failed to remove backup", logger.Err(err), logger.String("path", backups[i]))
			continue
		}
		removed++
	}

	if removed > 0 {
		logger.Debug("old backups removed",
			logger.String("path", path),
			logger.Int("removed", removed))
	}
	return nil
}

// GetLatestBackup returns the most recent backup of path.
func (m *BackupManager) GetLatestBackup(path string) (string, error) {
	backups, err := m.ListBackups(path)
	if err != nil {
		return "", err
	}
	if len(backups) == 0 {
		return "", fmt.Errorf("no backups found for file: %s", path)
	}
	return backups[0], nil
}

// copyFile copies a file from src to dst
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	if err := destFile.Sync(); err != nil {
		return err
	}

	sourceInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.Chmod(dst, sourceInfo.Mode())
}
