package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ge-entretec/debours/internal/application/port"
)

// LocalReceiptStore implements port.ReceiptStore on the local
// filesystem. Receipts are grouped in one folder per claim.
type LocalReceiptStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalReceiptStore creates a new receipt store rooted at baseDir
func NewLocalReceiptStore(baseDir string, logger *zap.Logger) port.ReceiptStore {
	return &LocalReceiptStore{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Store writes the receipt under <baseDir>/<claimID>/<filename> and
// returns its serving path
func (s *LocalReceiptStore) Store(ctx context.Context, claimID, filename string, content io.Reader) (string, error) {
	name := sanitizeFilename(filename)
	if name == "" {
		return "", fmt.Errorf("invalid receipt filename: %q", filename)
	}

	fullPath := filepath.Join(s.baseDir, claimID, name)
	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create receipt directory",
			zap.String("claim_id", claimID),
			zap.Error(err))
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		s.logger.Error("Failed to create receipt file",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, content)
	if err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug("Receipt stored",
		zap.String("claim_id", claimID),
		zap.String("filename", name),
		zap.Int64("size", written))

	return "/receipts/" + claimID + "/" + name, nil
}

// sanitizeFilename strips any path components from an uploaded name
func sanitizeFilename(filename string) string {
	name := filepath.Base(filepath.Clean(filename))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return ""
	}
	return name
}

// validatePath checks that the path stays within baseDir
func (s *LocalReceiptStore) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}
	return nil
}

// Verify interface compliance
var _ port.ReceiptStore = (*LocalReceiptStore)(nil)
