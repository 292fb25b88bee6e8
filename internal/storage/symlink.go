package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// SymlinkManager creates cross-reference symlinks into an output tree,
// rooted at the same output_directory as FileStorage.
type SymlinkManager struct {
	outputDirectory string
	log             *slog.Logger
}

// NewSymlinkManager builds a SymlinkManager rooted at outputDirectory.
func NewSymlinkManager(outputDirectory string, log *slog.Logger) *SymlinkManager {
	return &SymlinkManager{outputDirectory: outputDirectory, log: log}
}

// CreateSymlink links targetFile into outputDirectory/symlinkDirectory,
// under the same basename as targetFile, and returns the symlink's
// path. A pre-existing file or symlink at that path is replaced.
func (m *SymlinkManager) CreateSymlink(targetFile, symlinkDirectory string) (string, error) {
	symlinkDir := filepath.Join(m.outputDirectory, symlinkDirectory)
	if _, err := os.Stat(symlinkDir); os.IsNotExist(err) {
		if err := os.MkdirAll(symlinkDir, 0750); err != nil {
			return "", fmt.Errorf("creating symlink directory %s: %w", symlinkDir, err)
		}
	} else if err != nil {
		return "", fmt.Errorf("checking symlink directory %s: %w", symlinkDir, err)
	}

	filename := filepath.Base(targetFile)
	if filename == "." || filename == string(filepath.Separator) {
		return "", fmt.Errorf("target file %q has no usable filename", targetFile)
	}
	symlinkPath := filepath.Join(symlinkDir, filename)

	relativeTarget, err := calculateRelativePath(symlinkPath, targetFile)
	if err != nil {
		return "", fmt.Errorf("computing relative symlink target: %w", err)
	}

	// Best-effort removal of anything already at symlinkPath. This is
	// inherently racy against concurrent writers; a NotExist race is
	// not an error, since the end state (nothing there) matches.
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil && !os.IsNotExist(err) {
			if m.log != nil {
				m.log.Debug("could not remove existing symlink", "path", symlinkPath, "error", err)
			}
		}
	}

	if err := os.Symlink(relativeTarget, symlinkPath); err != nil {
		return "", fmt.Errorf("creating symlink %s -> %s: %w", symlinkPath, relativeTarget, err)
	}
	return symlinkPath, nil
}

// calculateRelativePath computes the relative path from the directory
// containing "from" to "to": both are made absolute, canonicalized
// best-effort, and passed to filepath.Rel. Starting from from's
// containing directory (not "from" itself) gives what a symlink
// stored at "from" needs, and the best-effort canonicalization keeps
// non-existent path components from making resolution fail.
func calculateRelativePath(from, to string) (string, error) {
	fromDir := filepath.Dir(from)

	fromAbs, err := filepath.Abs(fromDir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", fromDir, err)
	}
	toAbs, err := filepath.Abs(to)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", to, err)
	}

	fromCanonical := canonicalizeBestEffort(fromAbs)
	toCanonical := canonicalizeBestEffort(toAbs)

	rel, err := filepath.Rel(fromCanonical, toCanonical)
	if err != nil {
		return "", fmt.Errorf("computing relative path from %s to %s: %w", fromCanonical, toCanonical, err)
	}
	return rel, nil
}

// canonicalizeBestEffort resolves symlinks in path, falling back to
// the unresolved absolute path when the path (or some parent of it)
// does not exist yet.
func canonicalizeBestEffort(path string) string {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path
	}
	return resolved
}
