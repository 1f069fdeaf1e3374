package source

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/image-ocr-batch/constants"
	"github.com/joseph-ayodele/image-ocr-batch/internal/common"
)

type DirStats struct {
	Scanned uint32
	Matched uint32
	Skipped uint32
}

// ListDirectory walks root and returns every image file with an allowed
// extension, sorted by path. Hidden files and directories are skipped when
// skipHidden is set. Unreadable entries are counted and passed over.
func ListDirectory(root string, skipHidden bool) ([]string, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, common.Fatal("source directory is required", common.ErrInvalidInput)
	}

	var paths []string
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			stats.Skipped++
			return nil // continue walking
		}
		if path != root && skipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			stats.Skipped++
			return nil
		}
		if d.IsDir() {
			return nil
		}
		stats.Scanned++
		if !constants.IsAllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, stats, common.Fatal("source directory", fmt.Errorf("%w: %s", common.ErrNotFound, root))
		}
		return nil, stats, common.Fatal("walk source directory", err)
	}

	sort.Strings(paths)
	return paths, stats, nil
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
