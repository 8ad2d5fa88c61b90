// Package mirror maintains the on-disk Markdown tree, grouped by
// repository full name under a single output directory.
package mirror

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mfenderov/mdmirror/internal/markdown"
	"github.com/mfenderov/mdmirror/internal/state"
	"github.com/mfenderov/mdmirror/pkg/models"
)

// Write persists the fetched files under dir as dir/<owner>/<repo>/<path>.
// Returns the number of files written; individual write failures are
// logged and skipped so one bad path cannot sink the whole mirror.
func Write(files []models.ScrapedFile, dir string) (int, error) {
	if dir == "" {
		return 0, fmt.Errorf("output directory is required")
	}

	written := 0
	for _, file := range files {
		dest := filepath.Join(dir, filepath.FromSlash(file.Repo), filepath.FromSlash(file.Path))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			slog.Warn("failed to create directory", "path", dest, "error", err)
			continue
		}
		if err := os.WriteFile(dest, []byte(file.Content), 0o644); err != nil {
			slog.Warn("failed to write file", "path", dest, "error", err)
			continue
		}
		written++
	}

	slog.Debug("mirror updated", "dir", dir, "written", written)
	return written, nil
}

// Prune removes Markdown files under dir that are no longer present in
// the store, mirroring the store's implicit deletion semantics on disk.
// Non-Markdown files are never touched. Returns the removed paths.
func Prune(store *state.Store, dir string) ([]string, error) {
	var removed []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !markdown.IsMarkdownPath(path) {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		repo, filePath, ok := splitMirrorPath(filepath.ToSlash(rel))
		if !ok {
			return nil
		}

		if _, cached := store.Lookup(repo, filePath); cached {
			return nil
		}

		if err := os.Remove(path); err != nil {
			slog.Warn("failed to prune file", "path", path, "error", err)
			return nil
		}
		removed = append(removed, rel)
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return removed, fmt.Errorf("failed to prune mirror: %w", err)
	}

	if len(removed) > 0 {
		slog.Debug("pruned stale files", "dir", dir, "count", len(removed))
	}
	return removed, nil
}

// splitMirrorPath splits "owner/repo/path/to/file.md" into the
// repository full name and the in-repo path.
func splitMirrorPath(rel string) (repo, path string, ok bool) {
	parts := strings.SplitN(rel, "/", 3)
	if len(parts) < 3 {
		return "", "", false
	}
	return parts[0] + "/" + parts[1], parts[2], true
}
