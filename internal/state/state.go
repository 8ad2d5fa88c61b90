package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mfenderov/mdmirror/pkg/models"
)

// FileEntry records what we know about one remote file.
type FileEntry struct {
	Fingerprint string    `json:"fingerprint"`  // blob SHA as reported by the tree walk
	LastFetched time.Time `json:"last_fetched"` // last time the content actually changed
}

// Bucket holds the cache entries for a single repository, keyed by path.
type Bucket struct {
	Files map[string]FileEntry `json:"files"`
}

// Store is the fingerprint cache persisted between scrapes.
// The engine reads the previous store and builds a fresh one; it never
// mutates a store in place, so the caller can keep the old one around
// until it decides to persist the new one.
type Store struct {
	Repositories map[string]Bucket `json:"repositories"` // keyed by repo full name
	LastScrape   time.Time         `json:"last_scrape"`
}

// New returns an empty store.
func New() *Store {
	return &Store{Repositories: make(map[string]Bucket)}
}

// Lookup returns the cached entry for repo/path, if any.
func (s *Store) Lookup(repo, path string) (FileEntry, bool) {
	bucket, ok := s.Repositories[repo]
	if !ok {
		return FileEntry{}, false
	}
	entry, ok := bucket.Files[path]
	return entry, ok
}

// FileCount returns the total number of cached entries across all repositories.
func (s *Store) FileCount() int {
	n := 0
	for _, bucket := range s.Repositories {
		n += len(bucket.Files)
	}
	return n
}

// MergeBucket applies the incremental diff rule for one repository.
//
// The returned bucket contains exactly the paths present in entries:
// paths cached previously but absent from the current tree walk are
// dropped. An entry whose fingerprint matches the previous round keeps
// its old LastFetched timestamp (a zero value is promoted to now);
// everything else is stamped with now and returned in toFetch.
func MergeBucket(prev Bucket, entries []models.TreeEntry, now time.Time) (Bucket, []models.TreeEntry) {
	bucket := Bucket{Files: make(map[string]FileEntry, len(entries))}
	var toFetch []models.TreeEntry

	for _, entry := range entries {
		old, ok := prev.Files[entry.Path]
		if ok && old.Fingerprint == entry.Fingerprint {
			fetched := old.LastFetched
			if fetched.IsZero() {
				fetched = now
			}
			bucket.Files[entry.Path] = FileEntry{Fingerprint: entry.Fingerprint, LastFetched: fetched}
			continue
		}

		bucket.Files[entry.Path] = FileEntry{Fingerprint: entry.Fingerprint, LastFetched: now}
		toFetch = append(toFetch, entry)
	}

	return bucket, toFetch
}

// AdoptMissing copies repository buckets present in prev but absent
// from s into s. Callers use this after an interrupted scrape so
// repositories the run never reached keep their previous cache instead
// of being refetched wholesale next time. A completed scrape must NOT
// do this: absence then means the repository left the organisation.
func (s *Store) AdoptMissing(prev *Store) {
	for repo, bucket := range prev.Repositories {
		if _, ok := s.Repositories[repo]; !ok {
			s.Repositories[repo] = bucket
		}
	}
}

// Load reads a store from path.
//
// A missing or malformed file is not fatal: Load always returns a usable
// (possibly empty) store, and the error is purely diagnostic so the
// caller can log why the cache was reset.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return New(), fmt.Errorf("failed to read state file: %w", err)
	}

	var store Store
	if err := json.Unmarshal(data, &store); err != nil {
		return New(), fmt.Errorf("failed to parse state file: %w", err)
	}
	if store.Repositories == nil {
		store.Repositories = make(map[string]Bucket)
	}
	return &store, nil
}

// Save writes the store to path, creating parent directories as needed.
func Save(store *Store, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}
