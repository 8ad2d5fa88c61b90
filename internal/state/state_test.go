package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mfenderov/mdmirror/pkg/models"
)

func TestMergeBucket_UnchangedFingerprintKeepsTimestamp(t *testing.T) {
	then := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	prev := Bucket{Files: map[string]FileEntry{
		"docs/intro.md": {Fingerprint: "sha1", LastFetched: then},
	}}
	entries := []models.TreeEntry{{Path: "docs/intro.md", Fingerprint: "sha1"}}

	bucket, toFetch := MergeBucket(prev, entries, now)

	if len(toFetch) != 0 {
		t.Fatalf("expected nothing to fetch, got %d entries", len(toFetch))
	}
	got := bucket.Files["docs/intro.md"]
	if got.Fingerprint != "sha1" {
		t.Errorf("Fingerprint = %q, want %q", got.Fingerprint, "sha1")
	}
	if !got.LastFetched.Equal(then) {
		t.Errorf("LastFetched = %v, want carried-forward %v", got.LastFetched, then)
	}
}

func TestMergeBucket_ChangedFingerprintRefetches(t *testing.T) {
	then := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	prev := Bucket{Files: map[string]FileEntry{
		"README.md": {Fingerprint: "sha1", LastFetched: then},
	}}
	entries := []models.TreeEntry{{Path: "README.md", Fingerprint: "sha2"}}

	bucket, toFetch := MergeBucket(prev, entries, now)

	if len(toFetch) != 1 || toFetch[0].Path != "README.md" {
		t.Fatalf("toFetch = %v, want [README.md]", toFetch)
	}
	got := bucket.Files["README.md"]
	if got.Fingerprint != "sha2" {
		t.Errorf("Fingerprint = %q, want %q", got.Fingerprint, "sha2")
	}
	if !got.LastFetched.Equal(now) {
		t.Errorf("LastFetched = %v, want refreshed %v", got.LastFetched, now)
	}
}

func TestMergeBucket_NewPathIsFetched(t *testing.T) {
	now := time.Now().UTC()

	bucket, toFetch := MergeBucket(Bucket{}, []models.TreeEntry{
		{Path: "CHANGELOG.md", Fingerprint: "abc"},
	}, now)

	if len(toFetch) != 1 {
		t.Fatalf("expected 1 entry to fetch, got %d", len(toFetch))
	}
	if _, ok := bucket.Files["CHANGELOG.md"]; !ok {
		t.Error("new path should be recorded in the bucket")
	}
}

func TestMergeBucket_AbsentPathsAreDropped(t *testing.T) {
	then := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	prev := Bucket{Files: map[string]FileEntry{
		"keep.md":   {Fingerprint: "sha1", LastFetched: then},
		"gone.md":   {Fingerprint: "sha2", LastFetched: then},
		"buried.md": {Fingerprint: "sha3", LastFetched: then},
	}}
	entries := []models.TreeEntry{{Path: "keep.md", Fingerprint: "sha1"}}

	bucket, _ := MergeBucket(prev, entries, time.Now().UTC())

	if len(bucket.Files) != 1 {
		t.Fatalf("bucket has %d entries, want 1", len(bucket.Files))
	}
	if _, ok := bucket.Files["keep.md"]; !ok {
		t.Error("keep.md should survive the merge")
	}
}

func TestMergeBucket_ZeroTimestampPromotedToNow(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	prev := Bucket{Files: map[string]FileEntry{
		"doc.md": {Fingerprint: "sha1"},
	}}
	entries := []models.TreeEntry{{Path: "doc.md", Fingerprint: "sha1"}}

	bucket, toFetch := MergeBucket(prev, entries, now)

	if len(toFetch) != 0 {
		t.Fatalf("unchanged fingerprint should not be refetched")
	}
	if !bucket.Files["doc.md"].LastFetched.Equal(now) {
		t.Errorf("zero LastFetched should be promoted to now, got %v", bucket.Files["doc.md"].LastFetched)
	}
}

func TestAdoptMissing_KeepsUntouchedBuckets(t *testing.T) {
	prev := New()
	prev.Repositories["acme/touched"] = Bucket{Files: map[string]FileEntry{
		"old.md": {Fingerprint: "stale"},
	}}
	prev.Repositories["acme/untouched"] = Bucket{Files: map[string]FileEntry{
		"doc.md": {Fingerprint: "sha9"},
	}}

	next := New()
	next.Repositories["acme/touched"] = Bucket{Files: map[string]FileEntry{
		"new.md": {Fingerprint: "fresh"},
	}}

	next.AdoptMissing(prev)

	if _, ok := next.Lookup("acme/untouched", "doc.md"); !ok {
		t.Error("untouched bucket should be carried over")
	}
	if _, ok := next.Lookup("acme/touched", "old.md"); ok {
		t.Error("scraped bucket must not be overwritten by the previous store")
	}
}

func TestStore_Lookup(t *testing.T) {
	s := New()
	s.Repositories["acme/docs"] = Bucket{Files: map[string]FileEntry{
		"README.md": {Fingerprint: "sha1"},
	}}

	if _, ok := s.Lookup("acme/docs", "README.md"); !ok {
		t.Error("expected hit for cached path")
	}
	if _, ok := s.Lookup("acme/docs", "missing.md"); ok {
		t.Error("expected miss for unknown path")
	}
	if _, ok := s.Lookup("acme/other", "README.md"); ok {
		t.Error("expected miss for unknown repository")
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	original := New()
	original.LastScrape = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	original.Repositories["acme/docs"] = Bucket{Files: map[string]FileEntry{
		"README.md": {Fingerprint: "sha1", LastFetched: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
	}}

	if err := Save(original, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !loaded.LastScrape.Equal(original.LastScrape) {
		t.Errorf("LastScrape = %v, want %v", loaded.LastScrape, original.LastScrape)
	}
	entry, ok := loaded.Lookup("acme/docs", "README.md")
	if !ok {
		t.Fatal("round-tripped store lost acme/docs README.md")
	}
	if entry.Fingerprint != "sha1" {
		t.Errorf("Fingerprint = %q, want %q", entry.Fingerprint, "sha1")
	}
}

func TestLoad_MissingFileReturnsEmptyStore(t *testing.T) {
	store, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("missing file should not be an error, got %v", err)
	}
	if store == nil || len(store.Repositories) != 0 {
		t.Errorf("expected empty store, got %+v", store)
	}
}

func TestLoad_MalformedFileReturnsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := Load(path)
	if err == nil {
		t.Error("malformed file should surface a diagnostic error")
	}
	if store == nil || len(store.Repositories) != 0 {
		t.Errorf("expected usable empty store despite parse failure, got %+v", store)
	}
}
