package github

import (
	"context"
	"fmt"
	"sync"

	"github.com/mfenderov/mdmirror/pkg/models"
)

// InMem is an in-memory directory client for unit tests. It implements
// the same contract as Client and supports failure injection per
// repository and per file.
type InMem struct {
	mu        sync.Mutex
	org       string
	repos     []models.Repository
	files     map[string][]memFile // keyed by repo full name, ordered
	failTree  map[string]bool      // repo full names whose tree listing fails
	failFetch map[string]bool      // "fullName/path" keys whose fetch fails
	truncated map[string]bool      // repo full names whose tree listing is truncated
}

type memFile struct {
	path        string
	fingerprint string
	content     string
}

// NewInMem creates an empty in-memory client serving the given organisation.
func NewInMem(org string) *InMem {
	return &InMem{
		org:       org,
		files:     make(map[string][]memFile),
		failTree:  make(map[string]bool),
		failFetch: make(map[string]bool),
		truncated: make(map[string]bool),
	}
}

// AddRepo registers a repository in the organisation.
func (m *InMem) AddRepo(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repos = append(m.repos, models.Repository{
		Name:          name,
		FullName:      m.org + "/" + name,
		DefaultBranch: "main",
	})
}

// SetFile seeds (or replaces) a file in the named repository.
func (m *InMem) SetFile(repo, path, fingerprint, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	full := m.org + "/" + repo
	for i, f := range m.files[full] {
		if f.path == path {
			m.files[full][i] = memFile{path: path, fingerprint: fingerprint, content: content}
			return
		}
	}
	m.files[full] = append(m.files[full], memFile{path: path, fingerprint: fingerprint, content: content})
}

// RemoveFile drops a file from the named repository.
func (m *InMem) RemoveFile(repo, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	full := m.org + "/" + repo
	files := m.files[full]
	for i, f := range files {
		if f.path == path {
			m.files[full] = append(files[:i:i], files[i+1:]...)
			return
		}
	}
}

// FailTreeListing makes ListMarkdownEntries fail for the named repository.
func (m *InMem) FailTreeListing(repo string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failTree[m.org+"/"+repo] = true
}

// FailFetch makes FetchFileContent fail for one file.
func (m *InMem) FailFetch(repo, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFetch[m.org+"/"+repo+"/"+path] = true
}

// MarkTruncated makes ListMarkdownEntries report a truncated listing.
func (m *InMem) MarkTruncated(repo string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.truncated[m.org+"/"+repo] = true
}

// ListRepositories returns the seeded repositories in insertion order.
func (m *InMem) ListRepositories(_ context.Context, org string) ([]models.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if org != m.org {
		return nil, fmt.Errorf("organisation not found: %s", org)
	}
	out := make([]models.Repository, len(m.repos))
	copy(out, m.repos)
	return out, nil
}

// ListMarkdownEntries returns the seeded files in insertion order.
func (m *InMem) ListMarkdownEntries(_ context.Context, owner, repo, _ string) ([]models.TreeEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	full := owner + "/" + repo
	if m.failTree[full] {
		return nil, false, fmt.Errorf("tree listing failed for %s", full)
	}
	var entries []models.TreeEntry
	for _, f := range m.files[full] {
		entries = append(entries, models.TreeEntry{Path: f.path, Fingerprint: f.fingerprint})
	}
	return entries, m.truncated[full], nil
}

// FetchFileContent returns the seeded content for one file.
func (m *InMem) FetchFileContent(_ context.Context, owner, repo, path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	full := owner + "/" + repo
	if m.failFetch[full+"/"+path] {
		return "", fmt.Errorf("fetch failed for %s/%s", full, path)
	}
	for _, f := range m.files[full] {
		if f.path == path {
			return f.content, nil
		}
	}
	return "", fmt.Errorf("file not found: %s/%s", full, path)
}
