// Package scraper implements the incremental scrape engine: it lists an
// organisation's repositories, walks each repository's Markdown tree,
// diffs discovered files against the previous fingerprint store and
// fetches only what changed.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/mfenderov/mdmirror/internal/events"
	"github.com/mfenderov/mdmirror/internal/state"
	"github.com/mfenderov/mdmirror/pkg/models"
)

// Directory is the remote directory client the engine consumes.
// Implementations own transport, authentication, pagination and
// rate-limit backoff; the engine only ever sees one success or one
// terminal failure per call.
type Directory interface {
	// ListRepositories returns the complete, deduplicated repository
	// list for the organisation, pagination already exhausted.
	ListRepositories(ctx context.Context, org string) ([]models.Repository, error)

	// ListMarkdownEntries returns the Markdown blob entries of the
	// repository tree at branch. The boolean reports a truncated
	// listing, which callers treat as a soft warning.
	ListMarkdownEntries(ctx context.Context, owner, repo, branch string) ([]models.TreeEntry, bool, error)

	// FetchFileContent returns the decoded text of one file.
	FetchFileContent(ctx context.Context, owner, repo, path string) (string, error)
}

// Config holds scrape engine configuration.
type Config struct {
	Org        string      // organisation to mirror
	RepoFilter string      // optional glob over repository short names
	Progress   events.Sink // optional progress sink
}

// Engine orchestrates one incremental scrape.
type Engine struct {
	dir Directory
	cfg Config
	now func() time.Time
}

// New creates an Engine using the given directory client.
func New(dir Directory, cfg Config) *Engine {
	return &Engine{dir: dir, cfg: cfg, now: time.Now}
}

// Run performs one scrape against the previous store and returns the
// files fetched this round plus the freshly built store.
//
// Per-repository and per-file failures degrade to warnings; only an
// inaccessible organisation is fatal. The previous store is read-only
// and may be nil (treated as a first-ever run). On cancellation Run
// returns whatever it accumulated so far along with the context error,
// since partially built stores are still valid to persist.
func (e *Engine) Run(ctx context.Context, prev *state.Store) ([]models.ScrapedFile, *state.Store, error) {
	if prev == nil {
		prev = state.New()
	}

	var filter glob.Glob
	if e.cfg.RepoFilter != "" {
		var err error
		filter, err = glob.Compile(e.cfg.RepoFilter)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid repository filter %q: %w", e.cfg.RepoFilter, err)
		}
	}

	e.cfg.Progress.Emit(events.Event{Phase: events.PhaseListingRepos})

	repos, err := e.dir.ListRepositories(ctx, e.cfg.Org)
	if err != nil {
		e.cfg.Progress.Emit(events.Event{Phase: events.PhaseError, Message: err.Error()})
		return nil, nil, fmt.Errorf("failed to list repositories: %w", err)
	}

	if filter != nil {
		kept := repos[:0]
		for _, r := range repos {
			if filter.Match(r.Name) {
				kept = append(kept, r)
			}
		}
		repos = kept
	}

	now := e.now()
	newStore := state.New()
	newStore.LastScrape = now

	var files []models.ScrapedFile
	var fetched, skipped, total int

	for _, repo := range repos {
		if ctx.Err() != nil {
			return files, newStore, ctx.Err()
		}

		e.cfg.Progress.Emit(events.Event{
			Phase:   events.PhaseWalkingTree,
			Repo:    repo.FullName,
			Fetched: fetched,
			Skipped: skipped,
			Total:   total,
		})

		owner, name := splitFullName(repo.FullName)
		entries, truncated, err := e.dir.ListMarkdownEntries(ctx, owner, name, repo.DefaultBranch)
		if err != nil {
			slog.Warn("skipping repository, tree listing failed", "repo", repo.FullName, "error", err)
			continue
		}
		if truncated {
			slog.Warn("tree listing truncated by remote, proceeding with partial entries", "repo", repo.FullName, "entries", len(entries))
		}

		total += len(entries)

		merged, toFetch := state.MergeBucket(prev.Repositories[repo.FullName], entries, now)

		fetchSet := make(map[string]bool, len(toFetch))
		for _, entry := range toFetch {
			fetchSet[entry.Path] = true
		}

		// The bucket is filled per entry as the loop progresses, so a
		// cancelled run never caches a fingerprint for a file it did not
		// get to: those entries stay absent and the next run fetches them.
		bucket := state.Bucket{Files: make(map[string]state.FileEntry, len(entries))}
		newStore.Repositories[repo.FullName] = bucket

		for _, entry := range entries {
			if ctx.Err() != nil {
				return files, newStore, ctx.Err()
			}

			bucket.Files[entry.Path] = merged.Files[entry.Path]

			if !fetchSet[entry.Path] {
				skipped++
				e.cfg.Progress.Emit(events.Event{
					Phase:   events.PhaseFetchingFiles,
					Repo:    repo.FullName,
					Fetched: fetched,
					Skipped: skipped,
					Total:   total,
				})
				continue
			}

			e.cfg.Progress.Emit(events.Event{
				Phase:   events.PhaseFetchingFiles,
				Repo:    repo.FullName,
				Fetched: fetched,
				Skipped: skipped,
				Total:   total,
				Message: fmt.Sprintf("fetching %s/%s", repo.FullName, entry.Path),
			})

			content, err := e.dir.FetchFileContent(ctx, owner, name, entry.Path)
			if err != nil {
				slog.Warn("skipping file, fetch failed", "repo", repo.FullName, "path", entry.Path, "error", err)
				continue
			}

			files = append(files, models.ScrapedFile{
				Repo:        repo.FullName,
				Path:        entry.Path,
				Content:     content,
				Fingerprint: entry.Fingerprint,
			})
			fetched++
		}
	}

	e.cfg.Progress.Emit(events.Event{
		Phase:   events.PhaseDone,
		Fetched: fetched,
		Skipped: skipped,
		Total:   total,
	})

	slog.Debug("scrape complete", "org", e.cfg.Org, "fetched", fetched, "skipped", skipped, "total", total)
	return files, newStore, nil
}

func splitFullName(fullName string) (owner, name string) {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok {
		return fullName, ""
	}
	return owner, name
}
