package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mfenderov/mdmirror/internal/events"
	"github.com/mfenderov/mdmirror/internal/github"
	"github.com/mfenderov/mdmirror/internal/mirror"
	"github.com/mfenderov/mdmirror/internal/report"
	"github.com/mfenderov/mdmirror/internal/scraper"
	"github.com/mfenderov/mdmirror/internal/sitegen"
	"github.com/mfenderov/mdmirror/internal/state"
	"github.com/mfenderov/mdmirror/pkg/models"
)

var (
	scrapeOrg    string
	scrapeFilter string
	noReport     bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run an incremental scrape of the configured organisation",
	Long: `Scrape all Markdown files from every repository in the organisation.

Only files whose content changed since the last run are transferred; the
fingerprint cache in the state file decides what to skip.

Examples:
  # Scrape the configured organisation
  mdmirror scrape

  # Scrape a specific organisation
  mdmirror scrape --org acme

  # Only repositories matching a glob
  mdmirror scrape --org acme --filter 'docs-*'`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	scrapeCmd.Flags().StringVar(&scrapeOrg, "org", "", "organisation to scrape (overrides config)")
	scrapeCmd.Flags().StringVar(&scrapeFilter, "filter", "", "glob over repository names (overrides config)")
	scrapeCmd.Flags().BoolVar(&noReport, "no-report", false, "skip writing the scrape report")
}

func runScrape(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	if scrapeOrg != "" {
		cfg.GitHub.Org = scrapeOrg
	}
	if scrapeFilter != "" {
		cfg.Scrape.RepoFilter = scrapeFilter
	}
	if cfg.GitHub.Org == "" {
		return fmt.Errorf("no organisation configured: set github.org or pass --org")
	}

	slog.Debug("scrape command starting", "org", cfg.GitHub.Org, "filter", cfg.Scrape.RepoFilter)

	prev, err := state.Load(cfg.State.Path)
	if err != nil {
		slog.Warn("could not load previous state (treating as first run)", "path", cfg.State.Path, "error", err)
	}

	client, err := github.NewClient(cfg.GitHub.Token, cfg.GitHub.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	engine := scraper.New(client, scraper.Config{
		Org:        cfg.GitHub.Org,
		RepoFilter: cfg.Scrape.RepoFilter,
		Progress:   renderProgress,
	})

	files, store, err := engine.Run(ctx, prev)
	if err != nil && store == nil {
		return fmt.Errorf("scrape failed: %w", err)
	}
	if err != nil {
		// Cancelled mid-run: the partial store is still valid. Merge the
		// untouched repository buckets back in so only repositories the
		// run actually reached are replaced.
		store.AdoptMissing(prev)
		fmt.Println("\nScrape interrupted, saving partial progress")
	}

	if _, werr := mirror.Write(files, cfg.Output.Dir); werr != nil {
		return fmt.Errorf("failed to write mirror: %w", werr)
	}

	if cfg.Output.Prune && err == nil {
		removed, perr := mirror.Prune(store, cfg.Output.Dir)
		if perr != nil {
			slog.Warn("prune failed", "error", perr)
		} else if len(removed) > 0 {
			fmt.Printf("Pruned %d stale files\n", len(removed))
		}
	}

	if serr := state.Save(store, cfg.State.Path); serr != nil {
		return fmt.Errorf("failed to save state: %w", serr)
	}

	if !noReport && err == nil {
		if rerr := writeReport(cfg.GitHub.Org, cfg.Output.Dir, files, store); rerr != nil {
			slog.Warn("failed to write report", "error", rerr)
		}
	}

	if cfg.Site.GenerateNav && err == nil {
		if nerr := writeNav(cfg.Site.Name, cfg.Site.Description, cfg.Output.Dir, store); nerr != nil {
			slog.Warn("failed to write site nav", "error", nerr)
		}
	}

	return err
}

// renderProgress prints a simple linear progress line per event. Event
// ordering is deterministic because the engine is strictly sequential.
func renderProgress(e events.Event) {
	switch e.Phase {
	case events.PhaseListingRepos:
		fmt.Println("Listing repositories...")
	case events.PhaseWalkingTree:
		fmt.Printf("Walking tree: %s\n", e.Repo)
	case events.PhaseFetchingFiles:
		if e.Message != "" {
			fmt.Printf("  %s\n", e.Message)
		}
	case events.PhaseDone:
		fmt.Printf("\nDone: %d fetched, %d skipped, %d total\n", e.Fetched, e.Skipped, e.Total)
	case events.PhaseError:
		fmt.Printf("Error: %s\n", e.Message)
	}
}

func writeReport(org, dir string, files []models.ScrapedFile, store *state.Store) error {
	path := filepath.Join(dir, "_mirror_report.md")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	total := store.FileCount()
	return report.Write(f, report.Summary{
		Org:     org,
		Date:    time.Now(),
		Fetched: len(files),
		Skipped: total - len(files),
		Total:   total,
	}, files, store)
}

func writeNav(name, description, dir string, store *state.Store) error {
	f, err := os.Create(filepath.Join(dir, "mkdocs.yml"))
	if err != nil {
		return err
	}
	defer f.Close()

	return sitegen.WriteNav(f, sitegen.Site{Name: name, Description: description}, store, filepath.Base(dir))
}
