package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mfenderov/mdmirror/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarise the persisted fingerprint cache",
	Long: `Show what the state file knows about the mirrored organisation:
which repositories are tracked, how many files each holds, and when the
last scrape ran.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	store, err := state.Load(cfg.State.Path)
	if err != nil {
		fmt.Printf("State file unreadable (%v), nothing mirrored yet\n", err)
		return nil
	}

	if len(store.Repositories) == 0 {
		fmt.Println("No repositories mirrored yet. Run 'mdmirror scrape' first.")
		return nil
	}

	fmt.Printf("State file:  %s\n", cfg.State.Path)
	if !store.LastScrape.IsZero() {
		fmt.Printf("Last scrape: %s\n", store.LastScrape.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Printf("Files:       %d across %d repositories\n\n", store.FileCount(), len(store.Repositories))

	repos := make([]string, 0, len(store.Repositories))
	for repo := range store.Repositories {
		repos = append(repos, repo)
	}
	sort.Strings(repos)

	for _, repo := range repos {
		fmt.Printf("  %-40s %d files\n", repo, len(store.Repositories[repo].Files))
	}

	return nil
}
