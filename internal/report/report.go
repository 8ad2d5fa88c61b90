// Package report renders a human-readable Markdown summary of one
// scrape run, suitable for dropping next to the mirrored tree.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/mfenderov/mdmirror/internal/state"
	"github.com/mfenderov/mdmirror/pkg/models"
)

// Summary describes the outcome of one scrape run.
type Summary struct {
	Org     string
	Date    time.Time
	Fetched int
	Skipped int
	Total   int
}

// Write renders the run summary as Markdown.
func Write(w io.Writer, summary Summary, files []models.ScrapedFile, store *state.Store) error {
	md := markdown.NewMarkdown(w)

	md.H1("Mirror Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Organisation", "`" + summary.Org + "`"},
			{"Scrape Date", summary.Date.Format("2006-01-02 15:04:05 MST")},
			{"Files Fetched", strconv.Itoa(summary.Fetched)},
			{"Files Skipped", strconv.Itoa(summary.Skipped)},
			{"Files Tracked", strconv.Itoa(summary.Total)},
		},
	})
	md.PlainText("")

	md.H2("Repositories")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Repository", "Cached Files", "Fetched This Run"},
		Rows:   repoRows(files, store),
	})

	if len(files) > 0 {
		md.PlainText("")
		md.H2("Fetched Files")
		md.PlainText("")
		items := make([]string, 0, len(files))
		for _, f := range files {
			items = append(items, fmt.Sprintf("`%s/%s`", f.Repo, f.Path))
		}
		md.BulletList(items...)
	}

	return md.Build()
}

func repoRows(files []models.ScrapedFile, store *state.Store) [][]string {
	fetchedPerRepo := make(map[string]int)
	for _, f := range files {
		fetchedPerRepo[f.Repo]++
	}

	repos := make([]string, 0, len(store.Repositories))
	for repo := range store.Repositories {
		repos = append(repos, repo)
	}
	sort.Strings(repos)

	rows := make([][]string, 0, len(repos))
	for _, repo := range repos {
		rows = append(rows, []string{
			"`" + repo + "`",
			strconv.Itoa(len(store.Repositories[repo].Files)),
			strconv.Itoa(fetchedPerRepo[repo]),
		})
	}
	return rows
}
