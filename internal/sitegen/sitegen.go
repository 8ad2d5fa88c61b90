// Package sitegen derives a MkDocs-style navigation config from the
// fingerprint store, so a static-site generator can be pointed straight
// at the mirrored tree.
package sitegen

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/mfenderov/mdmirror/internal/state"
)

// Site holds the metadata emitted alongside the navigation tree.
type Site struct {
	Name        string
	Description string
}

type navConfig struct {
	SiteName        string           `yaml:"site_name"`
	SiteDescription string           `yaml:"site_description,omitempty"`
	DocsDir         string           `yaml:"docs_dir"`
	Nav             []map[string]any `yaml:"nav"`
}

// WriteNav renders a mkdocs.yml navigation grouped by repository.
// Repositories and files are sorted so regenerating from the same store
// is byte-stable.
func WriteNav(w io.Writer, site Site, store *state.Store, docsDir string) error {
	cfg := navConfig{
		SiteName:        site.Name,
		SiteDescription: site.Description,
		DocsDir:         docsDir,
	}

	repos := make([]string, 0, len(store.Repositories))
	for repo := range store.Repositories {
		repos = append(repos, repo)
	}
	sort.Strings(repos)

	for _, repo := range repos {
		bucket := store.Repositories[repo]
		paths := make([]string, 0, len(bucket.Files))
		for path := range bucket.Files {
			paths = append(paths, path)
		}
		sort.Strings(paths)

		pages := make([]any, 0, len(paths))
		for _, path := range paths {
			pages = append(pages, repo+"/"+path)
		}
		cfg.Nav = append(cfg.Nav, map[string]any{repo: pages})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode nav config: %w", err)
	}
	return enc.Close()
}
