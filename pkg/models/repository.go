package models

// Repository describes one repository in the scraped organisation.
// Immutable for the duration of a single scrape.
type Repository struct {
	Name          string `json:"name"`           // short name, e.g. "docs"
	FullName      string `json:"full_name"`      // "owner/docs"
	DefaultBranch string `json:"default_branch"` // e.g. "main"
}

// TreeEntry is a single Markdown blob discovered in a repository tree.
// Directory entries never reach this type; the directory client filters
// them out along with non-Markdown paths.
type TreeEntry struct {
	Path        string `json:"path"`        // relative, forward-slash separated
	Fingerprint string `json:"fingerprint"` // content-addressed blob SHA
}

// ScrapedFile is one file that was actually fetched this round.
// Files skipped because their fingerprint was unchanged are never
// represented as a ScrapedFile.
type ScrapedFile struct {
	Repo        string `json:"repo"` // repository full name
	Path        string `json:"path"`
	Content     string `json:"content"` // decoded text
	Fingerprint string `json:"fingerprint"`
}
