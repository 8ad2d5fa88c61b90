// Package github implements the remote directory client for the GitHub
// REST API: repository listing, Markdown tree walks and blob fetches.
// Pagination and rate-limit backoff are handled here so the scrape
// engine only ever sees a single success or a single terminal failure
// per operation.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	gogithub "github.com/google/go-github/v75/github"
	"golang.org/x/oauth2"

	"github.com/mfenderov/mdmirror/internal/markdown"
	"github.com/mfenderov/mdmirror/pkg/models"
)

const defaultAPIURL = "https://api.github.com"

// maxRetries bounds rate-limit retries per request; after that the
// call fails terminally and the engine applies its skip rules.
const maxRetries = 3

// Client talks to the GitHub (or GitHub Enterprise / mock) API.
type Client struct {
	gh *gogithub.Client
}

// NewClient creates a Client authenticated with a personal access token.
// An empty token gives an unauthenticated client (fine for public
// organisations, subject to much lower rate limits). Pass baseURL=""
// for the real GitHub API, or a custom URL for GHE or a test server.
func NewClient(token, baseURL string) (*Client, error) {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	c := gogithub.NewClient(httpClient)
	if baseURL != "" && baseURL != defaultAPIURL {
		u, err := url.Parse(baseURL + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
		}
		c.BaseURL = u
	}

	return &Client{gh: c}, nil
}

// ListRepositories returns every repository in the organisation,
// exhausting pagination before returning. The result is deduplicated by
// full name and keeps the API's ordering otherwise.
func (c *Client) ListRepositories(ctx context.Context, org string) ([]models.Repository, error) {
	opts := &gogithub.RepositoryListByOrgOptions{
		ListOptions: gogithub.ListOptions{PerPage: 100},
	}

	seen := make(map[string]bool)
	var repos []models.Repository

	for {
		var page []*gogithub.Repository
		var resp *gogithub.Response
		err := c.withRetry(ctx, func() error {
			var err error
			page, resp, err = c.gh.Repositories.ListByOrg(ctx, org, opts)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list repositories for %s: %w", org, err)
		}

		for _, r := range page {
			if seen[r.GetFullName()] {
				continue
			}
			seen[r.GetFullName()] = true
			repos = append(repos, models.Repository{
				Name:          r.GetName(),
				FullName:      r.GetFullName(),
				DefaultBranch: r.GetDefaultBranch(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return repos, nil
}

// ListMarkdownEntries walks the repository tree at branch recursively
// and returns the blob entries with a Markdown extension, in tree
// order. The boolean reports whether GitHub truncated the listing; the
// caller treats that as a soft warning and proceeds with what it got.
func (c *Client) ListMarkdownEntries(ctx context.Context, owner, repo, branch string) ([]models.TreeEntry, bool, error) {
	var tree *gogithub.Tree
	err := c.withRetry(ctx, func() error {
		var err error
		tree, _, err = c.gh.Git.GetTree(ctx, owner, repo, branch, true)
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to list tree for %s/%s@%s: %w", owner, repo, branch, err)
	}

	var entries []models.TreeEntry
	for _, e := range tree.Entries {
		if e.GetType() != "blob" || !markdown.IsMarkdownPath(e.GetPath()) {
			continue
		}
		entries = append(entries, models.TreeEntry{
			Path:        e.GetPath(),
			Fingerprint: e.GetSHA(),
		})
	}

	return entries, tree.GetTruncated(), nil
}

// FetchFileContent fetches one file from the repository's default
// branch and returns its decoded text. A path that resolves to a
// directory is a distinct error.
func (c *Client) FetchFileContent(ctx context.Context, owner, repo, path string) (string, error) {
	var file *gogithub.RepositoryContent
	var dir []*gogithub.RepositoryContent
	err := c.withRetry(ctx, func() error {
		var err error
		file, dir, _, err = c.gh.Repositories.GetContents(ctx, owner, repo, path, nil)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s/%s/%s: %w", owner, repo, path, err)
	}
	if file == nil {
		return "", fmt.Errorf("%s/%s/%s resolves to a directory (%d entries), not a file", owner, repo, path, len(dir))
	}

	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("failed to decode content of %s/%s/%s: %w", owner, repo, path, err)
	}
	return content, nil
}

// withRetry runs fn, retrying a bounded number of times when GitHub
// signals a primary or secondary rate limit. All other errors are
// terminal immediately.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		wait, retryable := retryDelay(err)
		if !retryable || attempt == maxRetries {
			return err
		}

		slog.Warn("rate limited, backing off", "wait", wait, "attempt", attempt+1)
		if sleepErr := sleep(ctx, wait); sleepErr != nil {
			return sleepErr
		}
	}
	return err
}

// retryDelay reports whether err is a rate-limit response and how long
// to wait before retrying.
func retryDelay(err error) (time.Duration, bool) {
	var rateErr *gogithub.RateLimitError
	if errors.As(err, &rateErr) {
		wait := time.Until(rateErr.Rate.Reset.Time)
		if wait < 0 {
			wait = 0
		}
		return wait, true
	}

	var abuseErr *gogithub.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return abuseErr.GetRetryAfter(), true
	}

	return 0, false
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
