package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppName is used for default state and config locations.
const AppName = "mdmirror"

// Config holds all application configuration.
type Config struct {
	GitHub GitHub `mapstructure:"github"`
	Scrape Scrape `mapstructure:"scrape"`
	Output Output `mapstructure:"output"`
	State  State  `mapstructure:"state"`
	Site   Site   `mapstructure:"site"`
}

// GitHub holds API access configuration.
type GitHub struct {
	Org     string `mapstructure:"org"`
	Token   string `mapstructure:"token"`
	BaseURL string `mapstructure:"base_url"` // override for GHE or a mock server
}

// Scrape holds scrape engine configuration.
type Scrape struct {
	RepoFilter string `mapstructure:"repo_filter"` // glob over repository short names
}

// Output holds local mirror configuration.
type Output struct {
	Dir   string `mapstructure:"dir"`
	Prune bool   `mapstructure:"prune"` // remove local files deleted upstream
}

// State holds fingerprint cache persistence configuration.
type State struct {
	Path string `mapstructure:"path"`
}

// Site holds metadata for the generated site navigation.
type Site struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	GenerateNav bool   `mapstructure:"generate_nav"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Output: Output{
			Dir:   "./docs",
			Prune: true,
		},
		State: State{
			Path: DefaultStatePath(),
		},
		Site: Site{
			Name:        "Documentation",
			GenerateNav: false,
		},
	}
}

// DefaultStatePath returns the XDG data-home location of the state file.
func DefaultStatePath() string {
	return filepath.Join(xdg.DataHome, AppName, "state.json")
}
