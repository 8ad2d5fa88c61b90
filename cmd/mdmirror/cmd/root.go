package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mfenderov/mdmirror/internal/config"
)

var (
	cfgFile string
	verbose bool
	cfg     config.Config
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "mdmirror",
	Short: "mdmirror: an incremental GitHub organisation Markdown mirror",
	Long: `mdmirror mirrors all Markdown files from every repository in a GitHub
organisation into a local directory tree. A fingerprint cache persisted
between runs means only new or changed files are transferred.

Commands:
  scrape  Run an incremental scrape of the configured organisation
  status  Summarise the persisted fingerprint cache`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogger() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func initConfig() {
	// Start with defaults
	cfg = config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	}

	// Environment variable overrides
	// MDMIRROR_GITHUB_TOKEN -> github.token
	viper.SetEnvPrefix("MDMIRROR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Explicitly bind nested env vars
	viper.BindEnv("github.org", "MDMIRROR_GITHUB_ORG")
	viper.BindEnv("github.token", "MDMIRROR_GITHUB_TOKEN")
	viper.BindEnv("github.base_url", "MDMIRROR_GITHUB_BASE_URL")
	viper.BindEnv("scrape.repo_filter", "MDMIRROR_SCRAPE_REPO_FILTER")
	viper.BindEnv("output.dir", "MDMIRROR_OUTPUT_DIR")
	viper.BindEnv("output.prune", "MDMIRROR_OUTPUT_PRUNE")
	viper.BindEnv("state.path", "MDMIRROR_STATE_PATH")
	viper.BindEnv("site.name", "MDMIRROR_SITE_NAME")
	viper.BindEnv("site.generate_nav", "MDMIRROR_SITE_GENERATE_NAV")

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file error", "error", err)
		}
		// No config file - use defaults + env vars
	}

	// Unmarshal into struct (merges config file with defaults)
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}
}
