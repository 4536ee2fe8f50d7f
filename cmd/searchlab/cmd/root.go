// Package cmd provides the CLI commands for searchlab.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/searchlab-dev/searchlab/internal/config"
	"github.com/searchlab-dev/searchlab/internal/embed"
	"github.com/searchlab-dev/searchlab/internal/logging"
	"github.com/searchlab-dev/searchlab/internal/provider"
	"github.com/searchlab-dev/searchlab/internal/provider/local"
	"github.com/searchlab-dev/searchlab/internal/search"
	"github.com/searchlab-dev/searchlab/pkg/version"
)

// Persistent flags, applied on top of the loaded configuration.
var (
	cfgFile   string
	dataDir   string
	logLevel  string
	logFormat string

	rootConfig *config.Config
)

// NewRootCmd creates the root command for the searchlab CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "searchlab",
		Short: "Hybrid vector-search workbench",
		Long: `Searchlab drives an embedded vector-search backend: it seeds a sample
dataset, runs hybrid dense+sparse queries with weighted fusion and MMR
re-ranking, and evaluates the index against an exact baseline.

Everything runs locally and deterministically; no network, no models.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("searchlab version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to config file (default: XDG config dir)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Index directory (overrides config)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text, json")

	cmd.PersistentPreRunE = setupConfigAndLogging

	cmd.AddCommand(newSeedCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newEvalCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setupConfigAndLogging loads the configuration, applies flag overrides,
// and installs the default logger.
func setupConfigAndLogging(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg.Provider.Dir = dataDir
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetupDefault(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	rootConfig = cfg
	return nil
}

// openBackend opens the local provider configured by cfg.
func openBackend(cfg *config.Config) (*local.Local, error) {
	lcfg := local.Config{
		Dir:          cfg.Provider.Dir,
		Dimensions:   cfg.Index.Dimensions,
		M:            cfg.Index.M,
		EfSearch:     cfg.Index.EfSearch,
		DefaultLimit: cfg.Search.Limit,
		CacheSize:    cfg.Index.CacheSize,
	}
	return local.New(lcfg)
}

// newEngine wires the deterministic encoders and the backend into a hybrid
// search engine.
func newEngine(cfg *config.Config, backend provider.Provider) (*search.Engine, error) {
	ec := search.DefaultEngineConfig()
	ec.DefaultLimit = cfg.Search.Limit
	ec.MaxLimit = cfg.Search.MaxLimit
	ec.DefaultDenseWeight = cfg.Search.DenseWeight

	return search.NewEngine(
		embed.NewHashEncoder(cfg.Index.Dimensions),
		embed.NewTermEncoder(),
		backend,
		search.WithConfig(ec))
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
