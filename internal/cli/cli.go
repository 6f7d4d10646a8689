package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pathminer/pkg/buildinfo"
	"github.com/matzehuels/pathminer/pkg/cache"
	"github.com/matzehuels/pathminer/pkg/config"
	"github.com/matzehuels/pathminer/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "pathminer"

	// configEnv names the environment variable holding a default config path.
	configEnv = "PATHMINER_CONFIG"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	verbose    bool
	logFormat  string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Pathminer finds active subnetworks in interaction networks",
		Long: `Pathminer searches a gene/protein interaction network for maximal connected
subnetworks whose vertices are consistently differentially expressed, allowing
a bounded number of exception vertices (K) and case exceptions per dataset (L).`,
		Version:      buildinfo.Get().Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			if err := setLogFormat(c.Logger, c.logFormat); err != nil {
				return err
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "config file (.toml, .yaml); defaults to $"+configEnv)
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&c.logFormat, "log-format", "text", "log format: text, json, logfmt")

	root.AddCommand(c.solveCommand())
	root.AddCommand(c.contractCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.runsCommand())
	root.AddCommand(c.cacheCommand())

	return root
}

// =============================================================================
// Config
// =============================================================================

// loadConfig reads the config file named by --config or $PATHMINER_CONFIG,
// or returns the defaults when neither is set.
func (c *CLI) loadConfig() (*config.File, error) {
	path := c.configPath
	if path == "" {
		path = os.Getenv(configEnv)
	}
	if path == "" {
		return config.Default(), nil
	}
	c.Logger.Debug("loading config", "path", path)
	return config.Load(path)
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner whose cache follows the config file.
func (c *CLI) newRunner(ctx context.Context, f *config.File, noCache bool) (*pipeline.Runner, error) {
	cc, err := newCache(ctx, f.Cache, noCache)
	if err != nil {
		return nil, err
	}
	var keyer cache.Keyer
	if f.Cache.Prefix != "" {
		keyer = cache.NewScopedKeyer(nil, f.Cache.Prefix)
	}
	return pipeline.NewRunner(cc, keyer, c.Logger), nil
}

// newCache picks Redis, a cache directory, or no cache at all.
func newCache(ctx context.Context, cfg config.Cache, noCache bool) (cache.Cache, error) {
	if noCache || cfg.Disabled {
		return cache.NewNullCache(), nil
	}
	if cfg.Redis != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return rc, nil
	}
	dir := cfg.Dir
	if dir == "" {
		var err error
		if dir, err = cacheDir(); err != nil {
			return cache.NewNullCache(), nil
		}
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return fc, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/pathminer/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
