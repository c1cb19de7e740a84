// Package cli implements the fcrepo-core command-line tool: inspection
// and manual transaction control for a standalone OCFL storage root.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/muesli/coral"

	"github.com/fcrepo/ocfl-core/config"
	"github.com/fcrepo/ocfl-core/foi"
	"github.com/fcrepo/ocfl-core/fs/local"
	"github.com/fcrepo/ocfl-core/logging"
	"github.com/fcrepo/ocfl-core/osa/ocfl"
	"github.com/fcrepo/ocfl-core/session"
	"github.com/fcrepo/ocfl-core/sessionmgr"
)

var (
	cfgFile string
	cfg     *config.Config

	rootCmd = &coral.Command{
		Use:          "fcrepo-core",
		Short:        "Inspect and manage an OCFL storage root",
		Long:         "fcrepo-core operates a standalone OCFL storage root: inspect a resource's headers and versions, and drive transactions manually.",
		SilenceUsage: true,
	}
)

// Execute runs the CLI; it is the sole entry point called from main.
func Execute() {
	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "fcrepo-core.yaml", "path to configuration file")
	rootCmd.AddCommand(statusCmd, commitCmd, rollbackCmd)
}

func loadConfig() (*config.Config, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := config.Load(cfgFile)
	if err != nil {
		c = config.Default()
	}
	cfg = c
	return cfg, nil
}

// newManager wires a session manager from the active configuration,
// matching the backend selection in config.StorageConfig.
func newManager() (*sessionmgr.Manager, func(), error) {
	c, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if c.Storage.Backend != "local" {
		return nil, nil, fmt.Errorf("unsupported storage backend for the CLI: %q", c.Storage.Backend)
	}
	fsys, err := local.New(c.Storage.Root)
	if err != nil {
		return nil, nil, err
	}
	store := ocfl.New(fsys, "", ocfl.WithLogger(defaultLogger(c)))

	idx, err := foi.Open(c.Index.Path)
	if err != nil {
		return nil, nil, err
	}
	mode, err := c.CommitMode()
	if err != nil {
		idx.Close()
		return nil, nil, err
	}
	mgr := sessionmgr.New(store, idx, c.Session.StagingRoot,
		sessionmgr.WithOrphanTimeout(time.Duration(c.Session.OrphanSessionTimeout)),
		sessionmgr.WithLogger(defaultLogger(c)),
		sessionmgr.WithSessionOptions(
			session.WithDefaultCommitMode(mode),
			session.WithDigestAlgorithm(c.Storage.Digest),
			session.WithRollbackDrainTimeout(c.RollbackDrainTimeout()),
			session.WithLogger(defaultLogger(c)),
		),
	)
	cleanup := func() { idx.Close() }
	return mgr, cleanup, nil
}

func defaultLogger(c *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		level = slog.LevelInfo
	}
	logging.SetDefaultLevel(level)
	return logging.Default()
}
