package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/shelfkeeper/internal/logging"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/config"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/repositories/repomanager"
)

// Seams for tests.
var (
	loadConfig           = config.LoadConfigFile
	openDB               = repomanager.OpenDB
	newRepositoryManager = repomanager.NewPostgresRepositoryManager
)

// commandContext lazily loads configuration and opens the database the
// first time a subcommand needs them.
type commandContext struct {
	configPath string

	cfg *config.Config
	db  *sql.DB
	rm  repomanager.RepositoryManager
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

func (c *commandContext) ensureStore(ctx context.Context) (*sql.DB, repomanager.RepositoryManager, error) {
	if c.db != nil {
		return c.db, c.rm, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := openDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}
	c.db, c.rm = db, newRepositoryManager()
	return c.db, c.rm, nil
}

func (c *commandContext) close() {
	if c.db != nil {
		_ = c.db.Close()
		c.db = nil
	}
}

func (c *commandContext) logger() logging.Logger {
	level := "info"
	if c.cfg != nil {
		level = c.cfg.LogLevel
	}
	return logging.NewJSONLogger(os.Stderr, level)
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "shelfctl",
		Short:         "shelfkeeper operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", "", "JSON configuration file path")

	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newUserAddCommand(ctx))
	rootCmd.AddCommand(newUserDelCommand(ctx))
	rootCmd.AddCommand(newSweepCommand(ctx))

	return rootCmd
}
