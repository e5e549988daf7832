package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizadapt/internal/config"
	"github.com/abhisek/quizadapt/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "quizadapt",
	Short:         "Adaptive quiz engine",
	Long:          "quizadapt selects the next question for a learner from ability, concept mastery and per-template bandit statistics, generating questions with an LLM when the cache runs dry.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file (default ./quizadapt.yaml)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path or DSN (overrides store.dsn)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(practiceCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config named by --config and applies --db.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Store.DSN = db
	}
	return cfg, nil
}

// openStore opens the configured database. An empty sqlite DSN resolves
// to the default data path.
func openStore(cmd *cobra.Command, cfg *config.Config) (*store.Store, error) {
	dsn := cfg.Store.DSN
	if dsn == "" && isSQLite(cfg.Store.Driver) {
		p, err := store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
		dsn = p
	} else if isSQLite(cfg.Store.Driver) && !strings.HasPrefix(dsn, "file:") && !strings.Contains(dsn, ":memory:") {
		if err := store.EnsureDir(dsn); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	s, err := store.Open(cmd.Context(), cfg.Store.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return s, nil
}

func isSQLite(driver string) bool {
	switch driver {
	case "", "sqlite", "sqlite3":
		return true
	}
	return false
}
