// Package cli implements the ref-builder CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/rcliao/ref-builder/internal/config"
	"github.com/rcliao/ref-builder/internal/ncbi"
	"github.com/rcliao/ref-builder/internal/otu"
	"github.com/rcliao/ref-builder/internal/printer"
	"github.com/rcliao/ref-builder/internal/store"
)

var (
	dbPath     string
	configPath string
	formatFlag string
	verbose    bool

	cfg    = config.Default()
	logger = slog.New(slog.DiscardHandler)
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "ref-builder",
	Short: "Build virus reference OTUs from GenBank records",
	Long: "Groups GenBank records into isolates, infers segment plans and keeps " +
		"OTUs up to date as new and RefSeq records arrive. SQLite-backed, single binary.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $REF_BUILDER_DB, db_path or ~/.ref-builder/otus.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $REF_BUILDER_CONFIG or ~/.ref-builder/config.yaml)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
}

func setup(cmd *cobra.Command, args []string) error {
	if formatFlag != "json" && formatFlag != "text" {
		return fmt.Errorf("invalid format %q (use json or text)", formatFlag)
	}

	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	cfg = loaded

	level, _ := cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv(config.EnvDB); env != "" {
		return env
	}
	return cfg.DBPath
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath())
}

func openCache() (*ncbi.RedisCache, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("no redis_addr configured in %s", config.DefaultPath())
	}
	return ncbi.NewRedisCache(&redis.Options{Addr: cfg.RedisAddr}, cfg.RedisPrefix)
}

func newEngine() *otu.Engine {
	e, err := otu.NewEngine(cfg.EnginePolicy(), logger)
	if err != nil {
		exitErr("policy", err)
	}
	return e
}

func textOutput() bool {
	return formatFlag == "text"
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	title, explanation, suggestions := describeError(msg, err)
	printer.Stdout().Error(title, explanation, suggestions)
	os.Exit(1)
}
