package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/KMcClain23/WarriorMomma/internal/config"
	"github.com/alecthomas/kong"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"
)

const (
	appName        = "warriormomma"
	appDescription = "Manage a book collection and keep its cover images up to date."
)

// stdout receives command output. Logs go to stderr so output can be piped.
var stdout io.Writer = os.Stdout

// CLI represents the complete command structure for the warriormomma application
type CLI struct {
	// Global flags
	Verbose bool `short:"v" help:"Enable debug logging"`

	// Store flags
	Backend string `help:"Storage backend: json or sqlite (overrides store.backend)"`
	DataDir string `help:"Directory holding the section JSON files (overrides store.datadir)"`
	DBFile  string `name:"db-file" help:"Path to the SQLite books database (overrides store.dbfile)"`

	// Cache flags
	CacheDBFile string `help:"Path to cache SQLite database file"`
	CacheTTL    string `help:"Cache time-to-live duration (e.g., 720h for 30 days)"`
	NoCache     bool   `help:"Disable the provider response cache"`

	Sync    SyncCmd    `cmd:"" help:"Look up missing covers for every book and write a report of the ones still missing"`
	Find    FindCmd    `cmd:"" help:"Resolve a cover URL for a title without touching the collection"`
	Seed    SeedCmd    `cmd:"" help:"Import books from a legacy JSON, YAML or CSV file"`
	List    ListCmd    `cmd:"" help:"List the books of a section, newest first"`
	Add     AddCmd     `cmd:"" help:"Add a book to a section"`
	Edit    EditCmd    `cmd:"" help:"Change fields of a stored book"`
	Delete  DeleteCmd  `cmd:"" help:"Delete a book from a section"`
	Move    MoveCmd    `cmd:"" help:"Move a book to another section"`
	Cache   CacheCmd   `cmd:"" help:"Manage the provider response cache"`
	Ping    PingCmd    `cmd:"" help:"Check that the cover providers are reachable"`
	Publish PublishCmd `cmd:"" help:"Publish the collection to a Datasette instance"`
}

// Execute runs the Kong-based CLI
func Execute() {
	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name(appName),
		kong.Description(appDescription),
		kong.UsageOnError(),
	)

	initLogging(cli.Verbose)
	if err := initConfig(); err != nil {
		slog.Error("Fatal error config file", "error", err)
		os.Exit(1)
	}

	// Update global config based on parsed flags
	updateGlobalConfig(&cli)

	if err := ctx.Run(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// initConfig registers defaults and environment bindings, then reads
// config.yaml from the working directory. A missing file is written with
// the defaults and the run continues.
func initConfig() error {
	config.SetDefaults()
	config.BindEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config: %w", err)
		}
		slog.Info("Config file not found, writing default config file...")
		if err := viper.SafeWriteConfig(); err != nil {
			slog.Error("Error writing config file", "error", err)
		}
	}
	return nil
}

func updateGlobalConfig(cli *CLI) {
	// Flags only override config when given
	if cli.Backend != "" {
		viper.Set("store.backend", strings.ToLower(cli.Backend))
	}
	if cli.DataDir != "" {
		viper.Set("store.datadir", cli.DataDir)
	}
	if cli.DBFile != "" {
		viper.Set("store.dbfile", cli.DBFile)
	}

	if cli.CacheDBFile != "" {
		viper.Set("cache.dbfile", cli.CacheDBFile)
	}
	if cli.CacheTTL != "" {
		viper.Set("cache.ttl", cli.CacheTTL)
	}
	if cli.NoCache {
		viper.Set("cache.enabled", false)
	}
}

// logLevel picks the level from --verbose or WARRIORMOMMA_LOG_LEVEL.
func logLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}

	raw := strings.TrimSpace(os.Getenv(config.EnvPrefix + "_LOG_LEVEL"))
	if raw == "" {
		return slog.LevelInfo
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func initLogging(verbose bool) {
	// Create a human-readable handler for logging
	handler := humanlog.NewHandler(os.Stderr, &humanlog.Options{
		Level: logLevel(verbose),
	})

	// Set the default logger
	slog.SetDefault(slog.New(handler))
}
