package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/pulse/internal/engine"
	"github.com/joescharf/pulse/internal/logging"
	"github.com/joescharf/pulse/internal/output"
	"github.com/joescharf/pulse/internal/store"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	logger    *slog.Logger
	logClose  = func() error { return nil }
	dataStore store.Store

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Pulse - project health, priorities and recommendations",
	Long: `pulse analyzes student software projects: it ranks open tasks,
assesses delivery risk, summarizes team chat, draws burndown charts and
recommends what to do next.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	err := rootCmd.Execute()
	if dataStore != nil {
		_ = dataStore.Close()
	}
	_ = logClose()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/pulse/config.yaml)")
}

func initConfig() {
	// A .env in the working directory is optional.
	_ = godotenv.Load()

	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "pulse")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PULSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	home, _ := os.UserHomeDir()
	setDefaults(filepath.Join(home, ".config", "pulse"))

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers every config key with its default.
func setDefaults(stateDir string) {
	viper.SetDefault("state_dir", stateDir)
	viper.SetDefault("db_path", filepath.Join(stateDir, "pulse.db"))
	viper.SetDefault("log.level", logging.LevelInfo)
	viper.SetDefault("log.format", logging.FormatText)
	viper.SetDefault("log.file", "")
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	viper.SetDefault("narrative.enabled", false)
	viper.SetDefault("narrative.timeout", "20s")
	viper.SetDefault("analytics.priority_limit", 10)
	viper.SetDefault("analytics.chat_window_days", engine.DefaultChatWindowDays)
	viper.SetDefault("port", 8080)
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun

	level := viper.GetString("log.level")
	if verbose {
		level = logging.LevelDebug
	}
	l, closeFn, err := logging.New(logging.Options{
		Level:  level,
		Format: viper.GetString("log.format"),
		File:   viper.GetString("log.file"),
	}, os.Stderr)
	if err != nil {
		ui.Warning("Logging config ignored: %v", err)
		l = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		closeFn = func() error { return nil }
	}
	logger, logClose = l, closeFn

	// Store is opened lazily so config/version run without a database.
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ctx := rootCmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// newEngine builds the analytics engine. The narrative service is attached
// whenever an API key is configured; each call still opts in.
func newEngine() *engine.Engine {
	opts := []engine.Option{engine.WithLogger(logger)}
	if n := newNarrator(); n != nil {
		opts = append(opts, engine.WithNarrative(n, viper.GetDuration("narrative.timeout")))
	}
	return engine.New(opts...)
}

// wantNarrative reports whether narrative recommendations were asked for by
// flag or config, warning when they cannot be provided.
func wantNarrative(e *engine.Engine, flag bool) bool {
	want := flag || viper.GetBool("narrative.enabled")
	if want && !e.HasNarrative() {
		ui.Warning("No Anthropic API key configured; using built-in recommendations")
		return false
	}
	return want
}
