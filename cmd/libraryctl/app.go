package main

import (
	"fmt"
	"io"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/listenupapp/library-server/internal/config"
	"github.com/listenupapp/library-server/internal/di"
	"github.com/listenupapp/library-server/internal/logger"
)

// app holds the global flags and the container shared by every command.
type app struct {
	dbPath     string
	searchPath string
	envFile    string
	logLevel   string
	noSearch   bool
	jsonOutput bool

	injector *do.RootScope
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "libraryctl",
		Short:        "Administer a library server database",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.dbPath, "db-path", "", "Path to the SQLite database file (default: $DB_PATH or ~/LibraryServer/library.db)")
	flags.StringVar(&a.searchPath, "search-path", "", "Directory for the full-text index")
	flags.StringVar(&a.envFile, "env-file", ".env", "Path to .env file")
	flags.StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flags.BoolVar(&a.noSearch, "no-search", false, "Do not open the full-text index")
	flags.BoolVar(&a.jsonOutput, "json", false, "Print JSON even when stdout is a terminal")

	root.AddCommand(
		newSeedCmd(a),
		newSweepCmd(a),
		newOverdueCmd(a),
		newReindexCmd(a),
		newStatsCmd(a),
	)
	return root
}

// configArgs translates the global flags into server config flags so the CLI
// resolves paths and defaults exactly like the server does.
func (a *app) configArgs() []string {
	args := []string{"--env-file", a.envFile, "--log-level", a.logLevel}
	if a.dbPath != "" {
		args = append(args, "--db-path", a.dbPath)
	}
	if a.searchPath != "" {
		args = append(args, "--search-path", a.searchPath)
	}
	if a.noSearch {
		args = append(args, "--search-enabled", "false")
	}
	return args
}

func (a *app) open(logOut io.Writer) error {
	cfg, err := config.Load(a.configArgs())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	injector := do.New()
	di.Register(injector)

	// Logs go to stderr so stdout stays machine readable.
	do.OverrideValue(injector, cfg)
	do.OverrideValue(injector, logger.New(logger.Config{
		Writer:      logOut,
		Environment: cfg.App.Environment,
		Level:       logger.ParseLevel(cfg.Logger.Level),
	}))

	a.injector = injector
	return nil
}

func (a *app) close() error {
	if a.injector == nil {
		return nil
	}
	err := a.injector.Shutdown()
	a.injector = nil
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// run wraps a command body so the container shuts down even when the body
// fails. Cobra skips post-run hooks after an error.
func (a *app) run(fn func(cmd *cobra.Command) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) (err error) {
		defer func() {
			if cerr := a.close(); err == nil {
				err = cerr
			}
		}()
		return fn(cmd)
	}
}

// invoke resolves a dependency from the open container.
func invoke[T any](a *app) (T, error) {
	return do.Invoke[T](a.injector)
}
