// Package main is the entry point of usersdot, the user directory server.
//
// COMMANDS:
//
//	usersdot serve              start the HTTP API and admin UI
//	usersdot migrate            apply pending schema migrations and exit
//	usersdot seed --count 25    insert demo users
//
// main only wires things together: config, logger, store, server. All real
// logic lives in internal/.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/sakif/usersdot/internal/config"
	"github.com/sakif/usersdot/internal/server"
)

// Version is overridden at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	app := &cli.App{
		Name:    "usersdot",
		Usage:   "User directory REST API with an admin UI",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "TOML config file (default: ./" + config.DefaultFile + " if present)",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "dotenv file to load before reading the environment",
				Value: ".env",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "HTTP port (overrides config)",
			},
			&cli.StringFlag{
				Name:  "driver",
				Usage: "store driver: sqlite or postgres (overrides config)",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "SQLite path or Postgres DSN, depending on the driver (overrides config)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error (overrides config)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server",
				Action: serveCommand,
			},
			{
				Name:   "migrate",
				Usage:  "Apply pending migrations and exit",
				Action: migrateCommand,
			},
			{
				Name:  "seed",
				Usage: "Insert demo users",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "count",
						Usage: "number of users to insert",
						Value: 25,
					},
				},
				Action: seedCommand,
			},
		},
		// Running the binary without a command starts the server.
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig loads config from file/.env/environment and applies flag overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"), c.String("env-file"))
	if err != nil {
		return config.Config{}, fmt.Errorf("loading config: %w", err)
	}

	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	if c.IsSet("driver") {
		cfg.Database.Driver = c.String("driver")
	}
	if c.IsSet("db") {
		if cfg.Database.Driver == config.DriverPostgres {
			cfg.Database.DSN = c.String("db")
		} else {
			cfg.Database.SQLitePath = c.String("db")
		}
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process-wide slog logger. The text handler is easy to
// read in a terminal and still key=value structured for log shippers.
func newLogger(level string) *slog.Logger {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// setup is shared by every command: config, logger, open store.
func setup(c *cli.Context) (config.Config, *slog.Logger, server.Store, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	logger := newLogger(cfg.LogLevel)

	store, err := server.OpenStore(c.Context, cfg.Database)
	if err != nil {
		logger.Error("failed to open store",
			slog.String("driver", cfg.Database.Driver),
			slog.String("error", err.Error()),
		)
		return config.Config{}, nil, nil, err
	}
	return cfg, logger, store, nil
}

func serveCommand(c *cli.Context) error {
	cfg, logger, store, err := setup(c)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, store, logger)
	if err != nil {
		store.Close()
		return fmt.Errorf("creating server: %w", err)
	}

	// Start blocks until SIGINT/SIGTERM and closes the store on the way out.
	return srv.Start()
}

func migrateCommand(c *cli.Context) error {
	_, logger, store, err := setup(c)
	if err != nil {
		return err
	}
	defer store.Close()

	// OpenStore already migrated; a second run reports zero and confirms the schema is current.
	applied, err := store.Migrate(c.Context)
	if err != nil {
		return fmt.Errorf("migrating: %w", err)
	}
	logger.Info("schema up to date", slog.Int("applied", applied))
	return nil
}
