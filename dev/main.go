package main

import (
	devenv "boxdstats/dev/env"
	"boxdstats/internal/db"
	"boxdstats/pkg/migrations"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
)

const configTemplate = `{
	// usernames synced by "boxdstats sync" without arguments and by the daemon
	usernames: [],
	database: "dev/.state/boxdstats.db",
	workers: 4,
	requests_per_second: 4,
	page_cache: {
		dir: "dev/.state/pagecache",
		ttl_hours: 168,
	},
	cron: "0 4 * * *",
	telemetry: {
		otlp: {
			traces: {},
			metrics: {},
		},
	},
}
`

func create(ctx context.Context, recreate bool) error {
	_, err := os.Stat("go.mod")
	if os.IsNotExist(err) {
		return fmt.Errorf("the dev environment must be created in the repository root (the same directory as the 'go.mod' file)")
	}

	if recreate {
		err = os.RemoveAll("dev/.state")
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	dbPath, err := devenv.ResolvePath("<dev_state>/boxdstats.db")
	if err != nil {
		return err
	}
	database, err := migrations.OpenAndMigrateDB(ctx, db.Schema, dbPath)
	if err != nil {
		return err
	}
	database.Close()

	configPath, err := devenv.ResolvePath("<dev_state>/config.json5")
	if err != nil {
		return err
	}
	_, err = os.Stat(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		err = os.WriteFile(configPath, []byte(configTemplate), 0666)
	}
	if err != nil {
		return err
	}

	slog.Info("database", "path", dbPath)
	slog.Info("config, pass it with --config", "path", configPath)
	return nil
}

func main() {
	recreate := flag.Bool("recreate", false, "recreate the dev environment from scratch")
	flag.Parse()

	err := create(context.Background(), *recreate)
	if err != nil {
		slog.Error("failed to create dev environment", "err", err.Error())
		os.Exit(1)
	}

	slog.Info("dev environment created successfully!")
}
