// Command migrate runs goose commands against the embedded schema migrations.
//
// Usage:
//
//	migrate [up|down|status|version|reset|redo|up-to VERSION|down-to VERSION]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"clothing-marketplace/internal/config"
	"clothing-marketplace/internal/database"
)

func main() {
	timeout := flag.Duration("timeout", 5*time.Minute, "maximum time allowed for the migration run")
	flag.Parse()

	command := "up"
	args := flag.Args()
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	if err := run(command, args, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string, timeout time.Duration) error {
	dbCfg, logCfg, err := config.LoadDatabase()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(logCfg)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := database.NewPool(ctx, dbCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	logger.Info().Str("command", command).Strs("args", args).Msg("running migrations")

	if err := database.RunMigrations(ctx, pool, logger, command, args...); err != nil {
		return err
	}

	logger.Info().Str("command", command).Msg("migrations finished")
	return nil
}
