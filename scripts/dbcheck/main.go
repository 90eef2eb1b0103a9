package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"clothing-marketplace/internal/config"

	"github.com/jackc/pgx/v5"
)

// Connects with the configured DB_* settings and reports the schema version.
func main() {
	dbCfg, _, err := config.LoadDatabase()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid database configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, dbCfg.ConnectionString())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	var dbName string
	if err := conn.QueryRow(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
		fmt.Fprintf(os.Stderr, "QueryRow failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully connected to database: %s\n", dbName)

	var version int64
	err = conn.QueryRow(ctx, "SELECT COALESCE(MAX(version_id), 0) FROM goose_db_version WHERE is_applied").Scan(&version)
	if err != nil {
		fmt.Println("Schema not migrated yet, run: go run ./cmd/migrate up")
		return
	}
	fmt.Printf("Schema version: %d\n", version)

	rows, err := conn.Query(ctx, `
		SELECT p.name, v.size, v.stock_available, v.stock_reserved
		FROM product_variants v JOIN products p ON p.id = v.product_id
		ORDER BY p.name, v.size
		LIMIT 20`)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		os.Exit(1)
	}
	defer rows.Close()

	fmt.Println("\nStock:")
	for rows.Next() {
		var (
			name, size          string
			available, reserved int
		)
		if err := rows.Scan(&name, &size, &available, &reserved); err != nil {
			fmt.Fprintf(os.Stderr, "Scan failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("  - %s (%s): %d available, %d reserved\n", name, size, available, reserved)
	}
}
