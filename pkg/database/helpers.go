package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/OldStager01/predictify/internal/logger"
)

// RequiredTables must exist before the service can use postgres storage.
var RequiredTables = []string{"users", "events", "event_interests", "predictions"}

type TxFunc func(tx *sql.Tx) error

// WithTransaction runs fn in a transaction, rolling back when fn returns an
// error or panics.
func (db *DB) WithTransaction(ctx context.Context, fn TxFunc) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// MissingTables returns the subset of tables not present in the public
// schema, in the order given.
func (db *DB) MissingTables(ctx context.Context, tables ...string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = ANY($1)`,
		pq.Array(tables),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	present := make(map[string]bool, len(tables))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []string
	for _, t := range tables {
		if !present[t] {
			missing = append(missing, t)
		}
	}
	return missing, nil
}

func (db *DB) ServerVersion(ctx context.Context) (string, error) {
	var version string
	if err := db.QueryRowContext(ctx, "SHOW server_version").Scan(&version); err != nil {
		return "", fmt.Errorf("failed to read server version: %w", err)
	}
	return version, nil
}

// LogPoolStats writes the connection pool counters at info level.
func (db *DB) LogPoolStats() {
	stats := db.Stats()
	logger.WithFields(map[string]interface{}{
		"open":            stats.OpenConnections,
		"in_use":          stats.InUse,
		"idle":            stats.Idle,
		"wait_count":      stats.WaitCount,
		"max_open":        stats.MaxOpenConnections,
		"idle_closed":     stats.MaxIdleClosed,
		"lifetime_closed": stats.MaxLifetimeClosed,
	}).Info("Database pool stats")
}
