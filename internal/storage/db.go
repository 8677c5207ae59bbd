// Package storage exports an analysis into a SQLite database for ad-hoc
// querying.
package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/morozRed/swampmonster/internal/events"
	"github.com/morozRed/swampmonster/internal/fileutil"
)

//go:embed schema.sql
var schema string

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// Open opens or creates a SQLite database at the given path
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, err
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialise schema: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Export replaces the stored analysis with result and its link tables in a
// single transaction.
func (db *DB) Export(ctx context.Context, result *events.Result, tables map[string]*events.LinkTable) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin export: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM links", "DELETE FROM edges", "DELETE FROM events", "DELETE FROM runs"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to clear previous export: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, root, strategy, created_at) VALUES (1, ?, ?, ?)`,
		result.Root, result.Strategy.Name(), time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for i, sym := range result.Symbols() {
		var declFile sql.NullString
		var declLine sql.NullInt64
		if sym.Declaration != nil {
			declFile = sql.NullString{String: events.DisplayPath(result.Root, sym.Declaration.File), Valid: true}
			declLine = sql.NullInt64{Int64: int64(sym.Declaration.Line), Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO events (id, name, kind, type_name, declaration_file, declaration_line, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sym.ID, result.CanonicalName(sym), sym.Kind.String(), sym.TypeName, declFile, declLine, i,
		); err != nil {
			return fmt.Errorf("failed to insert event %s: %w", sym.ID, err)
		}
	}

	for _, edge := range events.EdgeRecords(result) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO edges (event_id, file, line, col, span_start, span_end, classification)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			edge.EventID, edge.File, edge.Line, edge.Column, edge.Start, edge.End, edge.Classification.String(),
		); err != nil {
			return fmt.Errorf("failed to insert edge: %w", err)
		}
	}

	for _, file := range fileutil.MapKeysSorted(tables) {
		table := tables[file]
		display := events.DisplayPath(result.Root, file)
		insert := func(direction string, links []events.Link) error {
			for _, link := range links {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO links (file, direction, event, target_file, target_token, label)
					 VALUES (?, ?, ?, ?, ?, ?)`,
					display, direction, link.Event, events.DisplayPath(result.Root, link.File), link.Target, link.Label,
				); err != nil {
					return fmt.Errorf("failed to insert link: %w", err)
				}
			}
			return nil
		}
		if err := insert("source", table.Sources); err != nil {
			return err
		}
		if err := insert("sink", table.Sinks); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit export: %w", err)
	}
	return nil
}
