package storage

import (
	"database/sql"
	"fmt"
)

// EventRow is one stored event with its edge counts.
type EventRow struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Sources int    `json:"sources"`
	Sinks   int    `json:"sinks"`
}

// LinkRow is one stored link table row.
type LinkRow struct {
	File       string `json:"file"`
	Direction  string `json:"direction"`
	Event      string `json:"event"`
	TargetFile string `json:"target_file"`
	Label      string `json:"label"`
}

// Stats returns the number of stored events, edges and links
func (db *DB) Stats() (eventCount, edgeCount, linkCount int64, err error) {
	row := db.conn.QueryRow(`SELECT
		(SELECT COUNT(*) FROM events),
		(SELECT COUNT(*) FROM edges),
		(SELECT COUNT(*) FROM links)`)
	err = row.Scan(&eventCount, &edgeCount, &linkCount)
	return
}

// FindEvents returns events whose name contains pattern.
// Results are sorted by match quality: exact member name > ends with pattern > contains pattern
func (db *DB) FindEvents(pattern string, limit int) ([]EventRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.conn.Query(
		`SELECT e.id, e.name, e.kind, e.declaration_file, e.declaration_line,
			(SELECT COUNT(*) FROM edges WHERE event_id = e.id AND classification = 'source'),
			(SELECT COUNT(*) FROM edges WHERE event_id = e.id AND classification = 'sink')
		 FROM events e
		 WHERE e.name LIKE ?
		 ORDER BY
			CASE
				WHEN e.name LIKE '%.' || ? THEN 0
				WHEN e.name LIKE '%' || ? THEN 1
				ELSE 2
			END,
			length(e.name) ASC,
			e.position ASC
		 LIMIT ?`,
		"%"+pattern+"%", pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var row EventRow
		var file sql.NullString
		var line sql.NullInt64
		if err := rows.Scan(&row.ID, &row.Name, &row.Kind, &file, &line, &row.Sources, &row.Sinks); err != nil {
			return nil, err
		}
		row.File = file.String
		row.Line = int(line.Int64)
		out = append(out, row)
	}
	return out, rows.Err()
}

// LinksForFile returns the stored link rows of a file, given relative to the
// analysed root.
func (db *DB) LinksForFile(file string) ([]LinkRow, error) {
	rows, err := db.conn.Query(
		`SELECT file, direction, event, target_file, label FROM links
		 WHERE file = ? ORDER BY direction DESC, rowid ASC`,
		file,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer rows.Close()

	var out []LinkRow
	for rows.Next() {
		var row LinkRow
		if err := rows.Scan(&row.File, &row.Direction, &row.Event, &row.TargetFile, &row.Label); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
