// SPDX-License-Identifier: EPL-2.0

// Package catalog keeps per-pad metadata (length, origin, trim markers)
// in SQLite next to the pad audio files.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ik5/padsampler/bank"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound    = errors.New("pad not in catalog")
	ErrInvalidTrim = errors.New("trim markers must satisfy 0 <= start < end <= 1")
)

const (
	SourceRecording = "recording"
	SourceImport    = "import"
)

// Entry describes one stored pad. Trim markers are fractions of the
// sample length.
type Entry struct {
	Pad        bank.PadID
	Frames     int
	SampleRate int
	Duration   time.Duration
	TrimStart  float64
	TrimEnd    float64
	Source     string
	RecordedAt time.Time
}

// Trimmed reports whether the markers select less than the whole sample.
func (e Entry) Trimmed() bool {
	return e.TrimStart > 0 || e.TrimEnd < 1
}

type Catalog struct {
	db *sql.DB
}

// Open opens or creates the catalog database at path and migrates it.
// Missing parent directories are created.
func Open(path string) (*Catalog, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	// ":memory:" databases are per connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping catalog: %w", err)
	}

	c := &Catalog{db: db}
	if err := c.runMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return c, nil
}

func (c *Catalog) runMigrations() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pads (
		pad_id INTEGER PRIMARY KEY,
		frames INTEGER NOT NULL,
		sample_rate INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		trim_start REAL NOT NULL DEFAULT 0,
		trim_end REAL NOT NULL DEFAULT 1,
		recorded_at INTEGER NOT NULL
	);
	`
	if _, err := c.db.Exec(schema); err != nil {
		return err
	}

	// source was added after the first release
	var colCount int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('pads') WHERE name='source'`).Scan(&colCount)
	if err != nil {
		return err
	}
	if colCount == 0 {
		if _, err := c.db.Exec(`ALTER TABLE pads ADD COLUMN source TEXT NOT NULL DEFAULT 'recording'`); err != nil {
			return err
		}
	}

	return nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

// Upsert records a freshly stored pad. Trim markers reset to the full
// sample because the audio they referred to is gone.
func (c *Catalog) Upsert(e Entry) error {
	if e.Source == "" {
		e.Source = SourceRecording
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}

	_, err := c.db.Exec(`
		INSERT INTO pads (pad_id, frames, sample_rate, duration_ms, trim_start, trim_end, recorded_at, source)
		VALUES (?, ?, ?, ?, 0, 1, ?, ?)
		ON CONFLICT(pad_id) DO UPDATE SET
			frames = excluded.frames,
			sample_rate = excluded.sample_rate,
			duration_ms = excluded.duration_ms,
			trim_start = 0,
			trim_end = 1,
			recorded_at = excluded.recorded_at,
			source = excluded.source
	`, int(e.Pad), e.Frames, e.SampleRate, e.Duration.Milliseconds(), e.RecordedAt.UnixMilli(), e.Source)
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", e.Pad, err)
	}

	return nil
}

func (c *Catalog) Get(pad bank.PadID) (*Entry, error) {
	row := c.db.QueryRow(`
		SELECT pad_id, frames, sample_rate, duration_ms, trim_start, trim_end, recorded_at, source
		FROM pads WHERE pad_id = ?
	`, int(pad))

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, pad)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", pad, err)
	}

	return e, nil
}

// SetTrim stores trim markers for an existing pad.
func (c *Catalog) SetTrim(pad bank.PadID, start, end float64) error {
	if start < 0 || end > 1 || start >= end {
		return fmt.Errorf("%w: got %.3f..%.3f", ErrInvalidTrim, start, end)
	}

	res, err := c.db.Exec(`UPDATE pads SET trim_start = ?, trim_end = ? WHERE pad_id = ?`, start, end, int(pad))
	if err != nil {
		return fmt.Errorf("failed to set trim on %s: %w", pad, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, pad)
	}

	return nil
}

func (c *Catalog) Delete(pad bank.PadID) error {
	if _, err := c.db.Exec(`DELETE FROM pads WHERE pad_id = ?`, int(pad)); err != nil {
		return fmt.Errorf("failed to delete %s: %w", pad, err)
	}

	return nil
}

func (c *Catalog) DeleteAll() error {
	if _, err := c.db.Exec(`DELETE FROM pads`); err != nil {
		return fmt.Errorf("failed to clear catalog: %w", err)
	}

	return nil
}

// List returns every entry ordered by pad id.
func (c *Catalog) List() ([]Entry, error) {
	rows, err := c.db.Query(`
		SELECT pad_id, frames, sample_rate, duration_ms, trim_start, trim_end, recorded_at, source
		FROM pads ORDER BY pad_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pads: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pad: %w", err)
		}
		entries = append(entries, *e)
	}

	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var (
		e          Entry
		pad        int
		durationMS int64
		recordedAt int64
	)

	err := s.Scan(&pad, &e.Frames, &e.SampleRate, &durationMS, &e.TrimStart, &e.TrimEnd, &recordedAt, &e.Source)
	if err != nil {
		return nil, err
	}

	e.Pad = bank.PadID(pad)
	e.Duration = time.Duration(durationMS) * time.Millisecond
	e.RecordedAt = time.UnixMilli(recordedAt)

	return &e, nil
}
