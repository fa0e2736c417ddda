// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package catalog indexes decoded records in a local SQLite database.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/OpenPSG/aecg"
	"github.com/OpenPSG/aecg/internal/catalog/migrations"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("record not found")

// Entry is the catalogued summary of a record.
type Entry struct {
	ID               string
	Path             string // File the record was decoded from
	StartTime        time.Time
	Duration         time.Duration
	SampleRate       float64
	SamplesPerRecord int
	Leads            []string
	PatientID        string
	PatientName      string
	PatientSex       string
	BirthDate        time.Time
	AddedAt          time.Time
}

// Catalog is a SQLite backed record index.
type Catalog struct {
	db   *sql.DB
	path string
}

// Open opens or creates the catalogue database in dir.
func Open(dir string) (*Catalog, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("error creating catalog directory: %w", err)
	}

	dbPath := filepath.Join(dir, "catalog.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("error opening catalog: %w", err)
	}

	c := &Catalog{db: db, path: dbPath}
	if err := c.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("error migrating catalog: %w", err)
	}

	return c, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Path returns the database file path.
func (c *Catalog) Path() string {
	return c.path
}

func (c *Catalog) migrate(fsys fs.FS) error {
	if _, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("error creating schema_migrations table: %w", err)
	}

	var current int
	if err := c.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("error reading schema version: %w", err)
	}

	names, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return fmt.Errorf("error listing migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil || version <= current {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("error reading migration %s: %w", name, err)
		}

		if _, err := c.db.Exec(string(content)); err != nil {
			return fmt.Errorf("error executing migration %s: %w", name, err)
		}
		if _, err := c.db.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
			version, formatTime(time.Now())); err != nil {
			return fmt.Errorf("error recording migration %s: %w", name, err)
		}
	}

	return nil
}

// Put adds rec, decoded from path, to the catalogue. A record with the same
// id replaces the existing entry.
func (c *Catalog) Put(ctx context.Context, path string, rec *aecg.Record) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("%w: record id", aecg.ErrMissingField)
	}

	leads := make([]string, len(rec.Channels))
	for i, ch := range rec.Channels {
		leads[i] = ch.Label
		if ch.Lead != aecg.LeadUnspecified {
			leads[i] = ch.Lead.String()
		}
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO records (id, path, start_time, duration_ms, sample_rate, samples_per_record,
			leads, patient_id, patient_name, patient_sex, birth_date, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			start_time = excluded.start_time,
			duration_ms = excluded.duration_ms,
			sample_rate = excluded.sample_rate,
			samples_per_record = excluded.samples_per_record,
			leads = excluded.leads,
			patient_id = excluded.patient_id,
			patient_name = excluded.patient_name,
			patient_sex = excluded.patient_sex,
			birth_date = excluded.birth_date,
			added_at = excluded.added_at
	`, rec.ID, path, formatTime(rec.StartTime), rec.Duration().Milliseconds(), rec.SampleRate,
		rec.SamplesPerRecord, strings.Join(leads, ","), nullString(rec.Patient.ID),
		nullString(rec.Patient.Name), rec.Patient.Sex.String(), formatNullableTime(rec.Patient.BirthDate),
		formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("error saving record %s: %w", rec.ID, err)
	}

	return nil
}

const selectEntry = `
	SELECT id, path, start_time, duration_ms, sample_rate, samples_per_record,
		leads, patient_id, patient_name, patient_sex, birth_date, added_at
	FROM records`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e                          Entry
		start, added, leads        string
		durationMS                 int64
		patientID, name, sex, born sql.NullString
	)
	if err := row.Scan(&e.ID, &e.Path, &start, &durationMS, &e.SampleRate, &e.SamplesPerRecord,
		&leads, &patientID, &name, &sex, &born, &added); err != nil {
		return e, err
	}

	e.StartTime = parseTime(start)
	e.AddedAt = parseTime(added)
	e.BirthDate = parseTime(born.String)
	e.Duration = time.Duration(durationMS) * time.Millisecond
	if leads != "" {
		e.Leads = strings.Split(leads, ",")
	}
	e.PatientID = patientID.String
	e.PatientName = name.String
	e.PatientSex = sex.String

	return e, nil
}

// Get returns the entry with the given id.
func (c *Catalog) Get(ctx context.Context, id string) (*Entry, error) {
	e, err := scanEntry(c.db.QueryRowContext(ctx, selectEntry+" WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("error scanning record: %w", err)
	}
	return &e, nil
}

// List returns every entry ordered by start time.
func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, selectEntry+" ORDER BY start_time, id")
	if err != nil {
		return nil, fmt.Errorf("error querying records: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning record: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return entries, nil
}

// Delete removes the entry with the given id.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, "DELETE FROM records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("error deleting record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// timeLayout is fixed width so lexical order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatNullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
