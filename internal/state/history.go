package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Run is one invocation of convert, scan or cover.
type Run struct {
	ID         string    `json:"id" yaml:"id"`
	Mode       string    `json:"mode" yaml:"mode"`
	Source     string    `json:"source" yaml:"source"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	Total      int       `json:"total" yaml:"total"`
	Succeeded  int       `json:"succeeded" yaml:"succeeded"`
	Failed     int       `json:"failed" yaml:"failed"`
	Canceled   int       `json:"canceled" yaml:"canceled"`
}

// BookRecord is the last known outcome for one book in one mode.
type BookRecord struct {
	RunID         string    `json:"run_id" yaml:"run_id"`
	PrimaryPath   string    `json:"primary_path" yaml:"primary_path"`
	Mode          string    `json:"mode" yaml:"mode"`
	Name          string    `json:"name" yaml:"name"`
	HdCover       bool      `json:"hd_cover" yaml:"hd_cover"`
	SdCover       bool      `json:"sd_cover" yaml:"sd_cover"`
	FallbackCover bool      `json:"fallback_cover" yaml:"fallback_cover"`
	HdImages      int       `json:"hd_images" yaml:"hd_images"`
	SdImages      int       `json:"sd_images" yaml:"sd_images"`
	Pages         int       `json:"pages" yaml:"pages"`
	HDContainer   string    `json:"hd_container" yaml:"hd_container"`
	ArchivePath   string    `json:"archive_path" yaml:"archive_path"`
	ArchiveBytes  int64     `json:"archive_bytes" yaml:"archive_bytes"`
	ErrorMessage  string    `json:"error_message" yaml:"error_message"`
	CheckedAt     time.Time `json:"checked_at" yaml:"checked_at"`
}

// Failed reports whether the record holds an error.
func (b BookRecord) Failed() bool { return b.ErrorMessage != "" }

// BeginRun stores a new run row.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, mode, source, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Mode, run.Source, formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun records the totals of a completed run.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	err := s.execWithRetry(ctx,
		`UPDATE runs SET finished_at = ?, total = ?, succeeded = ?, failed = ?, canceled = ? WHERE id = ?`,
		formatTime(run.FinishedAt), run.Total, run.Succeeded, run.Failed, run.Canceled, run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecordBook inserts or replaces the record for (PrimaryPath, Mode).
func (s *Store) RecordBook(ctx context.Context, rec BookRecord) error {
	if rec.PrimaryPath == "" {
		return errors.New("primary path is required")
	}
	if rec.CheckedAt.IsZero() {
		rec.CheckedAt = time.Now()
	}
	err := s.execWithRetry(ctx,
		`INSERT INTO books (
            primary_path, mode, run_id, name, hd_cover, sd_cover, fallback_cover,
            hd_images, sd_images, pages, hd_container, archive_path, archive_bytes,
            error_message, checked_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(primary_path, mode) DO UPDATE SET
            run_id = excluded.run_id, name = excluded.name,
            hd_cover = excluded.hd_cover, sd_cover = excluded.sd_cover,
            fallback_cover = excluded.fallback_cover, hd_images = excluded.hd_images,
            sd_images = excluded.sd_images, pages = excluded.pages,
            hd_container = excluded.hd_container, archive_path = excluded.archive_path,
            archive_bytes = excluded.archive_bytes, error_message = excluded.error_message,
            checked_at = excluded.checked_at`,
		rec.PrimaryPath,
		rec.Mode,
		rec.RunID,
		nullableString(rec.Name),
		boolToInt(rec.HdCover),
		boolToInt(rec.SdCover),
		boolToInt(rec.FallbackCover),
		rec.HdImages,
		rec.SdImages,
		rec.Pages,
		nullableString(rec.HDContainer),
		nullableString(rec.ArchivePath),
		rec.ArchiveBytes,
		nullableString(rec.ErrorMessage),
		formatTime(rec.CheckedAt),
	)
	if err != nil {
		return fmt.Errorf("record book %s: %w", rec.PrimaryPath, err)
	}
	return nil
}

const bookColumns = "run_id, primary_path, mode, name, hd_cover, sd_cover, fallback_cover, hd_images, sd_images, pages, hd_container, archive_path, archive_bytes, error_message, checked_at"

// RecentBooks returns up to limit book records, most recently checked first.
func (s *Store) RecentBooks(ctx context.Context, limit int) ([]BookRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+bookColumns+` FROM books ORDER BY checked_at DESC, primary_path LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var records []BookRecord
	for rows.Next() {
		rec, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Book returns the record for primary in mode, or nil when none exists.
func (s *Store) Book(ctx context.Context, primary, mode string) (*BookRecord, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+bookColumns+` FROM books WHERE primary_path = ? AND mode = ?`, primary, mode)
	rec, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return &rec, nil
}

// Run returns the run with id, or nil when none exists.
func (s *Store) Run(ctx context.Context, id string) (*Run, error) {
	var (
		run        Run
		startedRaw string
		finished   sql.NullString
	)
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT id, mode, source, started_at, finished_at, total, succeeded, failed, canceled FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.Mode, &run.Source, &startedRaw, &finished, &run.Total, &run.Succeeded, &run.Failed, &run.Canceled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedAt, err := parseTimeString(finished.String); err == nil {
		run.FinishedAt = finishedAt
	}
	return &run, nil
}

func scanBook(scanner interface{ Scan(dest ...any) error }) (BookRecord, error) {
	var (
		rec         BookRecord
		name        sql.NullString
		hdCover     int
		sdCover     int
		fallback    int
		hdContainer sql.NullString
		archive     sql.NullString
		errMessage  sql.NullString
		checkedRaw  string
	)
	if err := scanner.Scan(
		&rec.RunID,
		&rec.PrimaryPath,
		&rec.Mode,
		&name,
		&hdCover,
		&sdCover,
		&fallback,
		&rec.HdImages,
		&rec.SdImages,
		&rec.Pages,
		&hdContainer,
		&archive,
		&rec.ArchiveBytes,
		&errMessage,
		&checkedRaw,
	); err != nil {
		return BookRecord{}, err
	}
	rec.Name = name.String
	rec.HdCover = hdCover != 0
	rec.SdCover = sdCover != 0
	rec.FallbackCover = fallback != 0
	rec.HDContainer = hdContainer.String
	rec.ArchivePath = archive.String
	rec.ErrorMessage = errMessage.String
	if checked, err := parseTimeString(checkedRaw); err == nil {
		rec.CheckedAt = checked
	}
	return rec, nil
}
