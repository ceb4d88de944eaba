package survey

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite-backed implementation of Store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// WAL mode for better concurrent read performance.
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err = s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS surveys (
			id                 TEXT PRIMARY KEY,
			channel            TEXT NOT NULL,
			funnel_stage       TEXT NOT NULL DEFAULT '',
			website_url        TEXT NOT NULL DEFAULT '',
			message_length     INTEGER NOT NULL DEFAULT 0,
			tone_of_voice      TEXT NOT NULL DEFAULT '',
			persuasion_trigger TEXT NOT NULL DEFAULT '',
			template           TEXT NOT NULL DEFAULT '',
			contact_file_name  TEXT NOT NULL DEFAULT '',
			contact_columns    TEXT,
			contact_rows       TEXT,
			created_at         DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_surveys_created_at ON surveys(created_at);
	`)
	return err
}

func (s *SQLiteStore) Create(ctx context.Context, sv *Survey) error {
	columns, err := json.Marshal(sv.ContactColumns)
	if err != nil {
		return fmt.Errorf("marshal contact columns: %w", err)
	}
	rows, err := json.Marshal(sv.ContactRows)
	if err != nil {
		return fmt.Errorf("marshal contact rows: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO surveys
			(id, channel, funnel_stage, website_url, message_length, tone_of_voice,
			 persuasion_trigger, template, contact_file_name, contact_columns, contact_rows, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sv.ID,
		sv.Channel,
		sv.FunnelStage,
		sv.WebsiteURL,
		sv.MessageLength,
		sv.ToneOfVoice,
		sv.PersuasionTrigger,
		sv.Template,
		sv.ContactFileName,
		string(columns),
		string(rows),
		sv.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("create survey: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Survey, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, channel, funnel_stage, website_url, message_length, tone_of_voice,
		       persuasion_trigger, template, contact_file_name, contact_columns, contact_rows, created_at
		FROM surveys WHERE id = ?
	`, id)

	sv, err := scanSurvey(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get survey %s: %w", id, err)
	}
	return sv, nil
}

// List returns surveys ordered by created_at DESC with pagination, and the total count.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Survey, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM surveys`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count surveys: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, channel, funnel_stage, website_url, message_length, tone_of_voice,
		       persuasion_trigger, template, contact_file_name, contact_columns, contact_rows, created_at
		FROM surveys
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list surveys: %w", err)
	}
	defer rows.Close()

	var surveys []*Survey
	for rows.Next() {
		sv, err := scanSurvey(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("scan survey: %w", err)
		}
		surveys = append(surveys, sv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate surveys: %w", err)
	}

	return surveys, total, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM surveys WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete survey %s: %w", id, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanSurvey(scan func(...any) error) (*Survey, error) {
	sv := &Survey{}
	var columns, rows sql.NullString

	err := scan(
		&sv.ID, &sv.Channel, &sv.FunnelStage, &sv.WebsiteURL, &sv.MessageLength,
		&sv.ToneOfVoice, &sv.PersuasionTrigger, &sv.Template, &sv.ContactFileName,
		&columns, &rows, &sv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if columns.Valid && columns.String != "" {
		if err := json.Unmarshal([]byte(columns.String), &sv.ContactColumns); err != nil {
			return nil, fmt.Errorf("unmarshal contact columns: %w", err)
		}
	}
	if rows.Valid && rows.String != "" {
		if err := json.Unmarshal([]byte(rows.String), &sv.ContactRows); err != nil {
			return nil, fmt.Errorf("unmarshal contact rows: %w", err)
		}
	}
	return sv, nil
}
