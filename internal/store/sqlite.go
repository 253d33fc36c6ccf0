package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/xerrors"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS baselines (
	id             TEXT PRIMARY KEY,
	issue_key      TEXT NOT NULL,
	node_id        TEXT NOT NULL,
	node_name      TEXT NOT NULL,
	file_key       TEXT NOT NULL,
	page_name      TEXT NOT NULL,
	user_name      TEXT NOT NULL,
	created_at     TEXT NOT NULL,
	image_key      TEXT NOT NULL,
	structure_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS comparisons (
	id              TEXT PRIMARY KEY,
	baseline_id     TEXT NOT NULL REFERENCES baselines(id),
	issue_key       TEXT NOT NULL,
	slack_channel   TEXT NOT NULL,
	node_id         TEXT NOT NULL,
	node_name       TEXT NOT NULL,
	created_at      TEXT NOT NULL,
	after_image_key TEXT NOT NULL,
	diff_image_key  TEXT NOT NULL,
	changed_percent REAL NOT NULL,
	changed_pixels  INTEGER NOT NULL,
	structure_json  TEXT NOT NULL,
	jira_comment_id TEXT NOT NULL DEFAULT '',
	slack_ts        TEXT NOT NULL DEFAULT '',
	error_log       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS comparisons_baseline_id ON comparisons (baseline_id, created_at);

CREATE TABLE IF NOT EXISTS slack_threads (
	issue_key    TEXT PRIMARY KEY,
	channel      TEXT NOT NULL,
	thread_ts    TEXT NOT NULL,
	last_updated TEXT NOT NULL
);
`

const comparisonColumns = `id, baseline_id, issue_key, slack_channel, node_id, node_name, created_at, after_image_key, diff_image_key, changed_percent, changed_pixels, structure_json, jira_comment_id, slack_ts, error_log`

type sqliteStore struct {
	db *sql.DB
}

type SQLiteConfig struct {
	Path        string
	BusyTimeout time.Duration
}

// NewSQLiteStore opens the database at config.Path and creates the schema.
// A single connection serialises writers.
func NewSQLiteStore(ctx context.Context, config SQLiteConfig) (Store, error) {
	if config.Path == "" {
		config.Path = "diffs.db"
	}
	if config.BusyTimeout == 0 {
		config.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", config.Path, config.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, xerrors.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, xerrors.Errorf("failed to create schema: %w", err)
	}

	return &sqliteStore{
		db: db,
	}, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func (s *sqliteStore) CreateBaseline(ctx context.Context, b *Baseline) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO baselines (id, issue_key, node_id, node_name, file_key, page_name, user_name, created_at, image_key, structure_json) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.IssueKey, b.NodeID, b.NodeName, b.FileKey, b.PageName, b.User, formatTime(b.CreatedAt), b.ImageKey, b.StructureJSON,
	); err != nil {
		return xerrors.Errorf("failed to insert baseline: %w", err)
	}
	return nil
}

func (s *sqliteStore) GetBaseline(ctx context.Context, id string) (*Baseline, error) {
	var b Baseline
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, issue_key, node_id, node_name, file_key, page_name, user_name, created_at, image_key, structure_json FROM baselines WHERE id = ?`, id,
	).Scan(&b.ID, &b.IssueKey, &b.NodeID, &b.NodeName, &b.FileKey, &b.PageName, &b.User, &createdAt, &b.ImageKey, &b.StructureJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, xerrors.Errorf("baseline %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, xerrors.Errorf("failed to select baseline: %w", err)
	}

	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *sqliteStore) CreateComparison(ctx context.Context, c *Comparison) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO comparisons (`+comparisonColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.BaselineID, c.IssueKey, c.SlackChannel, c.NodeID, c.NodeName, formatTime(c.CreatedAt), c.AfterImageKey, c.DiffImageKey,
		c.ChangedPercent, c.ChangedPixels, c.StructureJSON, c.JiraCommentID, c.SlackTS, c.ErrorLog,
	); err != nil {
		return xerrors.Errorf("failed to insert comparison: %w", err)
	}
	return nil
}

func (s *sqliteStore) GetComparison(ctx context.Context, id string) (*Comparison, error) {
	c, err := scanComparison(s.db.QueryRowContext(ctx, `SELECT `+comparisonColumns+` FROM comparisons WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, xerrors.Errorf("comparison %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, xerrors.Errorf("failed to select comparison: %w", err)
	}
	return c, nil
}

func (s *sqliteStore) ListComparisons(ctx context.Context, baselineID string) ([]*Comparison, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+comparisonColumns+` FROM comparisons WHERE baseline_id = ? ORDER BY created_at, id`, baselineID)
	if err != nil {
		return nil, xerrors.Errorf("failed to select comparisons: %w", err)
	}
	defer rows.Close()

	comparisons := []*Comparison{}
	for rows.Next() {
		c, err := scanComparison(rows)
		if err != nil {
			return nil, xerrors.Errorf("failed to scan comparison: %w", err)
		}
		comparisons = append(comparisons, c)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Errorf("failed to iterate comparisons: %w", err)
	}
	return comparisons, nil
}

func (s *sqliteStore) UpdateNotifications(ctx context.Context, id string, jiraCommentID string, slackTS string, errorLog string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE comparisons SET jira_comment_id = ?, slack_ts = ?, error_log = ? WHERE id = ?`,
		jiraCommentID, slackTS, errorLog, id,
	)
	if err != nil {
		return xerrors.Errorf("failed to update comparison: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return xerrors.Errorf("failed to count updated comparisons: %w", err)
	}
	if n == 0 {
		return xerrors.Errorf("comparison %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *sqliteStore) GetSlackThread(ctx context.Context, issueKey string) (*SlackThread, error) {
	thread, err := scanSlackThread(s.db.QueryRowContext(ctx, `SELECT issue_key, channel, thread_ts, last_updated FROM slack_threads WHERE issue_key = ?`, issueKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, xerrors.Errorf("slack thread %s: %w", issueKey, ErrNotFound)
	}
	if err != nil {
		return nil, xerrors.Errorf("failed to select slack thread: %w", err)
	}
	return thread, nil
}

func (s *sqliteStore) UpsertSlackThread(ctx context.Context, thread *SlackThread) (*SlackThread, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, xerrors.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO slack_threads (issue_key, channel, thread_ts, last_updated) VALUES (?, ?, ?, ?) ON CONFLICT (issue_key) DO NOTHING`,
		thread.IssueKey, thread.Channel, thread.ThreadTS, formatTime(thread.LastUpdated),
	); err != nil {
		return nil, xerrors.Errorf("failed to insert slack thread: %w", err)
	}

	stored, err := scanSlackThread(tx.QueryRowContext(ctx, `SELECT issue_key, channel, thread_ts, last_updated FROM slack_threads WHERE issue_key = ?`, thread.IssueKey))
	if err != nil {
		return nil, xerrors.Errorf("failed to select slack thread: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, xerrors.Errorf("failed to commit slack thread: %w", err)
	}
	return stored, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanComparison(row scanner) (*Comparison, error) {
	var c Comparison
	var createdAt string
	if err := row.Scan(&c.ID, &c.BaselineID, &c.IssueKey, &c.SlackChannel, &c.NodeID, &c.NodeName, &createdAt, &c.AfterImageKey, &c.DiffImageKey,
		&c.ChangedPercent, &c.ChangedPixels, &c.StructureJSON, &c.JiraCommentID, &c.SlackTS, &c.ErrorLog); err != nil {
		return nil, err
	}

	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanSlackThread(row scanner) (*SlackThread, error) {
	var thread SlackThread
	var lastUpdated string
	if err := row.Scan(&thread.IssueKey, &thread.Channel, &thread.ThreadTS, &lastUpdated); err != nil {
		return nil, err
	}

	var err error
	if thread.LastUpdated, err = parseTime(lastUpdated); err != nil {
		return nil, err
	}
	return &thread, nil
}

// timeLayout is fixed width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, xerrors.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}
