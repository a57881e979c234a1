package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS audits (
	id            TEXT PRIMARY KEY,
	request       TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	result        TEXT,
	error         TEXT NOT NULL DEFAULT '',
	report_url    TEXT NOT NULL DEFAULT '',
	lead_unlocked INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL,
	completed_at  DATETIME
);

CREATE TABLE IF NOT EXISTS audit_artifacts (
	id           TEXT PRIMARY KEY,
	audit_id     TEXT NOT NULL REFERENCES audits(id),
	kind         TEXT NOT NULL,
	content_type TEXT NOT NULL,
	url          TEXT NOT NULL DEFAULT '',
	data         BLOB,
	created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS page_cache (
	url_hash   TEXT PRIMARY KEY,
	content    BLOB NOT NULL,
	cached_at  DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audits_status ON audits(status);
CREATE INDEX IF NOT EXISTS idx_audits_created_at ON audits(created_at);
CREATE INDEX IF NOT EXISTS idx_audit_artifacts_audit_id ON audit_artifacts(audit_id);
CREATE INDEX IF NOT EXISTS idx_page_cache_expires_at ON page_cache(expires_at);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateAudit(ctx context.Context, req model.AuditRequest) (*model.AuditRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal request")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audits (id, request, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(reqJSON), string(model.AuditStatusPending), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert audit")
	}

	return &model.AuditRecord{
		ID:        id,
		Request:   req,
		Status:    model.AuditStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

const sqliteAuditColumns = `id, request, status, result, error, report_url, lead_unlocked, created_at, updated_at, completed_at`

func (s *SQLiteStore) GetAudit(ctx context.Context, id string) (*model.AuditRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteAuditColumns+` FROM audits WHERE id = ?`,
		id,
	)
	return scanAudit(row)
}

func (s *SQLiteStore) ListAudits(ctx context.Context, filter AuditFilter) ([]model.AuditRecord, error) {
	query := `SELECT ` + sqliteAuditColumns + ` FROM audits WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list audits")
	}
	defer rows.Close()

	var audits []model.AuditRecord
	for rows.Next() {
		a, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		audits = append(audits, *a)
	}
	return audits, eris.Wrap(rows.Err(), "sqlite: list audits iterate")
}

func (s *SQLiteStore) TransitionAudit(ctx context.Context, id string, from, to model.AuditStatus) error {
	if err := checkTransition(id, from, to); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE audits SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), time.Now().UTC(), id, string(from),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: transition audit %s", id)
	}
	return s.guarded(ctx, res, id)
}

func (s *SQLiteStore) CompleteAudit(ctx context.Context, id string, result *model.AuditResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE audits SET result = ?, status = ?, updated_at = ?, completed_at = ?
		 WHERE id = ? AND status = ?`,
		string(resultJSON), string(model.AuditStatusCompleted), now, now,
		id, string(model.AuditStatusProcessing),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete audit %s", id)
	}
	return s.guarded(ctx, res, id)
}

func (s *SQLiteStore) FailAudit(ctx context.Context, id string, reason string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE audits SET error = ?, status = ?, updated_at = ?, completed_at = ?
		 WHERE id = ? AND status IN (?, ?)`,
		reason, string(model.AuditStatusFailed), now, now,
		id, string(model.AuditStatusPending), string(model.AuditStatusProcessing),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail audit %s", id)
	}
	return s.guarded(ctx, res, id)
}

func (s *SQLiteStore) SetReportURL(ctx context.Context, id string, url string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE audits SET report_url = ?, updated_at = ? WHERE id = ? AND status = ?`,
		url, time.Now().UTC(), id, string(model.AuditStatusCompleted),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set report url %s", id)
	}
	return s.guarded(ctx, res, id)
}

func (s *SQLiteStore) UnlockLead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE audits SET lead_unlocked = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: unlock lead %s", id)
	}
	return checkRowsAffected(res, "audit", id)
}

// guarded turns a zero-row conditional update into ErrNotFound or
// ErrInvalidTransition.
func (s *SQLiteStore) guarded(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n > 0 {
		return nil
	}
	var one int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM audits WHERE id = ?`, id).Scan(&one)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return eris.Wrapf(err, "sqlite: check audit %s", id)
	}
	return missReason(err == nil, id)
}

func (s *SQLiteStore) AddArtifact(ctx context.Context, a *model.Artifact) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_artifacts (id, audit_id, kind, content_type, url, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.AuditID, a.Kind, a.ContentType, a.URL, a.Data, a.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert artifact for audit %s", a.AuditID)
}

func (s *SQLiteStore) ListArtifacts(ctx context.Context, auditID string) ([]model.Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, audit_id, kind, content_type, url, data, created_at
		 FROM audit_artifacts WHERE audit_id = ? ORDER BY created_at`,
		auditID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list artifacts")
	}
	defer rows.Close()

	var out []model.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list artifacts iterate")
}

func (s *SQLiteStore) GetArtifact(ctx context.Context, auditID, kind string) (*model.Artifact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, audit_id, kind, content_type, url, data, created_at
		 FROM audit_artifacts WHERE audit_id = ? AND kind = ?
		 ORDER BY created_at DESC LIMIT 1`,
		auditID, kind,
	)
	return scanArtifact(row)
}

func (s *SQLiteStore) GetCachedPage(ctx context.Context, urlHash string) ([]byte, error) {
	var content []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM page_cache WHERE url_hash = ? AND expires_at > ?`,
		urlHash, time.Now().UTC(),
	).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached page")
	}
	return content, nil
}

func (s *SQLiteStore) SetCachedPage(ctx context.Context, urlHash string, content []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO page_cache (url_hash, content, cached_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(url_hash) DO UPDATE SET content = excluded.content,
		 cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		urlHash, content, now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set cached page")
}

func (s *SQLiteStore) DeleteExpiredPages(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM page_cache WHERE expires_at <= ?`, time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired pages")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAudit(row scannable) (*model.AuditRecord, error) {
	var a model.AuditRecord
	var reqJSON string
	var resultJSON sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(&a.ID, &reqJSON, &a.Status, &resultJSON, &a.Error, &a.ReportURL,
		&a.LeadUnlocked, &a.CreatedAt, &a.UpdatedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "audit")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan audit")
	}

	if err := json.Unmarshal([]byte(reqJSON), &a.Request); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal request")
	}
	if resultJSON.Valid {
		a.Result = &model.AuditResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), a.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	if completedAt.Valid {
		t := completedAt.Time
		a.CompletedAt = &t
	}
	return &a, nil
}

func scanArtifact(row scannable) (*model.Artifact, error) {
	var a model.Artifact
	err := row.Scan(&a.ID, &a.AuditID, &a.Kind, &a.ContentType, &a.URL, &a.Data, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "artifact")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan artifact")
	}
	return &a, nil
}
