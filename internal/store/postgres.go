package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/db"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	raw     *pgxpool.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, raw: pool, closeFn: pool.Close}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

// Migrate applies the embedded goose migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if s.raw == nil {
		return eris.New("postgres: migrate requires a live pool")
	}
	sqlDB := stdlib.OpenDBFromPool(s.raw)
	defer sqlDB.Close() //nolint:errcheck

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return eris.Wrap(err, "postgres: migrations fs")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, sub)
	if err != nil {
		return eris.Wrap(err, "postgres: goose provider")
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	for _, r := range results {
		zap.L().Info("applied migration",
			zap.String("source", r.Source.Path),
			zap.Duration("duration", r.Duration),
		)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateAudit(ctx context.Context, req model.AuditRequest) (*model.AuditRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal request")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO audits (id, request, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, reqJSON, string(model.AuditStatusPending), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert audit")
	}

	return &model.AuditRecord{
		ID:        id,
		Request:   req,
		Status:    model.AuditStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

const pgAuditColumns = `id, request, status, result, error, report_url, lead_unlocked, created_at, updated_at, completed_at`

func (s *PostgresStore) GetAudit(ctx context.Context, id string) (*model.AuditRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgAuditColumns+` FROM audits WHERE id = $1`,
		id,
	)
	a, err := scanPgAudit(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get audit %s", id)
	}
	return a, nil
}

func (s *PostgresStore) ListAudits(ctx context.Context, filter AuditFilter) ([]model.AuditRecord, error) {
	query := `SELECT ` + pgAuditColumns + ` FROM audits WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list audits")
	}
	defer rows.Close()

	var audits []model.AuditRecord
	for rows.Next() {
		a, err := scanPgAudit(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan audit")
		}
		audits = append(audits, *a)
	}
	return audits, eris.Wrap(rows.Err(), "postgres: list audits iterate")
}

func (s *PostgresStore) TransitionAudit(ctx context.Context, id string, from, to model.AuditStatus) error {
	if err := checkTransition(id, from, to); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE audits SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		string(to), time.Now().UTC(), id, string(from),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: transition audit %s", id)
	}
	return s.guarded(ctx, tag, id)
}

func (s *PostgresStore) CompleteAudit(ctx context.Context, id string, result *model.AuditResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}
	now := time.Now().UTC()

	tag, err := s.pool.Exec(ctx,
		`UPDATE audits SET result = $1, status = $2, updated_at = $3, completed_at = $3
		 WHERE id = $4 AND status = $5`,
		resultJSON, string(model.AuditStatusCompleted), now, id, string(model.AuditStatusProcessing),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete audit %s", id)
	}
	return s.guarded(ctx, tag, id)
}

func (s *PostgresStore) FailAudit(ctx context.Context, id string, reason string) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE audits SET error = $1, status = $2, updated_at = $3, completed_at = $3
		 WHERE id = $4 AND status IN ($5, $6)`,
		reason, string(model.AuditStatusFailed), now, id,
		string(model.AuditStatusPending), string(model.AuditStatusProcessing),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail audit %s", id)
	}
	return s.guarded(ctx, tag, id)
}

func (s *PostgresStore) SetReportURL(ctx context.Context, id string, url string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE audits SET report_url = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		url, time.Now().UTC(), id, string(model.AuditStatusCompleted),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set report url %s", id)
	}
	return s.guarded(ctx, tag, id)
}

func (s *PostgresStore) UnlockLead(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE audits SET lead_unlocked = true, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: unlock lead %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "audit %s", id)
	}
	return nil
}

func (s *PostgresStore) guarded(ctx context.Context, tag pgconn.CommandTag, id string) error {
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM audits WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return eris.Wrapf(err, "postgres: check audit %s", id)
	}
	return missReason(exists, id)
}

func (s *PostgresStore) AddArtifact(ctx context.Context, a *model.Artifact) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_artifacts (id, audit_id, kind, content_type, url, data, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.AuditID, a.Kind, a.ContentType, a.URL, a.Data, a.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert artifact for audit %s", a.AuditID)
}

func (s *PostgresStore) ListArtifacts(ctx context.Context, auditID string) ([]model.Artifact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, audit_id, kind, content_type, url, data, created_at
		 FROM audit_artifacts WHERE audit_id = $1 ORDER BY created_at`,
		auditID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list artifacts")
	}
	defer rows.Close()

	var out []model.Artifact
	for rows.Next() {
		var a model.Artifact
		if err := rows.Scan(&a.ID, &a.AuditID, &a.Kind, &a.ContentType, &a.URL, &a.Data, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan artifact")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list artifacts iterate")
}

func (s *PostgresStore) GetArtifact(ctx context.Context, auditID, kind string) (*model.Artifact, error) {
	var a model.Artifact
	err := s.pool.QueryRow(ctx,
		`SELECT id, audit_id, kind, content_type, url, data, created_at
		 FROM audit_artifacts WHERE audit_id = $1 AND kind = $2
		 ORDER BY created_at DESC LIMIT 1`,
		auditID, kind,
	).Scan(&a.ID, &a.AuditID, &a.Kind, &a.ContentType, &a.URL, &a.Data, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "artifact %s/%s", auditID, kind)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get artifact")
	}
	return &a, nil
}

func (s *PostgresStore) GetCachedPage(ctx context.Context, urlHash string) ([]byte, error) {
	var content []byte
	err := s.pool.QueryRow(ctx,
		`SELECT content FROM page_cache
		 WHERE url_hash = $1 AND expires_at > now()`,
		urlHash,
	).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get cached page")
	}
	return content, nil
}

func (s *PostgresStore) SetCachedPage(ctx context.Context, urlHash string, content []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO page_cache (url_hash, content, cached_at, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (url_hash) DO UPDATE SET content = $2, cached_at = $3, expires_at = $4`,
		urlHash, content, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached page")
}

func (s *PostgresStore) DeleteExpiredPages(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM page_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired pages")
	}
	return int(tag.RowsAffected()), nil
}

func scanPgAudit(row pgx.Row) (*model.AuditRecord, error) {
	var a model.AuditRecord
	var reqJSON []byte
	var resultJSON *[]byte
	var status string

	err := row.Scan(&a.ID, &reqJSON, &status, &resultJSON, &a.Error, &a.ReportURL,
		&a.LeadUnlocked, &a.CreatedAt, &a.UpdatedAt, &a.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Status = model.AuditStatus(status)

	if err := json.Unmarshal(reqJSON, &a.Request); err != nil {
		return nil, eris.Wrap(err, "unmarshal request")
	}
	if resultJSON != nil {
		a.Result = &model.AuditResult{}
		if err := json.Unmarshal(*resultJSON, a.Result); err != nil {
			return nil, eris.Wrap(err, "unmarshal result")
		}
	}
	return &a, nil
}
