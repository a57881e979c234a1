// Package store persists audit records, their artifacts and the fetched-page
// cache. SQLite and Postgres implementations share the Store contract.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/rotisserie/eris"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/config"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

var (
	// ErrNotFound is returned when an audit or artifact does not exist.
	ErrNotFound = eris.New("store: not found")
	// ErrInvalidTransition is returned when a status change would move an
	// audit backwards or skip a state.
	ErrInvalidTransition = eris.New("store: invalid status transition")
)

// AuditFilter specifies criteria for listing audits.
type AuditFilter struct {
	Status model.AuditStatus `json:"status,omitempty"`
	Limit  int               `json:"limit,omitempty"`
	Offset int               `json:"offset,omitempty"`
}

// Store defines the persistence interface for audits.
type Store interface {
	// Audits
	CreateAudit(ctx context.Context, req model.AuditRequest) (*model.AuditRecord, error)
	GetAudit(ctx context.Context, id string) (*model.AuditRecord, error)
	ListAudits(ctx context.Context, filter AuditFilter) ([]model.AuditRecord, error)
	// TransitionAudit moves an audit from -> to only if it is currently in from.
	TransitionAudit(ctx context.Context, id string, from, to model.AuditStatus) error
	// CompleteAudit writes the result together with the completed status.
	CompleteAudit(ctx context.Context, id string, result *model.AuditResult) error
	FailAudit(ctx context.Context, id string, reason string) error
	SetReportURL(ctx context.Context, id string, url string) error
	UnlockLead(ctx context.Context, id string) error

	// Artifacts
	AddArtifact(ctx context.Context, a *model.Artifact) error
	ListArtifacts(ctx context.Context, auditID string) ([]model.Artifact, error)
	GetArtifact(ctx context.Context, auditID, kind string) (*model.Artifact, error)

	// Page cache
	GetCachedPage(ctx context.Context, urlHash string) ([]byte, error)
	SetCachedPage(ctx context.Context, urlHash string, content []byte, ttl time.Duration) error
	DeleteExpiredPages(ctx context.Context) (int, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// URLHash is the page cache key for a URL.
func URLHash(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// missReason decides why a guarded update touched no rows.
func missReason(exists bool, id string) error {
	if !exists {
		return eris.Wrapf(ErrNotFound, "audit %s", id)
	}
	return eris.Wrapf(ErrInvalidTransition, "audit %s", id)
}

func checkTransition(id string, from, to model.AuditStatus) error {
	if !model.CanTransition(from, to) {
		return eris.Wrapf(ErrInvalidTransition, "audit %s: %s -> %s", id, from, to)
	}
	return nil
}

const defaultListLimit = 100
