// Package crm hands completed audits to the configured lead sinks. Every
// sink is optional and delivery is best effort: failures are logged and
// never touch the audit record.
package crm

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/config"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/notion"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/salesforce"
)

const maxFindings = 3

// Lead is the CRM view of a completed audit.
type Lead struct {
	AuditID      string    `json:"audit_id"`
	BusinessName string    `json:"business_name"`
	Website      string    `json:"website"`
	Location     string    `json:"location"`
	Niche        string    `json:"niche"`
	OverallScore int       `json:"overall_score"`
	Grade        string    `json:"grade"`
	KeyFindings  []string  `json:"key_findings,omitempty"`
	Monthly      int64     `json:"monthly_opportunity,omitempty"`
	ReportURL    string    `json:"report_url,omitempty"`
	CompletedAt  time.Time `json:"completed_at"`
}

// NewLead builds the lead payload from a completed record.
func NewLead(rec *model.AuditRecord) Lead {
	lead := Lead{
		AuditID:      rec.ID,
		BusinessName: rec.Request.BusinessName,
		Website:      rec.Request.Website,
		Location:     rec.Request.Location,
		Niche:        rec.Request.Niche,
		ReportURL:    rec.ReportURL,
		CompletedAt:  rec.UpdatedAt,
	}
	if rec.CompletedAt != nil {
		lead.CompletedAt = *rec.CompletedAt
	}
	if r := rec.Result; r != nil {
		lead.OverallScore = r.OverallScore
		lead.Grade = r.OverallGrade
		if r.Summary != nil {
			lead.KeyFindings = r.Summary.TopPriorities[:min(maxFindings, len(r.Summary.TopPriorities))]
		}
		if r.Revenue != nil {
			lead.Monthly = r.Revenue.MonthlyOpportunity
		}
	}
	return lead
}

// Sink delivers one lead.
type Sink interface {
	Name() string
	Send(ctx context.Context, lead Lead) error
}

// Dispatcher fans a completed audit out to every sink.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
}

// NewDispatcher creates a dispatcher over sinks. A zero timeout means 15s.
func NewDispatcher(timeout time.Duration, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{sinks: sinks, timeout: timeout}
}

// New builds the sinks enabled in cfg. It returns a nil dispatcher when
// no sink is configured.
func New(cfg config.CRMConfig) (*Dispatcher, error) {
	var sinks []Sink
	if cfg.WebhookURL != "" {
		sinks = append(sinks, NewWebhookSink(cfg.WebhookURL, nil))
	}
	if cfg.Notion.Token != "" && cfg.Notion.LeadDB != "" {
		sinks = append(sinks, NewNotionSink(notion.NewLeadsDB(cfg.Notion.Token, cfg.Notion.LeadDB)))
	}
	if cfg.Salesforce.ClientID != "" {
		key, err := os.ReadFile(cfg.Salesforce.KeyPath)
		if err != nil {
			return nil, eris.Wrapf(err, "crm: read salesforce key %s", cfg.Salesforce.KeyPath)
		}
		sf, err := salesforce.ConnectJWT(salesforce.JWTCreds{
			LoginURL:    cfg.Salesforce.LoginURL,
			Username:    cfg.Salesforce.Username,
			ConsumerKey: cfg.Salesforce.ClientID,
			PrivateKey:  string(key),
		}, salesforce.WithRateLimit(5))
		if err != nil {
			return nil, eris.Wrap(err, "crm: connect salesforce")
		}
		sinks = append(sinks, NewSalesforceSink(sf))
	}
	if len(sinks) == 0 {
		return nil, nil
	}
	return NewDispatcher(time.Duration(cfg.TimeoutSecs)*time.Second, sinks...), nil
}

// Sinks returns the configured sink names.
func (d *Dispatcher) Sinks() []string {
	names := make([]string, 0, len(d.sinks))
	for _, s := range d.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Notify dispatches rec, discarding the count.
func (d *Dispatcher) Notify(ctx context.Context, rec *model.AuditRecord) {
	d.Dispatch(ctx, rec)
}

// Dispatch sends the lead to each sink under one shared timeout and
// returns how many accepted it.
func (d *Dispatcher) Dispatch(ctx context.Context, rec *model.AuditRecord) int {
	if d == nil || len(d.sinks) == 0 {
		return 0
	}
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	lead := NewLead(rec)
	log := zap.L().With(zap.String("audit_id", rec.ID))

	sent := 0
	for _, s := range d.sinks {
		if err := s.Send(ctx, lead); err != nil {
			log.Warn("crm: lead dispatch failed", zap.String("sink", s.Name()), zap.Error(err))
			continue
		}
		log.Info("crm: lead dispatched", zap.String("sink", s.Name()))
		sent++
	}
	return sent
}
