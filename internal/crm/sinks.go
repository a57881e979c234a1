package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/briannafare/local-authority-snapshot-sub000/pkg/notion"
	"github.com/briannafare/local-authority-snapshot-sub000/pkg/salesforce"
)

// WebhookSink posts the lead as JSON.
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink creates a webhook sink. A nil client gets a 10s timeout.
func NewWebhookSink(url string, client *http.Client) *WebhookSink {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookSink{url: url, client: client}
}

func (w *WebhookSink) Name() string { return "webhook" }

func (w *WebhookSink) Send(ctx context.Context, lead Lead) error {
	payload, err := json.Marshal(lead)
	if err != nil {
		return eris.Wrap(err, "webhook: marshal lead")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "webhook: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "webhook: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("webhook: returned status %d", resp.StatusCode)
	}
	return nil
}

// NotionSink upserts the lead into a Notion database keyed by audit ID.
type NotionSink struct {
	leads notion.LeadsDB
}

// NewNotionSink creates a Notion sink writing to leads.
func NewNotionSink(leads notion.LeadsDB) *NotionSink {
	return &NotionSink{leads: leads}
}

func (n *NotionSink) Name() string { return "notion" }

func (n *NotionSink) Send(ctx context.Context, lead Lead) error {
	_, err := notion.UpsertLead(ctx, n.leads, notion.Lead{
		AuditID:     lead.AuditID,
		Name:        lead.BusinessName,
		Website:     lead.Website,
		Location:    lead.Location,
		Niche:       lead.Niche,
		Score:       lead.OverallScore,
		Grade:       lead.Grade,
		KeyFindings: lead.KeyFindings,
		Status:      "New",
	})
	return err
}

// SalesforceSink upserts a Salesforce Lead matched by website.
type SalesforceSink struct {
	client salesforce.Client
}

// NewSalesforceSink creates a Salesforce sink.
func NewSalesforceSink(client salesforce.Client) *SalesforceSink {
	return &SalesforceSink{client: client}
}

func (s *SalesforceSink) Name() string { return "salesforce" }

func (s *SalesforceSink) Send(ctx context.Context, lead Lead) error {
	_, err := salesforce.UpsertLead(ctx, s.client, lead.Website, LeadFields(lead))
	return err
}

// LeadFields maps a lead onto Salesforce Lead fields. D and F grades rate
// Hot, C rates Warm.
func LeadFields(lead Lead) map[string]any {
	rating := "Cold"
	switch lead.Grade {
	case "D", "F":
		rating = "Hot"
	case "C":
		rating = "Warm"
	}

	desc := fmt.Sprintf("Visibility audit %s: %d/100 (%s).", lead.AuditID, lead.OverallScore, lead.Grade)
	if len(lead.KeyFindings) > 0 {
		desc += "\n" + strings.Join(lead.KeyFindings, "\n")
	}
	if lead.Monthly > 0 {
		desc += fmt.Sprintf("\nEstimated monthly opportunity: $%d", lead.Monthly)
	}
	if lead.ReportURL != "" {
		desc += "\nReport: " + lead.ReportURL
	}

	return map[string]any{
		"Company":     lead.BusinessName,
		"Website":     lead.Website,
		"City":        lead.Location,
		"Industry":    lead.Niche,
		"Rating":      rating,
		"Description": desc,
	}
}
