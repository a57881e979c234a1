package notion

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// Lead property names in the leads database.
const (
	PropName     = "Name"
	PropAuditID  = "Audit ID"
	PropWebsite  = "Website"
	PropLocation = "Location"
	PropNiche    = "Niche"
	PropScore    = "Score"
	PropGrade    = "Grade"
	PropFindings = "Key Findings"
	PropStatus   = "Status"
)

// Lead is one audited business as stored in Notion.
type Lead struct {
	AuditID     string
	Name        string
	Website     string
	Location    string
	Niche       string
	Score       int
	Grade       string
	KeyFindings []string
	Status      string
}

// UpsertLead writes the lead, updating the audit's existing page when there
// is one. It returns the page ID.
func UpsertLead(ctx context.Context, db LeadsDB, lead Lead) (string, error) {
	pageID, err := db.FindLead(ctx, lead.AuditID)
	if err != nil {
		return "", err
	}
	props := LeadProperties(lead)
	if pageID != "" {
		if err := db.UpdateLead(ctx, pageID, props); err != nil {
			return "", eris.Wrapf(err, "notion: update lead %s", lead.AuditID)
		}
		return pageID, nil
	}

	pageID, err = db.CreateLead(ctx, props)
	if err != nil {
		return "", eris.Wrapf(err, "notion: create lead %s", lead.AuditID)
	}
	return pageID, nil
}

// LeadProperties converts a Lead to Notion page properties. Name is the
// title property; empty optional fields are omitted.
func LeadProperties(lead Lead) notionapi.Properties {
	props := notionapi.Properties{
		PropName: notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: richText(lead.Name),
		},
		PropAuditID: notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(lead.AuditID),
		},
		PropScore: notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: float64(lead.Score),
		},
	}
	if lead.Website != "" {
		props[PropWebsite] = notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  normalizeURL(lead.Website),
		}
	}
	for k, v := range map[string]string{PropLocation: lead.Location, PropNiche: lead.Niche} {
		if v != "" {
			props[k] = notionapi.RichTextProperty{
				Type:     notionapi.PropertyTypeRichText,
				RichText: richText(v),
			}
		}
	}
	if lead.Grade != "" {
		props[PropGrade] = notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: lead.Grade},
		}
	}
	if len(lead.KeyFindings) > 0 {
		props[PropFindings] = notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(truncate(strings.Join(lead.KeyFindings, "\n"), 2000)),
		}
	}
	if lead.Status != "" {
		props[PropStatus] = notionapi.StatusProperty{
			Type:   notionapi.PropertyTypeStatus,
			Status: notionapi.Status{Name: lead.Status},
		}
	}
	return props
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}},
	}
}

// normalizeURL ensures a domain has an https:// scheme prefix.
func normalizeURL(domain string) string {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return ""
	}
	if !strings.Contains(domain, "://") {
		return "https://" + domain
	}
	return domain
}

// Notion rejects rich text segments over 2000 characters.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
