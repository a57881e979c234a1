package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// LeadSource is stamped on every Lead the audit creates.
const LeadSource = "Visibility Audit"

// Lead is the subset of the Salesforce Lead object the audit reads back.
type Lead struct {
	ID          string `json:"Id" salesforce:"Id"`
	Company     string `json:"Company" salesforce:"Company"`
	LastName    string `json:"LastName" salesforce:"LastName"`
	Website     string `json:"Website" salesforce:"Website"`
	City        string `json:"City" salesforce:"City"`
	Industry    string `json:"Industry" salesforce:"Industry"`
	Description string `json:"Description" salesforce:"Description"`
	Rating      string `json:"Rating" salesforce:"Rating"`
	LeadSource  string `json:"LeadSource" salesforce:"LeadSource"`
}

var leadFields = []string{
	"Id", "Company", "LastName", "Website", "City",
	"Industry", "Description", "Rating", "LeadSource",
}

// FindLeadByWebsite returns the open Lead whose Website matches, or nil.
func FindLeadByWebsite(ctx context.Context, c Client, website string) (*Lead, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Lead WHERE Website LIKE '%%%s%%' AND IsConverted = false LIMIT 1",
		strings.Join(leadFields, ", "),
		escapeSoql(website),
	)

	var leads []Lead
	if err := c.Query(ctx, soql, &leads); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find lead by website %s", website))
	}
	if len(leads) == 0 {
		return nil, nil
	}
	return &leads[0], nil
}

// UpsertLead updates the existing Lead for the website, or creates one.
// Company is required. It returns the Lead ID.
func UpsertLead(ctx context.Context, c Client, website string, fields map[string]any) (string, error) {
	if fields["Company"] == nil || fields["Company"] == "" {
		return "", eris.New("sf: lead Company is required")
	}
	if website != "" {
		existing, err := FindLeadByWebsite(ctx, c, website)
		if err != nil {
			return "", err
		}
		if existing != nil {
			if err := c.UpdateOne(ctx, "Lead", existing.ID, fields); err != nil {
				return "", eris.Wrap(err, fmt.Sprintf("sf: update lead %s", existing.ID))
			}
			return existing.ID, nil
		}
	}

	rec := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		rec[k] = v
	}
	if _, ok := rec["LastName"]; !ok {
		rec["LastName"] = rec["Company"]
	}
	rec["LeadSource"] = LeadSource
	id, err := c.InsertOne(ctx, "Lead", rec)
	if err != nil {
		return "", eris.Wrap(err, "sf: create lead")
	}
	return id, nil
}

// escapeSoql escapes characters that are special inside SOQL string literals.
func escapeSoql(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return r.Replace(s)
}
