// Package notion keeps audited businesses as leads in a Notion database.
package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// LeadsDB is one Notion leads database, keyed by the Audit ID property.
type LeadsDB interface {
	// FindLead returns the page ID holding the audit's lead, or "" when
	// the database has none.
	FindLead(ctx context.Context, auditID string) (string, error)
	CreateLead(ctx context.Context, props notionapi.Properties) (string, error)
	UpdateLead(ctx context.Context, pageID string, props notionapi.Properties) error
}

// requestsPerSecond is Notion's average rate limit per integration.
const requestsPerSecond = 3

type leadsDB struct {
	inner   *notionapi.Client
	dbID    notionapi.DatabaseID
	limiter *rate.Limiter
}

// NewLeadsDB binds the integration token to the leads database dbID. Calls
// are throttled to Notion's rate limit.
func NewLeadsDB(token, dbID string) LeadsDB {
	return &leadsDB{
		inner:   notionapi.NewClient(notionapi.Token(token)),
		dbID:    notionapi.DatabaseID(dbID),
		limiter: rate.NewLimiter(requestsPerSecond, 1),
	}
}

func (d *leadsDB) FindLead(ctx context.Context, auditID string) (string, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "notion: rate limit")
	}
	resp, err := d.inner.Database.Query(ctx, d.dbID, findLeadQuery(auditID))
	if err != nil {
		return "", eris.Wrapf(err, "notion: find lead %s", auditID)
	}
	if len(resp.Results) == 0 {
		return "", nil
	}
	return string(resp.Results[0].ID), nil
}

func (d *leadsDB) CreateLead(ctx context.Context, props notionapi.Properties) (string, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "notion: rate limit")
	}
	page, err := d.inner.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: d.dbID,
		},
		Properties: props,
	})
	if err != nil {
		return "", eris.Wrapf(err, "notion: create page in %s", d.dbID)
	}
	return string(page.ID), nil
}

func (d *leadsDB) UpdateLead(ctx context.Context, pageID string, props notionapi.Properties) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "notion: rate limit")
	}
	_, err := d.inner.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{Properties: props})
	return eris.Wrapf(err, "notion: update page %s", pageID)
}

// findLeadQuery matches the single page whose Audit ID equals auditID.
func findLeadQuery(auditID string) *notionapi.DatabaseQueryRequest {
	return &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: PropAuditID,
			RichText: &notionapi.TextFilterCondition{Equals: auditID},
		},
		PageSize: 1,
	}
}
