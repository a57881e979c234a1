package audit

import (
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

// ErrInvalidRequest wraps every intake validation failure.
var ErrInvalidRequest = eris.New("audit: invalid request")

// Validate trims the request, checks required fields and normalizes the
// website to an absolute http(s) URL.
func Validate(req model.AuditRequest) (model.AuditRequest, error) {
	req.BusinessName = strings.TrimSpace(req.BusinessName)
	req.Location = strings.TrimSpace(req.Location)
	req.Niche = strings.TrimSpace(req.Niche)
	req.ProfileURL = strings.TrimSpace(req.ProfileURL)

	var errs []string
	if req.BusinessName == "" {
		errs = append(errs, "business_name is required")
	}
	if req.Location == "" {
		errs = append(errs, "location is required")
	}
	if req.Niche == "" {
		errs = append(errs, "niche is required")
	}

	site, err := NormalizeWebsite(req.Website)
	if err != nil {
		errs = append(errs, err.Error())
	}
	req.Website = site

	if v := req.Volume.MonthlyVisitors; v != nil && *v < 0 {
		errs = append(errs, "monthly_visitors must be >= 0")
	}
	if v := req.Volume.MonthlyLeads; v != nil && *v < 0 {
		errs = append(errs, "monthly_leads must be >= 0")
	}
	if v := req.Volume.AvgRevenue; v != nil && *v < 0 {
		errs = append(errs, "avg_revenue must be >= 0")
	}

	if len(errs) > 0 {
		return req, eris.Wrap(ErrInvalidRequest, strings.Join(errs, "; "))
	}
	return req, nil
}

// NormalizeWebsite adds a scheme to bare hosts and rejects anything that
// is not an http(s) URL with a host.
func NormalizeWebsite(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", eris.New("website is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", eris.Errorf("website %q is not a valid URL", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", eris.Errorf("website scheme %q is not supported", u.Scheme)
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	return u.String(), nil
}
