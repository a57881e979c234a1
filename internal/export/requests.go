package export

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

// Recognized request columns. Headers are matched case-insensitively with
// spaces treated as underscores.
const (
	ColBusinessName    = "business_name"
	ColWebsite         = "website"
	ColProfileURL      = "profile_url"
	ColLocation        = "location"
	ColNiche           = "niche"
	ColRunsAds         = "runs_ads"
	ColHasListing      = "has_listing"
	ColActiveSocial    = "active_social"
	ColUsesAutomation  = "uses_automation"
	ColHasCallCoverage = "has_call_coverage"
	ColMonthlyVisitors = "monthly_visitors"
	ColMonthlyLeads    = "monthly_leads"
	ColAvgRevenue      = "avg_revenue"
	ColGoals           = "goals"
	ColPainPoints      = "pain_points"
)

// ReadRequests loads audit requests from a .csv or .xlsx file. The first
// row is the header; blank rows are skipped.
func ReadRequests(path string) ([]model.AuditRequest, error) {
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx":
		rows, err = readXLSX(path)
	default:
		return nil, eris.Errorf("export: unsupported request file %s", path)
	}
	if err != nil {
		return nil, err
	}
	return ParseRequests(rows)
}

// ParseRequests maps header-keyed rows onto requests. Row numbers in
// errors are 1-based and count the header.
func ParseRequests(rows [][]string) ([]model.AuditRequest, error) {
	if len(rows) == 0 {
		return nil, eris.New("export: request file is empty")
	}
	cols := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		cols[normalizeHeader(h)] = i
	}
	if _, ok := cols[ColBusinessName]; !ok {
		return nil, eris.Errorf("export: missing %s column", ColBusinessName)
	}

	var out []model.AuditRequest
	for n, row := range rows[1:] {
		if blank(row) {
			continue
		}
		get := func(col string) string {
			if i, ok := cols[col]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		req := model.AuditRequest{
			BusinessName: get(ColBusinessName),
			Website:      get(ColWebsite),
			ProfileURL:   get(ColProfileURL),
			Location:     get(ColLocation),
			Niche:        get(ColNiche),
			Flags: model.OperationalFlags{
				RunsAds:         truthy(get(ColRunsAds)),
				HasListing:      truthy(get(ColHasListing)),
				ActiveSocial:    truthy(get(ColActiveSocial)),
				UsesAutomation:  truthy(get(ColUsesAutomation)),
				HasCallCoverage: truthy(get(ColHasCallCoverage)),
			},
			Goals:      splitList(get(ColGoals)),
			PainPoints: splitList(get(ColPainPoints)),
		}

		var err error
		if req.Volume.MonthlyVisitors, err = optInt(get(ColMonthlyVisitors)); err != nil {
			return nil, eris.Wrapf(err, "export: row %d %s", n+2, ColMonthlyVisitors)
		}
		if req.Volume.MonthlyLeads, err = optInt(get(ColMonthlyLeads)); err != nil {
			return nil, eris.Wrapf(err, "export: row %d %s", n+2, ColMonthlyLeads)
		}
		if req.Volume.AvgRevenue, err = optFloat(get(ColAvgRevenue)); err != nil {
			return nil, eris.Wrapf(err, "export: row %d %s", n+2, ColAvgRevenue)
		}
		out = append(out, req)
	}
	return out, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("xlsx: %s has no sheets", path)
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func truthy(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y", "x":
		return true
	}
	return false
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ";") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func optInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func optFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.TrimPrefix(strings.ReplaceAll(s, ",", ""), "$"), 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
