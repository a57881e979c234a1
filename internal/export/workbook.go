// Package export reads audit requests from spreadsheets and writes audit
// results to XLSX workbooks.
package export

import (
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

// Sheet names in an exported workbook.
const (
	SheetAudits = "Audits"
	SheetGaps   = "Gaps"
)

var auditHeader = []string{
	"ID", "Business", "Website", "Location", "Niche", "Status",
	"Overall", "Grade",
	"Profile", "SEO", "Competitive", "AI Discoverability", "Lead Capture", "Follow-up",
	"Position", "Monthly Opportunity", "Annual Opportunity",
	"Report URL", "Lead Unlocked", "Created", "Completed", "Error",
}

var gapHeader = []string{
	"Audit ID", "Business", "Metric", "Subject", "Average", "Gap %", "Priority", "Recommendation",
}

// Workbook builds the export workbook: one row per audit on the Audits
// sheet and one row per competitive gap on the Gaps sheet.
func Workbook(audits []model.AuditRecord) (*xlsx.File, error) {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet(SheetAudits)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: add audits sheet")
	}
	addStrings(sheet.AddRow(), auditHeader)

	gaps, err := f.AddSheet(SheetGaps)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: add gaps sheet")
	}
	addStrings(gaps.AddRow(), gapHeader)

	for i := range audits {
		a := &audits[i]
		writeAudit(sheet.AddRow(), a)
		if a.Result == nil || a.Result.Benchmark == nil {
			continue
		}
		for _, g := range a.Result.Benchmark.Gaps {
			row := gaps.AddRow()
			addStrings(row, []string{a.ID, a.Request.BusinessName, g.Metric})
			row.AddCell().SetFloat(g.Subject)
			row.AddCell().SetFloat(g.Average)
			row.AddCell().SetInt(g.GapPercent)
			addStrings(row, []string{string(g.Priority), g.Recommendation})
		}
	}
	return f, nil
}

// WriteXLSX writes the workbook for audits to w.
func WriteXLSX(w io.Writer, audits []model.AuditRecord) error {
	f, err := Workbook(audits)
	if err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "xlsx: write workbook")
	}
	return nil
}

// SaveXLSX writes the workbook for audits to path.
func SaveXLSX(path string, audits []model.AuditRecord) error {
	f, err := Workbook(audits)
	if err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

func writeAudit(row *xlsx.Row, a *model.AuditRecord) {
	addStrings(row, []string{
		a.ID, a.Request.BusinessName, a.Request.Website, a.Request.Location, a.Request.Niche, string(a.Status),
	})

	r := a.Result
	if r == nil {
		// Keep the trailing columns aligned with the header.
		for range 11 {
			row.AddCell()
		}
	} else {
		row.AddCell().SetInt(r.OverallScore)
		row.AddCell().SetString(r.OverallGrade)
		for _, cat := range model.AllCategories {
			c := row.AddCell()
			if res := r.Categories.Get(cat); res != nil {
				c.SetInt(res.Base().Score)
			}
		}
		pos := row.AddCell()
		if r.Benchmark != nil {
			pos.SetString(string(r.Benchmark.Position))
		}
		monthly, annual := row.AddCell(), row.AddCell()
		if r.Revenue != nil {
			monthly.SetInt64(r.Revenue.MonthlyOpportunity)
			annual.SetInt64(r.Revenue.AnnualOpportunity)
		}
	}

	row.AddCell().SetString(a.ReportURL)
	row.AddCell().SetBool(a.LeadUnlocked)
	row.AddCell().SetString(a.CreatedAt.UTC().Format(time.RFC3339))
	completed := row.AddCell()
	if a.CompletedAt != nil {
		completed.SetString(a.CompletedAt.UTC().Format(time.RFC3339))
	}
	row.AddCell().SetString(a.Error)
}

func addStrings(row *xlsx.Row, values []string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
