package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/export"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/store"
)

var auditsCmd = &cobra.Command{
	Use:   "audits",
	Short: "Inspect stored audits",
	Long:  "Commands for listing, viewing, and exporting audit records.",
}

// -- audits list --

var auditsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audits",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		filter, err := auditFilterFromFlags(cmd)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		audits, err := st.ListAudits(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "audits list")
		}

		if len(audits) == 0 {
			fmt.Fprintln(os.Stderr, "No audits found.")
			return nil
		}

		formatAuditsList(os.Stdout, audits)
		return nil
	},
}

// -- audits show --

var auditsShowCmd = &cobra.Command{
	Use:   "show <audit-id>",
	Short: "Show the full record of an audit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rec, err := st.GetAudit(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "audits show")
		}
		return writeRecord(os.Stdout, rec)
	},
}

// -- audits export --

var auditsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audits to an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		out, _ := cmd.Flags().GetString("out")
		filter, err := auditFilterFromFlags(cmd)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		audits, err := st.ListAudits(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "audits export")
		}
		if err := export.SaveXLSX(out, audits); err != nil {
			return err
		}

		zap.L().Info("audits exported", zap.String("path", out), zap.Int("audits", len(audits)))
		return nil
	},
}

func auditFilterFromFlags(cmd *cobra.Command) (store.AuditFilter, error) {
	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")

	filter := store.AuditFilter{
		Status: model.AuditStatus(status),
		Limit:  limit,
		Offset: offset,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return filter, eris.Errorf("unknown status %q", status)
	}
	return filter, nil
}

// formatAuditsList writes a tabular summary of audits to w.
func formatAuditsList(w io.Writer, audits []model.AuditRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBUSINESS\tLOCATION\tSTATUS\tSCORE\tGRADE\tCREATED")
	for _, a := range audits {
		id := a.ID
		if len(id) > 8 {
			id = id[:8]
		}
		score, grade := "-", "-"
		if a.Result != nil {
			score = fmt.Sprintf("%d", a.Result.OverallScore)
			grade = a.Result.OverallGrade
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			id,
			truncate(a.Request.BusinessName, 30),
			truncate(a.Request.Location, 24),
			a.Status,
			score,
			grade,
			a.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	tw.Flush() //nolint:errcheck
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func init() {
	for _, c := range []*cobra.Command{auditsListCmd, auditsExportCmd} {
		c.Flags().String("status", "", "filter by status (pending, processing, completed, failed)")
		c.Flags().Int("limit", 50, "max audits to return")
		c.Flags().Int("offset", 0, "audits to skip")
	}
	auditsExportCmd.Flags().String("out", "audits.xlsx", "output workbook path")

	auditsCmd.AddCommand(auditsListCmd, auditsShowCmd, auditsExportCmd)
	rootCmd.AddCommand(auditsCmd)
}
