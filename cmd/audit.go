package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/audit"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/export"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Run a visibility audit and print the result",
	Long: "Runs one audit from flags, or every row of a CSV/XLSX file with --file. " +
		"Single audits print the stored record as JSON.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		file, _ := cmd.Flags().GetString("file")
		if file == "" {
			for _, name := range []string{"name", "website", "location", "niche"} {
				if v, _ := cmd.Flags().GetString(name); v == "" {
					return eris.Errorf("audit: --%s is required (or use --file)", name)
				}
			}
		}

		env, err := initAudit(ctx, "audit")
		if err != nil {
			return err
		}
		defer env.Close()
		defer env.Service.Wait()

		if file != "" {
			reqs, err := export.ReadRequests(file)
			if err != nil {
				return err
			}
			concurrency, _ := cmd.Flags().GetInt("concurrency")
			return runBatch(ctx, reqs, concurrency, env.Service.RunInline)
		}

		rec, err := env.Service.RunInline(ctx, requestFromFlags(cmd))
		if rec == nil {
			return err
		}
		if werr := writeRecord(os.Stdout, rec); werr != nil {
			return werr
		}
		return err
	},
}

type runFunc func(ctx context.Context, req model.AuditRequest) (*model.AuditRecord, error)

// runBatch runs every request with bounded concurrency. Individual
// failures are logged and counted; they do not stop the batch.
func runBatch(ctx context.Context, reqs []model.AuditRequest, concurrency int, run runFunc) error {
	if len(reqs) == 0 {
		zap.L().Info("no audit requests found")
		return nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("requests", len(reqs)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64
	for _, req := range reqs {
		g.Go(func() error {
			log := zap.L().With(zap.String("business", req.BusinessName))

			rec, err := run(gctx, req)
			if err != nil {
				failed.Add(1)
				log.Error("audit failed", zap.Error(err))
				return nil
			}

			succeeded.Add(1)
			log.Info("audit complete",
				zap.String("audit_id", rec.ID),
				zap.Int("overall_score", rec.Result.OverallScore),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return nil
}

func requestFromFlags(cmd *cobra.Command) model.AuditRequest {
	f := cmd.Flags()
	str := func(name string) string {
		v, _ := f.GetString(name)
		return v
	}
	flag := func(name string) bool {
		v, _ := f.GetBool(name)
		return v
	}

	req := model.AuditRequest{
		BusinessName: str("name"),
		Website:      str("website"),
		ProfileURL:   str("profile-url"),
		Location:     str("location"),
		Niche:        str("niche"),
		Flags: model.OperationalFlags{
			RunsAds:         flag("runs-ads"),
			HasListing:      flag("has-listing"),
			ActiveSocial:    flag("active-social"),
			UsesAutomation:  flag("uses-automation"),
			HasCallCoverage: flag("call-coverage"),
		},
	}
	req.Goals, _ = f.GetStringSlice("goal")
	req.PainPoints, _ = f.GetStringSlice("pain-point")

	// Volumes are optional; only set what was given.
	if f.Changed("visitors") {
		v, _ := f.GetInt("visitors")
		req.Volume.MonthlyVisitors = &v
	}
	if f.Changed("leads") {
		v, _ := f.GetInt("leads")
		req.Volume.MonthlyLeads = &v
	}
	if f.Changed("avg-revenue") {
		v, _ := f.GetFloat64("avg-revenue")
		req.Volume.AvgRevenue = &v
	}
	return req
}

func writeRecord(w io.Writer, rec *model.AuditRecord) error {
	b, err := audit.ResultJSON(rec)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func init() {
	f := auditCmd.Flags()
	f.String("name", "", "business name")
	f.String("website", "", "business website")
	f.String("location", "", "city and state, e.g. \"Brooklyn, NY\"")
	f.String("niche", "", "business category, e.g. \"pizza restaurant\"")
	f.String("profile-url", "", "optional business profile URL")
	f.Bool("runs-ads", false, "business runs paid ads")
	f.Bool("has-listing", false, "business has a maps listing")
	f.Bool("active-social", false, "business posts on social media")
	f.Bool("uses-automation", false, "business uses follow-up automation")
	f.Bool("call-coverage", false, "calls are answered after hours")
	f.Int("visitors", 0, "monthly website visitors")
	f.Int("leads", 0, "monthly leads")
	f.Float64("avg-revenue", 0, "average revenue per customer")
	f.StringSlice("goal", nil, "business goal (repeatable)")
	f.StringSlice("pain-point", nil, "pain point (repeatable)")
	f.String("file", "", "CSV or XLSX file of audit requests")
	f.Int("concurrency", 3, "concurrent audits when using --file")
	rootCmd.AddCommand(auditCmd)
}
