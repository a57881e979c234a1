package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/geogrid"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/source"
)

var geogridCmd = &cobra.Command{
	Use:   "geogrid",
	Short: "Sample local map rank over a grid around a business",
	Long: "Runs the geo-visibility sampler on its own, without a full audit. " +
		"Prints the grid as JSON and optionally writes it as GeoJSON.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		f := cmd.Flags()

		name, _ := f.GetString("name")
		website, _ := f.GetString("website")
		location, _ := f.GetString("location")
		niche, _ := f.GetString("niche")
		if name == "" || niche == "" {
			return eris.New("geogrid: --name and --niche are required")
		}

		if err := cfg.Validate("audit"); err != nil {
			return err
		}
		sampler, err := newSampler(source.NewClients(cfg), breakersFromConfig(cfg.Circuit))
		if err != nil {
			return err
		}

		req := geogridRequest(cmd, model.AuditRequest{
			BusinessName: name,
			Website:      website,
			Location:     location,
			Niche:        niche,
		})
		g := sampler.Sample(ctx, req)
		if g.DataSource == model.DataSourceUnavailable {
			zap.L().Warn("geo grid unavailable", zap.String("reason", g.Error))
		}

		if out, _ := f.GetString("out"); out != "" {
			data, err := geogrid.MarshalGeoJSON(g)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return eris.Wrapf(err, "geogrid: write %s", out)
			}
			zap.L().Info("geojson written", zap.String("path", out))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(g)
	},
}

// geogridRequest builds the sampler request from flags, falling back to
// the configured grid size and radius.
func geogridRequest(cmd *cobra.Command, req model.AuditRequest) geogrid.Request {
	f := cmd.Flags()
	out := geogrid.Request{
		Identity:    source.NewIdentity(req),
		Size:        cfg.GeoGrid.Size,
		RadiusMiles: cfg.GeoGrid.RadiusMiles,
	}
	out.Keyword, _ = f.GetString("keyword")
	out.Address, _ = f.GetString("address")
	if f.Changed("size") {
		out.Size, _ = f.GetInt("size")
	}
	if f.Changed("radius") {
		out.RadiusMiles, _ = f.GetFloat64("radius")
	}
	if f.Changed("lat") && f.Changed("lng") {
		lat, _ := f.GetFloat64("lat")
		lng, _ := f.GetFloat64("lng")
		out.Center = &model.LatLng{Lat: lat, Lng: lng}
	}
	return out
}

func init() {
	f := geogridCmd.Flags()
	f.String("name", "", "business name")
	f.String("website", "", "business website, used to match listings")
	f.String("location", "", "city and state to geocode")
	f.String("niche", "", "business category")
	f.String("keyword", "", "search keyword (default: niche)")
	f.String("address", "", "street address to center on")
	f.Float64("lat", 0, "center latitude (with --lng)")
	f.Float64("lng", 0, "center longitude (with --lat)")
	f.Int("size", 5, "grid size, 5 or 7")
	f.Float64("radius", 3, "grid radius in miles")
	f.String("out", "", "write the grid as GeoJSON to this path")
	rootCmd.AddCommand(geogridCmd)
}
