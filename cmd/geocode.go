package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/place-menu-crawler/internal/storage/local"
)

type geocodeFlags struct {
	in  string
	out string
}

// newGeocodeCmd creates the 'geocode' subcommand, which adds coordinates to a
// previously saved dataset.
func newGeocodeCmd() *cobra.Command {
	flags := &geocodeFlags{}
	cmd := &cobra.Command{
		Use:   "geocode",
		Short: "Adds coordinates to a saved store dataset",
		Long: `Reads a JSON dataset written by 'crawl', looks up every address that
has no coordinates yet, and writes the enriched dataset. Stores that already
have coordinates or have no address are copied unchanged.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGeocode(cmd.Context(), flags)
		},
	}
	cmd.Flags().StringVar(&flags.in, "in", "", "input JSON path (default output.path)")
	cmd.Flags().StringVar(&flags.out, "out", "", "output JSON path (default: overwrite input)")
	return cmd
}

func runGeocode(ctx context.Context, flags *geocodeFlags) error {
	appInstance, err := resolveApp(ctx)
	if err != nil {
		return err
	}
	cfg, logger := appInstance.Config, appInstance.Logger

	in := flags.in
	if in == "" {
		in = cfg.Output.Path
	}
	out := flags.out
	if out == "" {
		out = in
	}

	records, err := local.Load(in)
	if err != nil {
		return err
	}
	enricher, err := buildEnricher(cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("geocoding dataset", zap.String("in", in), zap.Int("records", len(records)))
	enriched, stats, enrichErr := enricher.Enrich(ctx, records)

	sink, err := local.New(local.Config{Path: out})
	if err != nil {
		return fmt.Errorf("init output: %w", err)
	}
	if err := sink.Save(context.WithoutCancel(ctx), enriched); err != nil {
		return fmt.Errorf("save geocoded dataset: %w", err)
	}
	logger.Info("geocoded dataset saved",
		zap.String("out", sink.Path()),
		zap.Int("found", stats.Found),
		zap.Int("not_found", stats.NotFound),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped))
	if enrichErr != nil {
		return fmt.Errorf("geocode: %w", enrichErr)
	}
	return nil
}
