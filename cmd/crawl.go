package cmd

import (
	"context"
	"fmt"
	"io"

	gcsclient "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/place-menu-crawler/internal/api"
	"github.com/JakeFAU/place-menu-crawler/internal/clock/system"
	"github.com/JakeFAU/place-menu-crawler/internal/config"
	"github.com/JakeFAU/place-menu-crawler/internal/crawler"
	"github.com/JakeFAU/place-menu-crawler/internal/fetcher/headless"
	"github.com/JakeFAU/place-menu-crawler/internal/geocode"
	"github.com/JakeFAU/place-menu-crawler/internal/id/uuid"
	"github.com/JakeFAU/place-menu-crawler/internal/logging"
	"github.com/JakeFAU/place-menu-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/place-menu-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/place-menu-crawler/internal/storage"
	"github.com/JakeFAU/place-menu-crawler/internal/storage/gcs"
	"github.com/JakeFAU/place-menu-crawler/internal/storage/local"
	"github.com/JakeFAU/place-menu-crawler/internal/storage/memory"
	"github.com/JakeFAU/place-menu-crawler/internal/storage/postgres"
	"github.com/JakeFAU/place-menu-crawler/internal/telemetry"
)

type crawlFlags struct {
	keywords []string
	geocode  bool
	out      string
	dryRun   bool
}

// newCrawlCmd creates the 'crawl' subcommand, which runs one campaign over the
// configured (or given) keywords.
func newCrawlCmd() *cobra.Command {
	flags := &crawlFlags{}
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Runs a search campaign and saves matching stores",
		Long: `Searches every keyword in order, walks the result pages, reads each
store's detail panel and menu, and keeps stores whose menus match the
include terms. Records are saved even when the run is interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}
	cmd.Flags().StringSliceVar(&flags.keywords, "keyword", nil, "search keyword; repeat to search several (replaces configured keywords)")
	cmd.Flags().BoolVar(&flags.geocode, "geocode", false, "geocode addresses before saving")
	cmd.Flags().StringVar(&flags.out, "out", "", "output JSON path (overrides output.path)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "print the records to stdout instead of saving or publishing them")
	return cmd
}

func runCrawl(ctx context.Context, stdout io.Writer, flags *crawlFlags) error {
	appInstance, err := resolveApp(ctx)
	if err != nil {
		return err
	}
	cfg, logger := appInstance.Config, appInstance.Logger

	opts := cfg.Options()
	if len(flags.keywords) > 0 {
		opts.Keywords = crawler.BuildKeywords(flags.keywords, nil, "")
	}
	if err := checkCrawlOptions(opts, logger); err != nil {
		return err
	}
	if flags.out != "" {
		cfg.Output.Path = flags.out
	}

	tp, err := telemetry.InitTracerProvider(ctx, logging.RootName, version)
	if err != nil {
		return err
	}
	defer func() {
		if err := tp.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	progress := crawler.NewProgress()
	var opsServer *api.Server
	if cfg.Metrics.Enabled {
		opsServer = api.NewServer(progress, logger.Named("api"))
		serverCtx, stopServer := context.WithCancel(context.WithoutCancel(ctx))
		defer stopServer()
		go func() {
			if err := opsServer.ListenAndServe(serverCtx, cfg.Metrics.Addr); err != nil {
				logger.Error("operator server failed", zap.Error(err))
			}
		}()
	}

	var (
		recordSink crawler.RecordSink
		dryRunSink *memory.Sink
	)
	if flags.dryRun {
		dryRunSink = memory.New()
		recordSink = dryRunSink
	} else {
		multi, closeSinks, err := buildSinks(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeSinks()
		recordSink = multi
	}
	if flags.geocode || cfg.Geocode.Enabled {
		enricher, err := buildEnricher(cfg, logger)
		if err != nil {
			return err
		}
		recordSink = geocode.NewEnrichingSink(enricher, recordSink, logger.Named("geocode"))
	}

	var publisher crawler.Publisher
	if cfg.Output.PubSub.TopicName != "" && !flags.dryRun {
		pub, err := pubsub.Connect(ctx, cfg.Output.PubSub.ProjectID, cfg.Output.PubSub.TopicName)
		if err != nil {
			return err
		}
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Warn("close publisher failed", zap.Error(err))
			}
		}()
		publisher = pub
	}

	session, err := headless.NewChromedp(cfg.HeadlessConfig(), logger.Named("browser"))
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer session.Close()
	if opsServer != nil {
		opsServer.SetReady(true)
	}

	clock := system.New()
	search := crawler.NewSearchController(
		opts,
		cfg.CrawlerSelectors(),
		cfg.CrawlerTimings(),
		clock,
		uuid.New(),
		logger.Named("search"),
	)
	runner := crawler.NewCampaignRunner(session, search, recordSink, publisher, clock, logger.Named("campaign"))
	runner.SetProgress(progress)

	logger.Info("campaign starting", zap.Strings("keywords", opts.Keywords), zap.String("output", cfg.Output.Path))
	records, err := runner.Run(ctx, opts.Keywords)
	logger.Info("campaign finished", zap.Int("records", len(records)), zap.Error(err))
	if dryRunSink != nil {
		if _, werr := stdout.Write(dryRunSink.Bytes()); werr != nil {
			logger.Warn("write dry-run output failed", zap.Error(werr))
		}
	}
	if err != nil {
		return fmt.Errorf("campaign: %w", err)
	}
	return nil
}

// checkCrawlOptions rejects a campaign with nothing to search and warns when
// no include terms will filter the results.
func checkCrawlOptions(opts crawler.Options, logger *zap.Logger) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	if len(opts.Keywords) == 0 {
		return fmt.Errorf("no keywords to search: set search.keywords, search.regions or --keyword")
	}
	if len(opts.IncludeTerms) == 0 {
		logger.Warn("search.include_terms is empty; every store with a name will be kept")
	}
	return nil
}

// buildSinks always includes the local file and adds GCS and Postgres when
// configured.
func buildSinks(ctx context.Context, cfg config.Config, logger *zap.Logger) (*storage.MultiSink, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	file, err := local.New(local.Config{Path: cfg.Output.Path})
	if err != nil {
		return nil, nil, fmt.Errorf("init file sink: %w", err)
	}
	logger.Debug("file sink ready", zap.String("path", file.Path()))
	sinks := []storage.Named{{Name: "file", Sink: file}}

	if cfg.Output.GCS.Bucket != "" {
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("create gcs client: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })
		sink, err := gcs.New(client, gcs.Config{Bucket: cfg.Output.GCS.Bucket, Object: cfg.Output.GCS.Object})
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("init gcs sink: %w", err)
		}
		sinks = append(sinks, storage.Named{Name: "gcs", Sink: sink})
	}

	if cfg.Output.Postgres.DSN != "" {
		store, err := postgres.NewRecordStore(ctx, postgres.RecordStoreConfig{
			DSN:      cfg.Output.Postgres.DSN,
			MaxConns: cfg.Output.Postgres.MaxConns,
		})
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("init postgres sink: %w", err)
		}
		closers = append(closers, store.Close)
		if err := store.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, storage.Named{Name: "postgres", Sink: store})
	}

	return storage.NewMultiSink(logger.Named("storage"), sinks...), closeAll, nil
}

func buildEnricher(cfg config.Config, logger *zap.Logger) (*geocode.Enricher, error) {
	client, err := geocode.NewKakao(geocode.KakaoConfig{
		BaseURL: cfg.Geocode.BaseURL,
		APIKey:  cfg.Geocode.APIKey,
		Timeout: cfg.Geocode.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("init geocoder: %w", err)
	}
	return geocode.NewEnricher(client, ratelimit.New(cfg.GeocodeLimit()), logger.Named("geocode")), nil
}
