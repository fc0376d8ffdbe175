package crawler

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/place-menu-crawler/internal/metrics"
)

const tracerName = "github.com/JakeFAU/place-menu-crawler/internal/crawler"

type keywordSearcher interface {
	Search(ctx context.Context, session Session, keyword string, acc *Accumulator) (KeywordStats, error)
}

// CampaignRunner searches a list of keywords with one shared accumulator and
// persists whatever was collected, even when the run fails part way.
type CampaignRunner struct {
	session   Session
	search    keywordSearcher
	sink      RecordSink
	publisher Publisher
	clock     Clock
	logger    *zap.Logger
	progress  *Progress
	tracer    trace.Tracer
}

// NewCampaignRunner constructs a runner. publisher may be nil.
func NewCampaignRunner(
	session Session,
	search *SearchController,
	sink RecordSink,
	publisher Publisher,
	clock Clock,
	logger *zap.Logger,
) *CampaignRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &CampaignRunner{
		session:   session,
		sink:      sink,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
	}
	if search != nil {
		r.search = search
	}
	return r
}

// SetProgress attaches a tracker updated as keywords complete.
func (r *CampaignRunner) SetProgress(p *Progress) {
	r.progress = p
}

// Run searches keywords in order. Cancelling ctx stops the run after the
// keyword in progress; the current keyword itself always runs to completion.
// The accumulated records are returned and persisted in every case.
func (r *CampaignRunner) Run(ctx context.Context, keywords []string) (records []StoreRecord, err error) {
	if r.session == nil || r.search == nil {
		return nil, ErrNoSession
	}

	ctx, span := r.tracer.Start(ctx, "campaign", trace.WithAttributes(attribute.Int("keywords", len(keywords))))
	defer span.End()

	acc := NewAccumulator()
	summary := CampaignSummary{StartedAt: r.clock.Now()}
	r.progress.start(len(keywords), summary.StartedAt)

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("campaign aborted: %v", p)
			r.logger.Error("campaign aborted", zap.Any("panic", p))
		}
		records = acc.Records()
		r.progress.finish(len(records), r.clock.Now())
		if perr := r.persist(context.WithoutCancel(ctx), records, &summary, err); perr != nil {
			err = errors.Join(err, perr)
		}
		span.SetAttributes(attribute.Int("records", len(records)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	for i, keyword := range keywords {
		if ctxErr := ctx.Err(); ctxErr != nil {
			r.logger.Warn("campaign stopped before keyword",
				zap.String("keyword", keyword),
				zap.Int("remaining", len(keywords)-i))
			return nil, fmt.Errorf("campaign stopped: %w", ctxErr)
		}
		r.progress.keywordStarted(keyword)
		stats := r.runKeyword(ctx, keyword, acc)
		summary.Keywords = append(summary.Keywords, stats)
		r.progress.keywordDone(acc.Len())
		r.logger.Info("keyword finished",
			zap.String("keyword", keyword),
			zap.Int("pages", stats.Pages),
			zap.Int("entries", stats.Entries),
			zap.Int("accepted", stats.Outcomes[OutcomeAccepted]),
			zap.Int("total_records", acc.Len()))
	}
	return nil, nil
}

// runKeyword isolates one keyword: errors and panics are logged and recorded
// on the stats, never propagated.
func (r *CampaignRunner) runKeyword(ctx context.Context, keyword string, acc *Accumulator) (stats KeywordStats) {
	stats = newKeywordStats(keyword)
	ctx, span := r.tracer.Start(ctx, "keyword", trace.WithAttributes(attribute.String("keyword", keyword)))
	defer func() {
		if p := recover(); p != nil {
			stats.Err = fmt.Sprintf("panic: %v", p)
			metrics.ObserveKeyword("panic")
			r.logger.Error("keyword panicked", zap.String("keyword", keyword), zap.Any("panic", p))
		}
		span.SetAttributes(
			attribute.Int("pages", stats.Pages),
			attribute.Int("entries", stats.Entries),
		)
		if stats.Err != "" {
			span.SetStatus(codes.Error, stats.Err)
		}
		span.End()
	}()

	got, err := r.search.Search(context.WithoutCancel(ctx), r.session, keyword, acc)
	if got.Outcomes != nil {
		stats = got
	}
	if err != nil {
		stats.Err = err.Error()
		status := "failed"
		var acqErr *AcquisitionError
		if errors.As(err, &acqErr) {
			status = "no_results"
		}
		metrics.ObserveKeyword(status)
		r.logger.Error("keyword failed", zap.String("keyword", keyword), zap.Error(err))
		return stats
	}
	metrics.ObserveKeyword("succeeded")
	return stats
}

func (r *CampaignRunner) persist(ctx context.Context, records []StoreRecord, summary *CampaignSummary, runErr error) error {
	summary.Records = len(records)
	summary.FinishedAt = r.clock.Now()
	if runErr != nil {
		summary.Err = runErr.Error()
	}

	if r.sink != nil {
		if err := r.sink.Save(ctx, records); err != nil {
			r.logger.Error("persist records failed", zap.Int("records", len(records)), zap.Error(err))
			return fmt.Errorf("persist records: %w", err)
		}
		r.logger.Info("records persisted", zap.Int("records", len(records)))
	}

	if r.publisher != nil {
		id, err := r.publisher.Publish(ctx, summary)
		if err != nil {
			r.logger.Warn("publish campaign summary failed", zap.Error(err))
			return nil
		}
		r.logger.Info("campaign summary published", zap.String("message_id", id))
	}
	return nil
}
