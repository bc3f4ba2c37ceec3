package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"price-matcher/config"
	"price-matcher/models"
	"price-matcher/utils"
)

const tracerName = "price-matcher/services"

// Pipeline runs a batch through standardization, grouping and comparison.
// Each stage starts only once the previous one has seen the whole batch.
type Pipeline struct {
	standardizer *Standardizer
	grouping     *GroupingEngine
	comparisons  *ComparisonBuilder
	logger       *utils.Logger
}

func NewPipeline(standardizer *Standardizer, grouping *GroupingEngine, comparisons *ComparisonBuilder, logger *utils.Logger) *Pipeline {
	return &Pipeline{
		standardizer: standardizer,
		grouping:     grouping,
		comparisons:  comparisons,
		logger:       logger,
	}
}

// NewPipelineFromConfig builds every stage from cfg and vocab.
func NewPipelineFromConfig(cfg *config.Config, vocab *config.Vocabulary, logger *utils.Logger) (*Pipeline, error) {
	extractor, err := NewExtractor(vocab)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	order := NewSourceOrder(cfg.SourceOrder)
	return NewPipeline(
		NewStandardizer(extractor, NewPriceNormalizer(cfg.PriceCorrections), cfg.DefaultCurrency, cfg.MaxConcurrency, logger),
		NewGroupingEngine(cfg.FuzzyThreshold, order, logger),
		NewComparisonBuilder(order, logger),
		logger,
	), nil
}

// Run processes one batch. Cancellation is honoured between stages; a
// cancelled run returns no partial result.
func (p *Pipeline) Run(ctx context.Context, batch *models.Batch) (*models.RunResult, error) {
	started := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.run")
	defer span.End()

	var (
		listings []*models.StandardizedListing
		rejected []models.RejectedListing
		groups   []*models.ProductGroup
		results  []*models.ComparisonResult
	)

	stages := []struct {
		name string
		run  func(context.Context, trace.Span)
	}{
		{"pipeline.standardize", func(_ context.Context, s trace.Span) {
			listings, rejected = p.standardizer.StandardizeAll(batch.Listings)
			s.SetAttributes(
				attribute.Int("listings.accepted", len(listings)),
				attribute.Int("listings.rejected", len(rejected)),
			)
		}},
		{"pipeline.group", func(_ context.Context, s trace.Span) {
			groups = p.grouping.Group(listings)
			s.SetAttributes(attribute.Int("groups", len(groups)))
		}},
		{"pipeline.compare", func(_ context.Context, s trace.Span) {
			results = p.comparisons.Build(groups)
			s.SetAttributes(attribute.Int("comparisons", len(results)))
		}},
	}

	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("pipeline: before %s: %w", st.name, err)
		}
		stageCtx, stageSpan := otel.Tracer(tracerName).Start(ctx, st.name)
		st.run(stageCtx, stageSpan)
		stageSpan.End()
	}
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	summary := p.summarise(batch, listings, rejected, groups, results)
	summary.StartedAt = started
	summary.Duration = time.Since(started)
	span.SetAttributes(attribute.String("run.id", summary.RunID))

	p.logger.Info("[pipeline] Run %s: %d received, %d standardized, %d rejected, %d groups, %d comparisons in %v",
		summary.RunID, summary.Received, summary.Processed, summary.Rejected,
		len(groups), len(results), summary.Duration.Round(time.Millisecond))

	return &models.RunResult{
		Listings:    listings,
		Groups:      groups,
		Comparisons: results,
		Summary:     summary,
	}, nil
}

func (p *Pipeline) summarise(batch *models.Batch, listings []*models.StandardizedListing, rejected []models.RejectedListing,
	groups []*models.ProductGroup, results []*models.ComparisonResult) *models.RunSummary {

	rejections := append(append([]models.RejectedListing(nil), batch.Rejected...), rejected...)
	sort.SliceStable(rejections, func(i, j int) bool { return rejections[i].Line < rejections[j].Line })

	s := &models.RunSummary{
		RunID:       newRunID(),
		Received:    len(batch.Listings) + len(batch.Rejected),
		Processed:   len(listings),
		Rejected:    len(rejections),
		Rejections:  rejections,
		FieldStats:  fieldStats(listings),
		Comparisons: len(results),
	}

	s.DuplicateURLs = countDuplicateURLs(listings)
	if s.DuplicateURLs > 0 {
		p.logger.Warn("[pipeline] %d listings share a URL with an earlier listing", s.DuplicateURLs)
	}

	for _, g := range groups {
		if g.GroupType == models.GroupFuzzy {
			s.FuzzyGroups++
		} else {
			s.ExactGroups++
		}
	}
	return s
}

// countDuplicateURLs counts listings whose URL already appeared earlier in
// the run. Empty URLs are not compared.
func countDuplicateURLs(listings []*models.StandardizedListing) int {
	seen := make(map[string]struct{}, len(listings))
	dupes := 0
	for _, l := range listings {
		if l.URL == "" {
			continue
		}
		if _, ok := seen[l.URL]; ok {
			dupes++
			continue
		}
		seen[l.URL] = struct{}{}
	}
	return dupes
}

// fieldStats counts, per attribute, how many listings carry the sentinel.
func fieldStats(listings []*models.StandardizedListing) []models.FieldStat {
	checks := []struct {
		field   string
		missing func(*models.StandardizedListing) bool
	}{
		{"brand", func(l *models.StandardizedListing) bool { return l.Brand == models.Unknown }},
		{"model", func(l *models.StandardizedListing) bool { return l.Model == "" }},
		{"cpu_type", func(l *models.StandardizedListing) bool { return l.CPUType == models.Unknown }},
		{"ram_gb", func(l *models.StandardizedListing) bool { return !l.RAMGB.Valid }},
		{"storage", func(l *models.StandardizedListing) bool { return l.Storage == models.Unknown }},
		{"screen_size_inches", func(l *models.StandardizedListing) bool { return !l.ScreenSizeInches.Valid }},
		{"price", func(l *models.StandardizedListing) bool { return !l.Price.Valid }},
	}

	stats := make([]models.FieldStat, 0, len(checks))
	for _, c := range checks {
		n := 0
		for _, l := range listings {
			if c.missing(l) {
				n++
			}
		}
		st := models.FieldStat{Field: c.field, Sentinel: n}
		if len(listings) > 0 {
			st.Rate = float64(n) / float64(len(listings))
		}
		stats = append(stats, st)
	}
	return stats
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
