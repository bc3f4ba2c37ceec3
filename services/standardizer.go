package services

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"price-matcher/models"
	"price-matcher/utils"
)

var (
	ErrMissingSource = errors.New("missing source")
	ErrMissingTitle  = errors.New("missing title")
)

// scrapedAtLayouts are the timestamp formats seen in collector output.
var scrapedAtLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Standardizer maps RawListings to StandardizedListings one to one.
type Standardizer struct {
	extractor *Extractor
	prices    *PriceNormalizer
	currency  string
	workers   int
	logger    *utils.Logger
}

// NewStandardizer wires an extractor and price normalizer. Batches are
// standardized on a pool of maxWorkers goroutines.
func NewStandardizer(extractor *Extractor, prices *PriceNormalizer, defaultCurrency string, maxWorkers int, logger *utils.Logger) *Standardizer {
	return &Standardizer{
		extractor: extractor,
		prices:    prices,
		currency:  strings.ToUpper(strings.TrimSpace(defaultCurrency)),
		workers:   maxWorkers,
		logger:    logger,
	}
}

// Standardize converts one record. The only failure is a record without a
// source or title; every other defect degrades to a sentinel or null.
func (s *Standardizer) Standardize(raw *models.RawListing) (*models.StandardizedListing, error) {
	source := normaliseSource(raw.Source)
	if source == "" {
		return nil, ErrMissingSource
	}
	// The collapsed title feeds extraction only; the listing keeps the raw text.
	title := normaliseText(raw.Title)
	if title == "" {
		return nil, ErrMissingTitle
	}

	attrs := s.extractor.Extract(title)

	currency := strings.ToUpper(strings.TrimSpace(raw.Currency))
	if currency == "" {
		currency = s.currency
	}

	return &models.StandardizedListing{
		Source:           source,
		OriginalTitle:    raw.Title,
		Brand:            attrs.Brand,
		Model:            attrs.Model,
		CPUType:          attrs.CPUType,
		RAMGB:            attrs.RAMGB,
		Storage:          attrs.Storage,
		ScreenSizeInches: attrs.ScreenSizeInches,
		Price:            s.prices.Normalize(source, raw.Price),
		Currency:         currency,
		PrimaryKey:       IdentityKey(attrs),
		URL:              strings.TrimSpace(raw.URL),
		ScrapedAt:        parseScrapedAt(raw.ScrapedAt),
		Line:             raw.Line,
	}, nil
}

type standardizeOutcome struct {
	listing *models.StandardizedListing
	err     error
}

// StandardizeAll converts a batch on the worker pool. Accepted listings keep
// input order; malformed records are returned as rejections.
func (s *Standardizer) StandardizeAll(raws []*models.RawListing) ([]*models.StandardizedListing, []models.RejectedListing) {
	outcomes := utils.ParallelMap(utils.NewWorkerPool(s.workers), raws, func(r *models.RawListing) standardizeOutcome {
		l, err := s.Standardize(r)
		return standardizeOutcome{listing: l, err: err}
	})

	listings := make([]*models.StandardizedListing, 0, len(raws))
	var rejected []models.RejectedListing
	for i, o := range outcomes {
		if o.err != nil {
			r := raws[i]
			s.logger.Warn("[standardizer] Rejecting %s: %v", r.Ref, o.err)
			rejected = append(rejected, models.RejectedListing{
				Line:   r.Line,
				Ref:    r.Ref,
				URL:    r.URL,
				Reason: o.err.Error(),
			})
			continue
		}
		listings = append(listings, o.listing)
	}

	s.logger.Info("[standardizer] Standardized %d → %d listings (rejected %d)",
		len(raws), len(listings), len(rejected))
	return listings, rejected
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}

func normaliseSource(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func parseScrapedAt(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range scrapedAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
