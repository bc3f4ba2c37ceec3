package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// RawListing is one page item as emitted by the collection layer. It is
// read-only; Price is kept as the raw JSON token because sources disagree on
// whether it is a number, a formatted string or missing altogether.
type RawListing struct {
	Source    string          `json:"source"`
	Title     string          `json:"title"`
	Price     json.RawMessage `json:"price,omitempty"`
	Currency  string          `json:"currency,omitempty"`
	URL       string          `json:"url,omitempty"`
	ScrapedAt string          `json:"scraped_at,omitempty"`

	// Line is the position of the record in the input stream (1-based). It
	// doubles as scrape order and as the reference reported on rejection.
	Line int `json:"-"`
	// Ref identifies the record for operators, e.g. "output/jumia.jsonl:12".
	Ref string `json:"-"`
}

// Attributes is the tuple the identity key is derived from.
type Attributes struct {
	Brand            string
	Model            string
	CPUType          string
	RAMGB            Nullable[int]
	Storage          string
	ScreenSizeInches Nullable[float64]
}

// StandardizedListing is derived 1:1 from a RawListing and never mutated
// after the standardizer returns it.
type StandardizedListing struct {
	Source           string              `json:"source"`
	OriginalTitle    string              `json:"original_title"`
	Brand            string              `json:"brand"`
	Model            string              `json:"model"`
	CPUType          string              `json:"cpu_type"`
	RAMGB            Nullable[int]       `json:"ram_gb"`
	Storage          string              `json:"storage"`
	ScreenSizeInches Nullable[float64]   `json:"screen_size_inches"`
	Price            decimal.NullDecimal `json:"price"`
	Currency         string              `json:"currency"`
	PrimaryKey       string              `json:"primary_key"`
	URL              string              `json:"url"`
	ScrapedAt        *time.Time          `json:"scraped_at"`

	Line int `json:"-"`
}

// Attributes returns the identity tuple of the listing.
func (l *StandardizedListing) Attributes() Attributes {
	return Attributes{
		Brand:            l.Brand,
		Model:            l.Model,
		CPUType:          l.CPUType,
		RAMGB:            l.RAMGB,
		Storage:          l.Storage,
		ScreenSizeInches: l.ScreenSizeInches,
	}
}

// GroupType tells how a ProductGroup was formed.
type GroupType string

const (
	GroupExact GroupType = "EXACT"
	GroupFuzzy GroupType = "FUZZY"
)

// ProductGroup is a set of listings believed to be the same physical product.
// Members point at the standardized listings; the group does not own them.
type ProductGroup struct {
	GroupKey     string
	GroupType    GroupType
	Members      []*StandardizedListing
	Sources      []string
	ProductCount int
}

// MemberRef is how a group member is referenced in serialized output.
type MemberRef struct {
	Source     string `json:"source"`
	PrimaryKey string `json:"primary_key"`
	URL        string `json:"url"`
}

func (g *ProductGroup) MarshalJSON() ([]byte, error) {
	refs := make([]MemberRef, 0, len(g.Members))
	for _, m := range g.Members {
		refs = append(refs, MemberRef{Source: m.Source, PrimaryKey: m.PrimaryKey, URL: m.URL})
	}
	return json.Marshal(struct {
		GroupKey     string      `json:"group_key"`
		GroupType    GroupType   `json:"group_type"`
		Sources      []string    `json:"sources"`
		ProductCount int         `json:"product_count"`
		Members      []MemberRef `json:"members"`
	}{g.GroupKey, g.GroupType, g.Sources, g.ProductCount, refs})
}

// DealRating is the qualitative tier assigned from the savings percentage.
type DealRating string

const (
	DealExcellent DealRating = "EXCELLENT"
	DealGreat     DealRating = "GREAT"
	DealGood      DealRating = "GOOD"
	DealFair      DealRating = "FAIR"
)

// SourcePrice is the best offer one source has for a group; Price is null
// when every member from that source lacks a usable price.
type SourcePrice struct {
	Source string              `json:"source"`
	Price  decimal.NullDecimal `json:"price"`
}

// ComparisonResult is the price comparison for a group spanning at least two
// sources.
type ComparisonResult struct {
	GroupKey          string            `json:"group_key"`
	GroupType         GroupType         `json:"group_type"`
	Brand             string            `json:"brand"`
	Model             string            `json:"model"`
	CPUType           string            `json:"cpu_type"`
	RAMGB             Nullable[int]     `json:"ram_gb"`
	Storage           string            `json:"storage"`
	ScreenSizeInches  Nullable[float64] `json:"screen_size_inches"`
	SourcePrices      []SourcePrice     `json:"source_prices"`
	MinPrice          decimal.Decimal   `json:"min_price"`
	MaxPrice          decimal.Decimal   `json:"max_price"`
	Savings           decimal.Decimal   `json:"savings"`
	SavingsPercentage decimal.Decimal   `json:"savings_percentage"`
	CheapestSource    string            `json:"cheapest_source"`
	DealRating        DealRating        `json:"deal_rating"`
	ProductCount      int               `json:"product_count"`
	SourceCount       int               `json:"source_count"`
}

// PriceFor returns the per-source price entry, if the source is in the group.
func (c *ComparisonResult) PriceFor(source string) (decimal.NullDecimal, bool) {
	for _, sp := range c.SourcePrices {
		if sp.Source == source {
			return sp.Price, true
		}
	}
	return decimal.NullDecimal{}, false
}

// RejectedListing records an input record that could not be standardized.
type RejectedListing struct {
	Line   int    `json:"line"`
	Ref    string `json:"ref"`
	URL    string `json:"url,omitempty"`
	Reason string `json:"reason"`
}

// Batch is the decoded input of one run.
type Batch struct {
	Listings []*RawListing
	Rejected []RejectedListing
}

// FieldStat is the extraction sentinel rate of one attribute.
type FieldStat struct {
	Field    string  `json:"field"`
	Sentinel int     `json:"sentinel"`
	Rate     float64 `json:"rate"`
}

// RunSummary is the operator-facing account of one run.
type RunSummary struct {
	RunID         string            `json:"run_id"`
	StartedAt     time.Time         `json:"started_at"`
	Duration      time.Duration     `json:"duration_ns"`
	Received      int               `json:"received"`
	Processed     int               `json:"processed"`
	Rejected      int               `json:"rejected"`
	Rejections    []RejectedListing `json:"rejections"`
	FieldStats    []FieldStat       `json:"field_stats"`
	DuplicateURLs int               `json:"duplicate_urls"`
	ExactGroups   int               `json:"exact_groups"`
	FuzzyGroups   int               `json:"fuzzy_groups"`
	Comparisons   int               `json:"comparisons"`
}

// RunResult bundles the three datasets a run produces.
type RunResult struct {
	Listings    []*StandardizedListing
	Groups      []*ProductGroup
	Comparisons []*ComparisonResult
	Summary     *RunSummary
}

// Report holds the computed analytics over one run, for console and JSON.
type Report struct {
	Summary          *RunSummary         `json:"summary"`
	TotalListings    int                 `json:"total_listings"`
	ListingsBySource map[string]int      `json:"listings_by_source"`
	Brands           []string            `json:"brands"`
	Currency         string              `json:"currency"`
	AveragePrice     decimal.NullDecimal `json:"average_price"`
	MinPrice         decimal.NullDecimal `json:"min_price"`
	MaxPrice         decimal.NullDecimal `json:"max_price"`
	CrossSiteMatches int                 `json:"cross_site_matches"`
	BestDeal         *ComparisonResult   `json:"best_deal"`
	TopSavings       []*ComparisonResult `json:"top_savings"`
}
