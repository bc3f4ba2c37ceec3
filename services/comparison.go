package services

import (
	"sort"

	"github.com/shopspring/decimal"

	"price-matcher/models"
	"price-matcher/utils"
)

var hundred = decimal.NewFromInt(100)

// Deal tiers on the savings percentage. A rating applies when the percentage
// is strictly above its floor.
var dealTiers = []struct {
	floor  decimal.Decimal
	rating models.DealRating
}{
	{decimal.NewFromInt(30), models.DealExcellent},
	{decimal.NewFromInt(15), models.DealGreat},
	{decimal.NewFromInt(5), models.DealGood},
}

// ComparisonBuilder prices product groups that span at least two sources.
type ComparisonBuilder struct {
	order  *SourceOrder
	logger *utils.Logger
}

// NewComparisonBuilder creates a builder using order to break cheapest-source
// ties.
func NewComparisonBuilder(order *SourceOrder, logger *utils.Logger) *ComparisonBuilder {
	return &ComparisonBuilder{order: order, logger: logger}
}

// Build compares every qualifying group and orders the results by savings,
// largest first, then by group key.
func (b *ComparisonBuilder) Build(groups []*models.ProductGroup) []*models.ComparisonResult {
	var results []*models.ComparisonResult
	for _, g := range groups {
		if r, ok := b.Compare(g); ok {
			results = append(results, r)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		if c := results[i].Savings.Cmp(results[j].Savings); c != 0 {
			return c > 0
		}
		return results[i].GroupKey < results[j].GroupKey
	})

	b.logger.Info("[comparison] %d of %d groups span several priced sources", len(results), len(groups))
	return results
}

// Compare returns the comparison for one group, or false when the group does
// not have at least two members from two sources with a positive price each.
func (b *ComparisonBuilder) Compare(g *models.ProductGroup) (*models.ComparisonResult, bool) {
	if g == nil || len(g.Members) < 2 {
		return nil, false
	}

	best := make(map[string]decimal.Decimal)
	var sources []string
	for _, m := range g.Members {
		if _, seen := best[m.Source]; !seen {
			sources = append(sources, m.Source)
			best[m.Source] = decimal.Decimal{}
		}
		if !m.Price.Valid || !m.Price.Decimal.IsPositive() {
			continue
		}
		if cur := best[m.Source]; cur.IsZero() || m.Price.Decimal.LessThan(cur) {
			best[m.Source] = m.Price.Decimal
		}
	}
	if len(sources) < 2 {
		return nil, false
	}
	b.order.Sort(sources)

	var (
		priced      int
		minPrice    decimal.Decimal
		maxPrice    decimal.Decimal
		cheapest    string
		sourcePrice = make([]models.SourcePrice, 0, len(sources))
	)
	for _, s := range sources {
		p := best[s]
		if p.IsZero() {
			sourcePrice = append(sourcePrice, models.SourcePrice{Source: s})
			continue
		}
		sourcePrice = append(sourcePrice, models.SourcePrice{Source: s, Price: decimal.NewNullDecimal(p)})
		// Sources are already in tie-break order, so only a strictly lower
		// price moves the cheapest source.
		if priced == 0 || p.LessThan(minPrice) {
			minPrice = p
			cheapest = s
		}
		if priced == 0 || p.GreaterThan(maxPrice) {
			maxPrice = p
		}
		priced++
	}
	if priced < 2 {
		return nil, false
	}

	savings := maxPrice.Sub(minPrice)
	pct := savings.Mul(hundred).DivRound(minPrice, 2)

	rep := g.Members[0]
	return &models.ComparisonResult{
		GroupKey:          g.GroupKey,
		GroupType:         g.GroupType,
		Brand:             rep.Brand,
		Model:             rep.Model,
		CPUType:           rep.CPUType,
		RAMGB:             rep.RAMGB,
		Storage:           rep.Storage,
		ScreenSizeInches:  rep.ScreenSizeInches,
		SourcePrices:      sourcePrice,
		MinPrice:          minPrice,
		MaxPrice:          maxPrice,
		Savings:           savings,
		SavingsPercentage: pct,
		CheapestSource:    cheapest,
		DealRating:        RateDeal(pct),
		ProductCount:      len(g.Members),
		SourceCount:       len(sources),
	}, true
}

// RateDeal maps a savings percentage to its tier.
func RateDeal(pct decimal.Decimal) models.DealRating {
	for _, t := range dealTiers {
		if pct.GreaterThan(t.floor) {
			return t.rating
		}
	}
	return models.DealFair
}
