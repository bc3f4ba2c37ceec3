package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"price-matcher/models"
	"price-matcher/utils"
)

type ReportService struct {
	currency string
	logger   *utils.Logger
}

func NewReportService(currency string, logger *utils.Logger) *ReportService {
	return &ReportService{currency: currency, logger: logger}
}

// Generate summarises a run: listing counts, price statistics over positively
// priced listings and the topN comparisons by savings.
func (s *ReportService) Generate(result *models.RunResult, topN int) *models.Report {
	report := &models.Report{
		ListingsBySource: make(map[string]int),
		Currency:         s.currency,
	}
	if result == nil {
		return report
	}
	report.Summary = result.Summary
	report.TotalListings = len(result.Listings)

	brands := make(map[string]struct{})
	var total decimal.Decimal
	var priced int64
	for _, l := range result.Listings {
		report.ListingsBySource[l.Source]++
		if l.Brand != models.Unknown {
			brands[l.Brand] = struct{}{}
		}
		if !l.Price.Valid || !l.Price.Decimal.IsPositive() {
			continue
		}
		p := l.Price.Decimal
		total = total.Add(p)
		if priced == 0 || p.LessThan(report.MinPrice.Decimal) {
			report.MinPrice = decimal.NewNullDecimal(p)
		}
		if priced == 0 || p.GreaterThan(report.MaxPrice.Decimal) {
			report.MaxPrice = decimal.NewNullDecimal(p)
		}
		priced++
	}
	if priced > 0 {
		report.AveragePrice = decimal.NewNullDecimal(total.DivRound(decimal.NewFromInt(priced), 2))
	}

	for b := range brands {
		report.Brands = append(report.Brands, b)
	}
	sort.Strings(report.Brands)

	report.CrossSiteMatches = len(result.Comparisons)
	if len(result.Comparisons) > 0 {
		report.BestDeal = result.Comparisons[0]
	}
	if topN < 0 {
		topN = 0
	}
	if len(result.Comparisons) > topN {
		report.TopSavings = result.Comparisons[:topN]
	} else {
		report.TopSavings = result.Comparisons
	}

	return report
}

func (s *ReportService) Print(w io.Writer, r *models.Report) {
	sep := strings.Repeat("═", 60)
	thin := strings.Repeat("─", 60)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 LAPTOP PRICE COMPARISON REPORT\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.Summary != nil {
		fmt.Fprintf(w, "  Run                    : %s\n", r.Summary.RunID)
		fmt.Fprintf(w, "  Records received       : \033[1m%d\033[0m\n", r.Summary.Received)
		fmt.Fprintf(w, "  Records rejected       : \033[1m%d\033[0m\n", r.Summary.Rejected)
		fmt.Fprintf(w, "  Duplicate URLs         : \033[1m%d\033[0m\n", r.Summary.DuplicateURLs)
		fmt.Fprintf(w, "  Groups (exact / fuzzy) : \033[1m%d / %d\033[0m\n", r.Summary.ExactGroups, r.Summary.FuzzyGroups)
	}
	fmt.Fprintf(w, "  Standardized listings  : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  Cross-site matches     : \033[1m%d\033[0m\n", r.CrossSiteMatches)
	fmt.Fprintf(w, "  Brands                 : %s\n", strings.Join(r.Brands, ", "))
	fmt.Fprintln(w)

	// Price Stats
	fmt.Fprintf(w, "\033[1;33m  Price Statistics (%s)\033[0m\n", r.Currency)
	fmt.Fprintf(w, "  %s\n", thin)
	if r.AveragePrice.Valid {
		fmt.Fprintf(w, "  Average price : \033[1;32m%s\033[0m\n", r.AveragePrice.Decimal.StringFixed(2))
		fmt.Fprintf(w, "  Minimum price : \033[1;32m%s\033[0m\n", r.MinPrice.Decimal.StringFixed(2))
		fmt.Fprintf(w, "  Maximum price : \033[1;32m%s\033[0m\n", r.MaxPrice.Decimal.StringFixed(2))
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	// Extraction coverage
	if r.Summary != nil && len(r.Summary.FieldStats) > 0 {
		fmt.Fprintf(w, "\033[1;33m  Unextracted Fields\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		for _, fs := range r.Summary.FieldStats {
			fmt.Fprintf(w, "  %-20s %6d  (%5.1f%%)\n", fs.Field, fs.Sentinel, fs.Rate*100)
		}
		fmt.Fprintln(w)
	}

	// Best deal
	if r.BestDeal != nil {
		d := r.BestDeal
		fmt.Fprintf(w, "\033[1;33m  Best Deal\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(describeProduct(d), 56))
		fmt.Fprintf(w, "  Cheapest at : %s\n", d.CheapestSource)
		fmt.Fprintf(w, "  Save        : \033[1;31m%s %s (%s%%, %s)\033[0m\n",
			r.Currency, d.Savings.StringFixed(2), d.SavingsPercentage.StringFixed(2), d.DealRating)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Top %d Savings\033[0m\n", len(r.TopSavings))
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopSavings) == 0 {
		fmt.Fprintf(w, "  No product is listed by more than one source\n")
	} else {
		for i, c := range r.TopSavings {
			fmt.Fprintf(w, "  \033[1m%2d.\033[0m %-34s %-15s \033[1;32m%12s\033[0m %s\n",
				i+1, truncate(describeProduct(c), 34), c.CheapestSource, c.Savings.StringFixed(2), c.DealRating)
		}
	}
	fmt.Fprintln(w)

	// Listings by Source
	fmt.Fprintf(w, "\033[1;33m  Listings by Source\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ListingsBySource) == 0 {
		fmt.Fprintf(w, "  No listings\n")
	} else {
		type sourceCount struct {
			source string
			count  int
		}
		var counts []sourceCount
		for src, cnt := range r.ListingsBySource {
			counts = append(counts, sourceCount{src, cnt})
		}
		sort.Slice(counts, func(i, j int) bool {
			if counts[i].count != counts[j].count {
				return counts[i].count > counts[j].count
			}
			return counts[i].source < counts[j].source
		})
		for _, sc := range counts {
			bar := strings.Repeat("█", barWidth(sc.count, r.TotalListings, 30))
			fmt.Fprintf(w, "  %-18s %s (%d)\n", truncate(sc.source, 16), bar, sc.count)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func describeProduct(c *models.ComparisonResult) string {
	parts := []string{c.Brand}
	if c.Model != "" {
		parts = append(parts, strings.ReplaceAll(c.Model, "_", " "))
	}
	if c.RAMGB.Valid {
		parts = append(parts, fmt.Sprintf("%dGB", c.RAMGB.V))
	}
	if c.Storage != models.Unknown {
		parts = append(parts, c.Storage)
	}
	return strings.Join(parts, " ")
}

func barWidth(count, total, width int) int {
	if total == 0 {
		return 0
	}
	n := count * width / total
	if n == 0 && count > 0 {
		n = 1
	}
	return n
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
