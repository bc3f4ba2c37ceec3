package services

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"price-matcher/models"
)

func newTestStandardizer(t *testing.T) *Standardizer {
	t.Helper()
	prices := NewPriceNormalizer(map[string]decimal.Decimal{"jumia": dec("1000")})
	return NewStandardizer(newTestExtractor(t), prices, "KES", 4, newTestLogger())
}

func TestStandardizeWorkedExample(t *testing.T) {
	s := newTestStandardizer(t)

	l, err := s.Standardize(&models.RawListing{
		Source:    " Jumia ",
		Title:     "  HP Refurbished EliteBook 820,   Intel Core I5, 8GB RAM, 500GB HDD ",
		Price:     rawPrice(`20.971`),
		URL:       "https://www.jumia.co.ke/hp-elitebook-820.html",
		ScrapedAt: "2024-06-01T10:00:00",
		Line:      7,
	})
	if err != nil {
		t.Fatalf("Standardize: %v", err)
	}

	if l.Source != "jumia" {
		t.Errorf("source = %q; want jumia", l.Source)
	}
	if l.OriginalTitle != "  HP Refurbished EliteBook 820,   Intel Core I5, 8GB RAM, 500GB HDD " {
		t.Errorf("original title altered: %q", l.OriginalTitle)
	}
	if l.Brand != "HP" || l.CPUType != "INTEL_CORE" || l.Storage != "500GB_HDD" || !l.RAMGB.Equal(models.Some(8)) {
		t.Errorf("attributes = %+v", l.Attributes())
	}
	if l.Model == "" {
		t.Error("model should not be empty")
	}
	if !l.Price.Valid || !l.Price.Decimal.Equal(dec("20971")) {
		t.Errorf("price = %v; want 20971", l.Price)
	}
	if l.Currency != "KES" {
		t.Errorf("currency = %q; want KES", l.Currency)
	}
	if l.PrimaryKey != IdentityKey(l.Attributes()) {
		t.Error("primary key does not match attributes")
	}
	if l.ScrapedAt == nil || l.ScrapedAt.Format("2006-01-02 15:04") != "2024-06-01 10:00" {
		t.Errorf("scraped_at = %v", l.ScrapedAt)
	}
	if l.Line != 7 {
		t.Errorf("line = %d; want 7", l.Line)
	}
}

func TestStandardizeRejectsMalformed(t *testing.T) {
	s := newTestStandardizer(t)

	tests := []struct {
		name string
		raw  *models.RawListing
		want error
	}{
		{"no source", &models.RawListing{Title: "Dell XPS 13"}, ErrMissingSource},
		{"blank source", &models.RawListing{Source: "  ", Title: "Dell XPS 13"}, ErrMissingSource},
		{"no title", &models.RawListing{Source: "masoko"}, ErrMissingTitle},
		{"blank title", &models.RawListing{Source: "masoko", Title: "\t \n"}, ErrMissingTitle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Standardize(tt.raw)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v; want %v", err, tt.want)
			}
		})
	}
}

func TestStandardizeKeepsExplicitCurrencyAndBadTimestamp(t *testing.T) {
	s := newTestStandardizer(t)

	l, err := s.Standardize(&models.RawListing{Source: "masoko", Title: "Dell XPS 13", Currency: "usd", ScrapedAt: "yesterday"})
	if err != nil {
		t.Fatalf("Standardize: %v", err)
	}
	if l.Currency != "USD" {
		t.Errorf("currency = %q; want USD", l.Currency)
	}
	if l.ScrapedAt != nil {
		t.Errorf("unparseable scraped_at should be nil, got %v", l.ScrapedAt)
	}
	if l.Price.Valid {
		t.Errorf("missing price should be null, got %v", l.Price)
	}
}

func TestStandardizeAllPreservesOrder(t *testing.T) {
	s := newTestStandardizer(t)

	var raws []*models.RawListing
	for i := 1; i <= 40; i++ {
		r := &models.RawListing{
			Source: "masoko",
			Title:  fmt.Sprintf("Lenovo ThinkPad T%d 8GB 256GB SSD", 400+i),
			Line:   i,
			Ref:    fmt.Sprintf("in.jsonl:%d", i),
		}
		if i%10 == 0 {
			r.Title = ""
		}
		raws = append(raws, r)
	}

	listings, rejected := s.StandardizeAll(raws)

	if len(listings) != 36 || len(rejected) != 4 {
		t.Fatalf("got %d listings and %d rejections; want 36 and 4", len(listings), len(rejected))
	}
	for i := 1; i < len(listings); i++ {
		if listings[i-1].Line >= listings[i].Line {
			t.Fatalf("output out of input order at %d: line %d then %d", i, listings[i-1].Line, listings[i].Line)
		}
	}
	var lines []int
	for _, r := range rejected {
		lines = append(lines, r.Line)
		if r.Reason != ErrMissingTitle.Error() {
			t.Errorf("line %d: reason %q", r.Line, r.Reason)
		}
	}
	if want := []int{10, 20, 30, 40}; !reflect.DeepEqual(lines, want) {
		t.Errorf("rejected lines = %v; want %v", lines, want)
	}
}
