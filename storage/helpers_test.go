package storage

import (
	"io"
	"time"

	"github.com/shopspring/decimal"

	"price-matcher/models"
	"price-matcher/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLoggerTo(io.Discard, utils.LevelError) }

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

// sampleResult is a small run: one HP group spanning two sources with a
// comparison, and one unpriced Dell listing on its own.
func sampleResult() *models.RunResult {
	scraped := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	hpJumia := &models.StandardizedListing{
		Source: "jumia", OriginalTitle: "HP EliteBook 840 G5, Core i5, 8GB, 256GB SSD, 14\"",
		Brand: "HP", Model: "ELITEBOOK_840_G5", CPUType: "INTEL_CORE_I5",
		RAMGB: models.Some(8), Storage: "256GB_SSD", ScreenSizeInches: models.Some(14.0),
		Price: price("45000"), Currency: "KES", PrimaryKey: "A1B2C3D4E5F60718",
		URL: "https://jumia.example/hp-840", ScrapedAt: &scraped, Line: 1,
	}
	hpClinic := &models.StandardizedListing{
		Source: "laptopclinic", OriginalTitle: "HP Elitebook 840 G5 i5 8gb 256gb ssd 14 inch",
		Brand: "HP", Model: "ELITEBOOK_840_G5", CPUType: "INTEL_CORE_I5",
		RAMGB: models.Some(8), Storage: "256GB_SSD", ScreenSizeInches: models.Some(14.0),
		Price: price("52000"), Currency: "KES", PrimaryKey: "A1B2C3D4E5F60718",
		URL: "https://laptopclinic.example/hp-840", Line: 2,
	}
	dell := &models.StandardizedListing{
		Source: "masoko", OriginalTitle: "Dell Latitude 5490",
		Brand: "DELL", Model: "LATITUDE_5490", CPUType: models.Unknown,
		Storage: models.Unknown, Currency: "KES", PrimaryKey: "0F1E2D3C4B5A6978",
		URL: "https://masoko.example/dell-5490", Line: 3,
	}

	hpGroup := &models.ProductGroup{
		GroupKey: "A1B2C3D4E5F60718", GroupType: models.GroupExact,
		Members: []*models.StandardizedListing{hpClinic, hpJumia},
		Sources: []string{"laptopclinic", "jumia"}, ProductCount: 2,
	}
	dellGroup := &models.ProductGroup{
		GroupKey: "0F1E2D3C4B5A6978", GroupType: models.GroupExact,
		Members: []*models.StandardizedListing{dell},
		Sources: []string{"masoko"}, ProductCount: 1,
	}

	cmp := &models.ComparisonResult{
		GroupKey: "A1B2C3D4E5F60718", GroupType: models.GroupExact,
		Brand: "HP", Model: "ELITEBOOK_840_G5", CPUType: "INTEL_CORE_I5",
		RAMGB: models.Some(8), Storage: "256GB_SSD", ScreenSizeInches: models.Some(14.0),
		SourcePrices: []models.SourcePrice{
			{Source: "laptopclinic", Price: price("52000")},
			{Source: "jumia", Price: price("45000")},
		},
		MinPrice: decimal.RequireFromString("45000"), MaxPrice: decimal.RequireFromString("52000"),
		Savings: decimal.RequireFromString("7000"), SavingsPercentage: decimal.RequireFromString("15.56"),
		CheapestSource: "jumia", DealRating: models.DealGreat, ProductCount: 2, SourceCount: 2,
	}

	return &models.RunResult{
		Listings:    []*models.StandardizedListing{hpJumia, hpClinic, dell},
		Groups:      []*models.ProductGroup{hpGroup, dellGroup},
		Comparisons: []*models.ComparisonResult{cmp},
		Summary:     &models.RunSummary{RunID: "0190f1c2-0000-7000-8000-000000000001", Received: 3, Processed: 3},
	}
}
