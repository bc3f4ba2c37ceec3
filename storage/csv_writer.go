package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"price-matcher/models"
)

var csvHeader = []string{
	"source", "original_title", "brand", "model", "cpu_type", "ram_gb", "storage",
	"screen_size_inches", "price", "currency", "primary_key", "group_key", "url", "scraped_at",
	"price_per_gb", "has_ssd", "is_business",
}

// businessLines are model tokens of the corporate laptop ranges.
var businessLines = map[string]bool{
	"ELITEBOOK": true,
	"PROBOOK":   true,
	"LATITUDE":  true,
	"THINKPAD":  true,
}

// CSVWriter writes standardized listings to a CSV file for BI tools.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)

	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// Write appends one row per standardized listing. Null values are written as
// empty cells.
func (c *CSVWriter) Write(ctx context.Context, result *models.RunResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := groupKeys(result)
	for _, l := range result.Listings {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("csv: %w", err)
		}
		price := ""
		if l.Price.Valid {
			price = l.Price.Decimal.String()
		}
		scrapedAt := ""
		if l.ScrapedAt != nil {
			scrapedAt = l.ScrapedAt.Format(time.RFC3339)
		}
		row := []string{
			l.Source,
			l.OriginalTitle,
			l.Brand,
			l.Model,
			l.CPUType,
			l.RAMGB.String(),
			l.Storage,
			l.ScreenSizeInches.String(),
			price,
			l.Currency,
			l.PrimaryKey,
			keys[l],
			l.URL,
			scrapedAt,
			pricePerGB(l),
			strconv.FormatBool(strings.HasSuffix(l.Storage, "_SSD")),
			strconv.FormatBool(isBusiness(l.Model)),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// pricePerGB is the price per GB of RAM, empty when either side is missing.
func pricePerGB(l *models.StandardizedListing) string {
	if !l.Price.Valid || !l.RAMGB.Valid || l.RAMGB.V <= 0 {
		return ""
	}
	return l.Price.Decimal.Div(decimal.NewFromInt(int64(l.RAMGB.V))).Round(2).String()
}

func isBusiness(model string) bool {
	for _, tok := range strings.Split(model, "_") {
		if businessLines[tok] {
			return true
		}
	}
	return false
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
