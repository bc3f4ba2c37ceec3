package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"price-matcher/models"
)

const (
	ListingsFile    = "standardized_listings.jsonl"
	GroupsFile      = "product_groups.json"
	ComparisonsFile = "comparisons.json"
	SummaryFile     = "run_summary.json"
	ReportFile      = "report.json"
)

// JSONWriter writes the datasets of a run as files under one directory.
type JSONWriter struct {
	dir string
}

// NewJSONWriter creates the output directory if needed.
func NewJSONWriter(dir string) (*JSONWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("json: create output dir: %w", err)
	}
	return &JSONWriter{dir: dir}, nil
}

// Write replaces the listings, groups, comparisons and summary files.
func (w *JSONWriter) Write(ctx context.Context, result *models.RunResult) error {
	if err := w.writeListings(result.Listings); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("json: %w", err)
	}

	groups := result.Groups
	if groups == nil {
		groups = []*models.ProductGroup{}
	}
	comparisons := result.Comparisons
	if comparisons == nil {
		comparisons = []*models.ComparisonResult{}
	}
	files := []struct {
		name string
		v    any
	}{
		{GroupsFile, groups},
		{ComparisonsFile, comparisons},
		{SummaryFile, result.Summary},
	}
	for _, f := range files {
		if err := w.writeJSON(f.name, f.v); err != nil {
			return err
		}
	}
	return nil
}

// WriteReport stores the computed report next to the datasets.
func (w *JSONWriter) WriteReport(report *models.Report) error {
	return w.writeJSON(ReportFile, report)
}

func (w *JSONWriter) Close() error { return nil }

// Path returns the location of one of the output files.
func (w *JSONWriter) Path(name string) string {
	return filepath.Join(w.dir, name)
}

func (w *JSONWriter) writeListings(listings []*models.StandardizedListing) error {
	f, err := os.Create(w.Path(ListingsFile))
	if err != nil {
		return fmt.Errorf("json: create %s: %w", ListingsFile, err)
	}
	defer f.Close()

	buf := bufio.NewWriter(f)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	for _, l := range listings {
		if err := enc.Encode(l); err != nil {
			return fmt.Errorf("json: encode listing %s: %w", l.PrimaryKey, err)
		}
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("json: flush %s: %w", ListingsFile, err)
	}
	return f.Close()
}

func (w *JSONWriter) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("json: encode %s: %w", name, err)
	}
	if err := os.WriteFile(w.Path(name), append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("json: write %s: %w", name, err)
	}
	return nil
}
