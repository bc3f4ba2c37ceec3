package config

import (
	"reflect"
	"testing"
)

func TestParseCorrections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]string
	}{
		{"default", "jumia:1000", map[string]string{"jumia": "1000"}},
		{"several with spaces", " Jumia : 1000 , masoko:0.001", map[string]string{"jumia": "1000", "masoko": "0.001"}},
		{"missing factor", "jumia", map[string]string{}},
		{"non positive factor", "jumia:0,masoko:-2", map[string]string{}},
		{"empty", "", map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCorrections(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("parseCorrections(%q) = %v; want %v", tt.raw, got, tt.want)
			}
			for source, factor := range tt.want {
				d, ok := got[source]
				if !ok {
					t.Errorf("missing correction for %q", source)
					continue
				}
				if d.String() != factor {
					t.Errorf("%s: got factor %s, want %s", source, d.String(), factor)
				}
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SOURCES", "FUZZY_THRESHOLD", "PRICE_CORRECTIONS", "DEFAULT_CURRENCY", "OUTPUT_DIR", "CSV_OUTPUT_PATH"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if !reflect.DeepEqual(cfg.SourceOrder, DefaultSources) {
		t.Errorf("SourceOrder = %v; want %v", cfg.SourceOrder, DefaultSources)
	}
	if cfg.FuzzyThreshold != 0.85 {
		t.Errorf("FuzzyThreshold = %v; want 0.85", cfg.FuzzyThreshold)
	}
	if cfg.DefaultCurrency != "KES" {
		t.Errorf("DefaultCurrency = %q; want KES", cfg.DefaultCurrency)
	}
	if f, ok := cfg.PriceCorrections["jumia"]; !ok || f.String() != "1000" {
		t.Errorf("jumia correction = %v (present=%v); want 1000", f, ok)
	}
	if cfg.CSVOutputPath != "./output/standardized_listings.csv" {
		t.Errorf("CSVOutputPath = %q", cfg.CSVOutputPath)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SOURCES", "masoko, jumia")
	t.Setenv("FUZZY_THRESHOLD", "0.9")
	t.Setenv("MAX_CONCURRENCY", "not-a-number")
	t.Setenv("POSTGRES_ENABLED", "true")

	cfg := Load()

	if want := []string{"masoko", "jumia"}; !reflect.DeepEqual(cfg.SourceOrder, want) {
		t.Errorf("SourceOrder = %v; want %v", cfg.SourceOrder, want)
	}
	if cfg.FuzzyThreshold != 0.9 {
		t.Errorf("FuzzyThreshold = %v; want 0.9", cfg.FuzzyThreshold)
	}
	if cfg.MaxConcurrency != 4 {
		t.Errorf("MaxConcurrency should fall back to 4 on bad input, got %d", cfg.MaxConcurrency)
	}
	if !cfg.PostgresEnabled {
		t.Error("PostgresEnabled should be true")
	}
}
