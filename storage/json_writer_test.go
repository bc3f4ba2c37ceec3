package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"price-matcher/models"
)

func TestJSONWriterWritesAllDatasets(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w, err := NewJSONWriter(dir)
	if err != nil {
		t.Fatalf("NewJSONWriter: %v", err)
	}
	if err := w.Write(context.Background(), sampleResult()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	f, err := os.Open(w.Path(ListingsFile))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("line %d: %v", len(lines)+1, err)
		}
		lines = append(lines, m)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 listing lines, got %d", len(lines))
	}
	if lines[0]["price"] != "45000" {
		t.Errorf("price = %v", lines[0]["price"])
	}
	if lines[2]["price"] != nil || lines[2]["ram_gb"] != nil {
		t.Errorf("nulls not preserved: price=%v ram=%v", lines[2]["price"], lines[2]["ram_gb"])
	}

	var groups []struct {
		GroupKey string `json:"group_key"`
		Members  []struct {
			Source string `json:"source"`
		} `json:"members"`
	}
	readJSON(t, w.Path(GroupsFile), &groups)
	if len(groups) != 2 || len(groups[0].Members) != 2 || groups[0].Members[0].Source != "laptopclinic" {
		t.Errorf("unexpected groups: %+v", groups)
	}

	var comparisons []models.ComparisonResult
	readJSON(t, w.Path(ComparisonsFile), &comparisons)
	if len(comparisons) != 1 || comparisons[0].CheapestSource != "jumia" {
		t.Errorf("unexpected comparisons: %+v", comparisons)
	}

	var summary models.RunSummary
	readJSON(t, w.Path(SummaryFile), &summary)
	if summary.Received != 3 {
		t.Errorf("summary received = %d", summary.Received)
	}
}

func TestJSONWriterEmptyRunWritesArrays(t *testing.T) {
	w, err := NewJSONWriter(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(context.Background(), &models.RunResult{Summary: &models.RunSummary{}}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	for _, name := range []string{GroupsFile, ComparisonsFile} {
		data, err := os.ReadFile(w.Path(name))
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "[]\n" {
			t.Errorf("%s = %q, want []", name, data)
		}
	}
}

func TestJSONWriterReport(t *testing.T) {
	w, err := NewJSONWriter(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteReport(&models.Report{Currency: "KES"}); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	var got map[string]any
	readJSON(t, w.Path(ReportFile), &got)
	if got["currency"] != "KES" {
		t.Errorf("currency = %v", got["currency"])
	}
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
}
