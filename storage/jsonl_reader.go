package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"price-matcher/models"
	"price-matcher/utils"
)

const maxLineBytes = 4 << 20

// JSONLReader decodes collector output into a Batch. Files ending in .json
// are read as a single JSON array; anything else as one object per line.
type JSONLReader struct {
	logger *utils.Logger
	line   int
}

func NewJSONLReader(logger *utils.Logger) *JSONLReader {
	return &JSONLReader{logger: logger}
}

// ReadFiles reads every path into one batch. Records are numbered across
// files in the order given, so the number doubles as scrape order.
func (r *JSONLReader) ReadFiles(paths []string) (*models.Batch, error) {
	batch := &models.Batch{}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("jsonl: open %q: %w", path, err)
		}
		if strings.EqualFold(filepath.Ext(path), ".json") {
			err = r.readArray(path, f, batch)
		} else {
			err = r.Read(path, f, batch)
		}
		_ = f.Close()
		if err != nil {
			return nil, err
		}
	}
	r.logger.Info("[reader] Read %d records from %d file(s), %d undecodable",
		len(batch.Listings)+len(batch.Rejected), len(paths), len(batch.Rejected))
	return batch, nil
}

// Read appends the records of one newline-delimited stream to batch. Blank
// lines are skipped; lines that do not decode are recorded as rejections.
func (r *JSONLReader) Read(name string, src io.Reader, batch *models.Batch) error {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	physical := 0
	for scanner.Scan() {
		physical++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		r.add(batch, fmt.Sprintf("%s:%d", name, physical), data)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("jsonl: read %q: %w", name, err)
	}
	return nil
}

func (r *JSONLReader) readArray(name string, src io.Reader, batch *models.Batch) error {
	var items []json.RawMessage
	if err := json.NewDecoder(src).Decode(&items); err != nil {
		return fmt.Errorf("jsonl: decode array %q: %w", name, err)
	}
	for i, item := range items {
		r.add(batch, fmt.Sprintf("%s[%d]", name, i), item)
	}
	return nil
}

func (r *JSONLReader) add(batch *models.Batch, ref string, data []byte) {
	r.line++
	var raw models.RawListing
	if err := json.Unmarshal(data, &raw); err != nil {
		r.logger.Warn("[reader] Skipping %s: %v", ref, err)
		batch.Rejected = append(batch.Rejected, models.RejectedListing{
			Line:   r.line,
			Ref:    ref,
			Reason: "invalid JSON: " + err.Error(),
		})
		return
	}
	raw.Line = r.line
	raw.Ref = ref
	batch.Listings = append(batch.Listings, &raw)
}
