package services

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/shopspring/decimal"

	"price-matcher/config"
	"price-matcher/models"
	"price-matcher/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLoggerTo(io.Discard, utils.LevelError) }

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor(config.DefaultVocabulary())
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	return e
}

func newTestOrder() *SourceOrder { return NewSourceOrder(config.DefaultSources) }

// listing builds a standardized listing with a key derived from its
// attributes, the way the standardizer would.
func listing(source string, line int, brand, model, cpu string, ram models.Nullable[int], price string) *models.StandardizedListing {
	l := &models.StandardizedListing{
		Source:   source,
		Brand:    brand,
		Model:    model,
		CPUType:  cpu,
		RAMGB:    ram,
		Storage:  models.Unknown,
		Currency: "KES",
		URL:      "https://" + source + ".example/item/" + model,
		Line:     line,
	}
	if price != "" {
		l.Price = decimal.NewNullDecimal(decimal.RequireFromString(price))
	}
	l.PrimaryKey = IdentityKey(l.Attributes())
	return l
}

func rawPrice(v string) json.RawMessage { return json.RawMessage(v) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
