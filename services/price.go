package services

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// priceRegexp captures the first numeric run of a formatted price, with an
// optional minus sign directly in front of it.
var priceRegexp = regexp.MustCompile(`(-\s*)?(\d[\d.,]*)`)

// PriceNormalizer turns raw source prices into decimals and applies the
// static per-source scale corrections.
type PriceNormalizer struct {
	corrections map[string]decimal.Decimal
}

// NewPriceNormalizer creates a normalizer from a source → factor table.
// Sources are matched case-insensitively.
func NewPriceNormalizer(corrections map[string]decimal.Decimal) *PriceNormalizer {
	table := make(map[string]decimal.Decimal, len(corrections))
	for source, factor := range corrections {
		table[strings.ToLower(strings.TrimSpace(source))] = factor
	}
	return &PriceNormalizer{corrections: table}
}

// Normalize parses raw and corrects it for source.
func (p *PriceNormalizer) Normalize(source string, raw json.RawMessage) decimal.NullDecimal {
	return p.Correct(source, ParsePrice(raw))
}

// Correct applies the scale factor registered for source. Prices from any
// other source, and null prices, are returned untouched.
func (p *PriceNormalizer) Correct(source string, price decimal.NullDecimal) decimal.NullDecimal {
	if !price.Valid {
		return price
	}
	factor, ok := p.corrections[strings.ToLower(strings.TrimSpace(source))]
	if !ok {
		return price
	}
	return decimal.NewNullDecimal(price.Decimal.Mul(factor))
}

// ParsePrice reads a JSON price token. Numbers are taken as-is; strings may
// carry currency symbols and thousands separators. Missing, negative or
// unparseable prices are null.
func ParsePrice(raw json.RawMessage) decimal.NullDecimal {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.NullDecimal{}
	}

	var d decimal.Decimal
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.NullDecimal{}
		}
		parsed, ok := parsePriceString(s)
		if !ok {
			return decimal.NullDecimal{}
		}
		d = parsed
	default:
		parsed, err := decimal.NewFromString(string(raw))
		if err != nil {
			return decimal.NullDecimal{}
		}
		d = parsed
	}

	if d.IsNegative() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// parsePriceString handles the formats sources render prices in, e.g.
// "KSh 45,999", "KES 1,234.50", "1.299.000" or "20,5".
func parsePriceString(s string) (decimal.Decimal, bool) {
	m := priceRegexp.FindStringSubmatch(s)
	if m == nil || m[1] != "" {
		return decimal.Decimal{}, false
	}
	num := strings.TrimRight(m[2], ".,")

	lastComma := strings.LastIndex(num, ",")
	lastDot := strings.LastIndex(num, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		// Whichever separator comes last is the decimal point.
		if lastComma > lastDot {
			num = strings.ReplaceAll(num, ".", "")
			num = strings.Replace(num, ",", ".", 1)
		} else {
			num = strings.ReplaceAll(num, ",", "")
		}
	case lastComma >= 0:
		if isThousandsGrouped(num, ",") {
			num = strings.ReplaceAll(num, ",", "")
		} else if strings.Count(num, ",") == 1 {
			num = strings.Replace(num, ",", ".", 1)
		} else {
			return decimal.Decimal{}, false
		}
	case strings.Count(num, ".") > 1:
		if !isThousandsGrouped(num, ".") {
			return decimal.Decimal{}, false
		}
		num = strings.ReplaceAll(num, ".", "")
	}

	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// isThousandsGrouped reports whether every group after the first separator
// has exactly three digits.
func isThousandsGrouped(num, sep string) bool {
	parts := strings.Split(num, sep)
	if len(parts) < 2 || len(parts[0]) == 0 || len(parts[0]) > 3 {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return true
}
