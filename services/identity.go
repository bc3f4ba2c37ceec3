package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"price-matcher/models"
)

const nullToken = "NULL"

// CanonicalForm is the string the identity key is hashed from:
// BRAND|MODEL|CPU|RAM|STORAGE|SCREEN, uppercased, with NULL for missing
// numerics. Numbers are written in their shortest exact form, so any two
// distinct extracted values give distinct strings. Sentinels take part literally.
func CanonicalForm(a models.Attributes) string {
	ram := nullToken
	if a.RAMGB.Valid {
		ram = fmt.Sprintf("%dGB", a.RAMGB.V)
	}
	screen := nullToken
	if a.ScreenSizeInches.Valid {
		screen = strconv.FormatFloat(a.ScreenSizeInches.V, 'f', -1, 64) + "IN"
	}
	return strings.ToUpper(strings.Join([]string{
		a.Brand, a.Model, a.CPUType, ram, a.Storage, screen,
	}, "|"))
}

// IdentityKey hashes the canonical form to 16 uppercase hex characters.
// Equal tuples give equal keys in every run.
func IdentityKey(a models.Attributes) string {
	sum := sha256.Sum256([]byte(CanonicalForm(a)))
	return strings.ToUpper(hex.EncodeToString(sum[:8]))
}
