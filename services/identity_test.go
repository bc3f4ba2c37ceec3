package services

import (
	"regexp"
	"testing"

	"price-matcher/models"
)

var keyFormat = regexp.MustCompile(`^[0-9A-F]{16}$`)

func TestCanonicalForm(t *testing.T) {
	tests := []struct {
		attrs models.Attributes
		want  string
	}{
		{
			models.Attributes{Brand: "HP", Model: "ELITEBOOK_820", CPUType: "INTEL_CORE", RAMGB: models.Some(8), Storage: "500GB_HDD"},
			"HP|ELITEBOOK_820|INTEL_CORE|8GB|500GB_HDD|NULL",
		},
		{
			models.Attributes{Brand: "DELL", Model: "xps_13", CPUType: models.Unknown, Storage: models.Unknown, ScreenSizeInches: models.Some(13.3)},
			"DELL|XPS_13|UNKNOWN|NULL|UNKNOWN|13.3IN",
		},
		{
			models.Attributes{Brand: models.Unknown, CPUType: models.Unknown, Storage: models.Unknown, ScreenSizeInches: models.Some(14.0)},
			"UNKNOWN||UNKNOWN|NULL|UNKNOWN|14IN",
		},
	}

	for _, tt := range tests {
		if got := CanonicalForm(tt.attrs); got != tt.want {
			t.Errorf("CanonicalForm(%+v) = %q; want %q", tt.attrs, got, tt.want)
		}
	}
}

func TestIdentityKeyFormatAndStability(t *testing.T) {
	a := models.Attributes{Brand: "HP", Model: "ELITEBOOK_820", CPUType: "INTEL_CORE", RAMGB: models.Some(8), Storage: "500GB_HDD"}

	key := IdentityKey(a)
	if !keyFormat.MatchString(key) {
		t.Fatalf("key %q is not 16 uppercase hex chars", key)
	}
	if again := IdentityKey(a); again != key {
		t.Errorf("key changed between calls: %q vs %q", key, again)
	}

	lower := a
	lower.Model = "elitebook_820"
	if IdentityKey(lower) != key {
		t.Error("model casing should not change the key")
	}
}

func TestIdentityKeyDistinguishesNullFromZero(t *testing.T) {
	base := models.Attributes{Brand: "HP", Model: "X", CPUType: models.Unknown, Storage: models.Unknown}
	zero := base
	zero.RAMGB = models.Some(0)

	if IdentityKey(base) == IdentityKey(zero) {
		t.Error("null RAM and 0 GB RAM must produce different keys")
	}
}

func TestIdentityKeySameTitleAcrossSources(t *testing.T) {
	e := newTestExtractor(t)
	a := e.Extract("HP Refurbished EliteBook 820, Intel Core I5, 8GB RAM, 500GB HDD")
	b := e.Extract("hp elitebook 820 core i5 8gb 500gb hdd brand new")

	if IdentityKey(a) != IdentityKey(b) {
		t.Errorf("equivalent titles produced different keys:\n  %+v\n  %+v", a, b)
	}
}

func TestIdentityKeyKeepsScreenPrecision(t *testing.T) {
	e := newTestExtractor(t)
	a := e.Extract(`HP 250 15.6" i5`)
	b := e.Extract(`HP 250 15.64" i5`)

	if !a.ScreenSizeInches.Valid || a.ScreenSizeInches.V != 15.6 {
		t.Fatalf("screen a = %v", a.ScreenSizeInches)
	}
	if !b.ScreenSizeInches.Valid || b.ScreenSizeInches.V != 15.64 {
		t.Fatalf("screen b = %v", b.ScreenSizeInches)
	}
	if IdentityKey(a) == IdentityKey(b) {
		t.Errorf("titles differing only in screen size share key %s", IdentityKey(a))
	}
}
