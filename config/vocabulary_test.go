package config

import (
	"reflect"
	"strings"
	"testing"
)

func TestDefaultVocabularyValidates(t *testing.T) {
	if err := DefaultVocabulary().Validate(); err != nil {
		t.Fatalf("default vocabulary invalid: %v", err)
	}
}

func TestShippedVocabularyMatchesDefault(t *testing.T) {
	got, err := LoadVocabulary("vocabulary.yaml")
	if err != nil {
		t.Fatalf("LoadVocabulary: %v", err)
	}
	want := DefaultVocabulary()

	if got.Version != want.Version {
		t.Errorf("version = %q; want %q", got.Version, want.Version)
	}
	for i := range want.Brands {
		if i >= len(got.Brands) {
			t.Errorf("brand %s missing from file", want.Brands[i].Name)
			continue
		}
		if !reflect.DeepEqual(got.Brands[i], want.Brands[i]) {
			t.Errorf("brands[%d] = %+v; want %+v", i, got.Brands[i], want.Brands[i])
		}
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("vocabulary.yaml differs from DefaultVocabulary under version %s", want.Version)
	}
}

func TestLoadVocabularyErrors(t *testing.T) {
	tests := []struct {
		path    string
		wantErr string
	}{
		{"testdata/missing.yaml", "read vocabulary"},
		{"testdata/bad_pattern.yaml", "cpu family BROKEN"},
		{"testdata/no_version.yaml", "version is required"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := LoadVocabulary(tt.path)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRejectsEmptyBrand(t *testing.T) {
	v := DefaultVocabulary()
	v.Brands = append(v.Brands, Brand{Name: "GHOST"})
	if err := v.Validate(); err == nil {
		t.Error("brand without aliases or lines should be rejected")
	}
}
