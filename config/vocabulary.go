package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Vocabulary is the versioned set of lookup tables the field extractor runs
// against. It is data, not code: swap it to test against a synthetic corpus.
type Vocabulary struct {
	Version       string          `yaml:"version"`
	Brands        []Brand         `yaml:"brands"`
	CPUFamilies   []CPUFamily     `yaml:"cpu_families"`
	StorageMedia  []StorageMedium `yaml:"storage_media"`
	NoiseWords    []string        `yaml:"noise_words"`
	NoisePatterns []string        `yaml:"noise_patterns"`
}

// Brand is a manufacturer. Aliases are names of the manufacturer itself and
// are stripped from the model; Lines are product-line names that identify the
// brand but stay part of the model.
type Brand struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
	Lines   []string `yaml:"lines"`
}

// CPUFamily is a processor family and the regular expressions (matched
// against the lowercased title) that signal it. When a pattern has a capture
// group, only the group counts as the CPU mention; the rest is context.
type CPUFamily struct {
	Name     string   `yaml:"name"`
	Patterns []string `yaml:"patterns"`
}

// StorageMedium is a storage technology and the tokens that name it.
type StorageMedium struct {
	Name   string   `yaml:"name"`
	Tokens []string `yaml:"tokens"`
}

// DefaultVocabulary returns the built-in tables for the Kenyan laptop corpus.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		Version: "2024.06-laptops-ke",
		Brands: []Brand{
			{Name: "HP", Aliases: []string{"hp", "hewlett packard", "hewlett-packard"},
				Lines: []string{"elitebook", "probook", "pavilion", "envy", "spectre", "zbook", "omen", "victus", "chromebook x360"}},
			{Name: "DELL", Aliases: []string{"dell"},
				Lines: []string{"latitude", "inspiron", "xps", "vostro", "precision", "alienware"}},
			{Name: "LENOVO", Aliases: []string{"lenovo"},
				Lines: []string{"thinkpad", "ideapad", "thinkbook", "yoga", "legion"}},
			{Name: "APPLE", Aliases: []string{"apple"},
				Lines: []string{"macbook", "imac"}},
			{Name: "MICROSOFT", Aliases: []string{"microsoft"},
				Lines: []string{"surface"}},
			{Name: "ASUS", Aliases: []string{"asus"},
				Lines: []string{"zenbook", "vivobook", "rog", "tuf gaming", "expertbook"}},
			{Name: "ACER", Aliases: []string{"acer"},
				Lines: []string{"aspire", "predator", "nitro", "swift", "travelmate"}},
			{Name: "SAMSUNG", Aliases: []string{"samsung"},
				Lines: []string{"galaxy book"}},
			{Name: "TOSHIBA", Aliases: []string{"toshiba", "dynabook"},
				Lines: []string{"portege", "satellite", "tecra"}},
			{Name: "MSI", Aliases: []string{"msi"}},
			{Name: "HUAWEI", Aliases: []string{"huawei"},
				Lines: []string{"matebook"}},
		},
		CPUFamilies: []CPUFamily{
			{Name: "INTEL_CORE_ULTRA", Patterns: []string{`\b(?:intel\s*)?core\s*ultra\s*[3579]\b`}},
			{Name: "INTEL_CORE", Patterns: []string{
				`\b(?:intel\s*)?core\s*i[3579]\b`,
				`\bi[3579]\s*-?\s*\d{4,5}[a-z]{0,2}\b`,
				`\bi[3579]\b`,
			}},
			{Name: "AMD_RYZEN", Patterns: []string{`\b(?:amd\s*)?ryzen\b(?:\s*[3579]\b)?`}},
			{Name: "APPLE_SILICON", Patterns: []string{
				`\bapple\s*m[1-4]\b(?:\s*(?:pro|max|ultra)\b)?`,
				`\bm[1-4]\s*(?:pro|max|ultra)?\s*chip\b`,
				`\bm[1-4]\s*(?:pro|max|ultra)\b`,
				`\bmacbook(?:\s*(?:air|pro))?\s+(m[1-4](?:\s*(?:pro|max|ultra))?)\b`,
			}},
			{Name: "INTEL_CELERON", Patterns: []string{`\b(?:intel\s*)?celeron\b`}},
			{Name: "INTEL_PENTIUM", Patterns: []string{`\b(?:intel\s*)?pentium\b`}},
			{Name: "INTEL_XEON", Patterns: []string{`\b(?:intel\s*)?xeon\b`}},
			{Name: "AMD_ATHLON", Patterns: []string{`\b(?:amd\s*)?athlon\b`}},
			{Name: "QUALCOMM_SNAPDRAGON", Patterns: []string{`\b(?:qualcomm\s*)?snapdragon\b`}},
			{Name: "MEDIATEK", Patterns: []string{`\bmediatek\b`}},
		},
		StorageMedia: []StorageMedium{
			{Name: "SSD", Tokens: []string{"ssd", "nvme", "m.2", "solid state drive", "solid state"}},
			{Name: "HDD", Tokens: []string{"hdd", "hard disk drive", "hard disk", "hard drive"}},
			{Name: "EMMC", Tokens: []string{"emmc"}},
		},
		NoiseWords: []string{
			"refurbished", "renewed", "ex uk", "ex-uk", "exuk", "brand new", "new", "used",
			"original", "genuine", "official", "latest", "sale", "offer", "best price",
			"laptop", "laptops", "notebook", "ultrabook", "computer",
			"intel", "amd", "processor", "cpu", "ram", "memory", "storage", "rom",
			"with", "and", "plus", "free", "bag", "warranty", "kenya", "nairobi",
		},
		NoisePatterns: []string{
			`\b\d+(?:\.\d+)?\s*ghz\b`,
			`\b\d{1,2}(?:st|nd|rd|th)\s*gen(?:eration)?\b`,
			`\bwindows\s*(?:\d+|xp|vista)?\s*(?:pro|home)?\b`,
			`\bwin\s*\d+\b`,
			`\bddr\d\b`,
			`\b\d+(?:\.\d+)?\s*(?:gb|tb|mb)\b`,
		},
	}
}

// LoadVocabulary reads and validates a YAML vocabulary file.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary %s: %w", path, err)
	}
	v := &Vocabulary{}
	if err := yaml.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}
	if err := v.Validate(); err != nil {
		return nil, fmt.Errorf("vocabulary %s: %w", path, err)
	}
	return v, nil
}

// Validate checks that every table entry is named, has at least one signal
// and that every pattern compiles.
func (v *Vocabulary) Validate() error {
	if strings.TrimSpace(v.Version) == "" {
		return fmt.Errorf("version is required")
	}
	if len(v.Brands) == 0 {
		return fmt.Errorf("at least one brand is required")
	}
	for i, b := range v.Brands {
		if b.Name == "" {
			return fmt.Errorf("brands[%d]: name is required", i)
		}
		if len(b.Aliases)+len(b.Lines) == 0 {
			return fmt.Errorf("brand %s: needs at least one alias or line", b.Name)
		}
	}
	for i, c := range v.CPUFamilies {
		if c.Name == "" {
			return fmt.Errorf("cpu_families[%d]: name is required", i)
		}
		if len(c.Patterns) == 0 {
			return fmt.Errorf("cpu family %s: needs at least one pattern", c.Name)
		}
		for _, p := range c.Patterns {
			if _, err := regexp.Compile(p); err != nil {
				return fmt.Errorf("cpu family %s: pattern %q: %w", c.Name, p, err)
			}
		}
	}
	for i, m := range v.StorageMedia {
		if m.Name == "" {
			return fmt.Errorf("storage_media[%d]: name is required", i)
		}
		if len(m.Tokens) == 0 {
			return fmt.Errorf("storage medium %s: needs at least one token", m.Name)
		}
	}
	for _, p := range v.NoisePatterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("noise pattern %q: %w", p, err)
		}
	}
	return nil
}
