package services

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"price-matcher/config"
	"price-matcher/models"
)

var (
	// ramRegexp captures an integer directly followed by a memory-size unit.
	ramRegexp = regexp.MustCompile(`\b(\d{1,4})\s*(?:gb|g\s*b|gigabytes?)\b`)
	// ramAfter and ramBefore recognise a RAM label next to a size.
	ramAfter  = regexp.MustCompile(`^\s*(?:ddr\d\s*)?(?:ram|memory)\b`)
	ramBefore = regexp.MustCompile(`\b(?:ram|memory)\s*[:\-]?\s*$`)
	// screenRegexp captures a decimal directly followed by an inch marker.
	screenRegexp = regexp.MustCompile(`\b(\d{1,2}(?:\.\d{1,2})?)\s*-?\s*(?:"|''|inch(?:es)?\b|in\b)`)
	// tokenRegexp splits the model residue into alphanumeric runs.
	tokenRegexp = regexp.MustCompile(`[\p{L}\p{N}]+`)

	quoteReplacer = strings.NewReplacer(
		"‘", "'", "’", "'", "′", "'",
		"“", `"`, "”", `"`, "″", `"`,
	)
)

const (
	minRAMGB  = 0
	maxRAMGB  = 256
	minScreen = 9.0
	maxScreen = 20.0
)

type span struct{ start, end int }

func (s span) overlaps(o span) bool {
	return s.start < o.end && o.start < s.end
}

type brandMatcher struct {
	brand string
	re    *regexp.Regexp
}

type cpuMatcher struct {
	family   string
	patterns []*regexp.Regexp
}

// Extractor derives the identity attributes of a laptop from its free-text
// title. It is pure and total: every title yields a value or the sentinel for
// each field. An Extractor is safe for concurrent use.
type Extractor struct {
	brands     []brandMatcher
	aliases    map[string][]*regexp.Regexp
	cpus       []cpuMatcher
	storageFwd *regexp.Regexp
	storageRev *regexp.Regexp
	media      map[string]string
	noise      []*regexp.Regexp
}

// NewExtractor compiles a vocabulary into matchers.
func NewExtractor(vocab *config.Vocabulary) (*Extractor, error) {
	if err := vocab.Validate(); err != nil {
		return nil, fmt.Errorf("extractor: %w", err)
	}

	e := &Extractor{
		aliases: make(map[string][]*regexp.Regexp),
		media:   make(map[string]string),
	}

	// Longest phrase first so that, at the same position, a product line beats
	// a shorter manufacturer name it happens to contain.
	type candidate struct {
		phrase string
		brand  string
	}
	var candidates []candidate
	for _, b := range vocab.Brands {
		for _, a := range b.Aliases {
			if a = normalisePhrase(a); a == "" {
				continue
			}
			re, err := regexp.Compile(wordPattern(a))
			if err != nil {
				return nil, fmt.Errorf("extractor: brand %s alias %q: %w", b.Name, a, err)
			}
			e.aliases[b.Name] = append(e.aliases[b.Name], re)
			candidates = append(candidates, candidate{a, b.Name})
		}
		for _, l := range b.Lines {
			if l = normalisePhrase(l); l != "" {
				candidates = append(candidates, candidate{l, b.Name})
			}
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].phrase) > len(candidates[j].phrase)
	})
	for _, c := range candidates {
		e.brands = append(e.brands, brandMatcher{brand: c.brand, re: regexp.MustCompile(wordPattern(c.phrase))})
	}

	for _, f := range vocab.CPUFamilies {
		m := cpuMatcher{family: f.Name}
		for _, p := range f.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("extractor: cpu family %s: %w", f.Name, err)
			}
			m.patterns = append(m.patterns, re)
		}
		e.cpus = append(e.cpus, m)
	}

	var mediaTokens []string
	for _, m := range vocab.StorageMedia {
		for _, tok := range m.Tokens {
			if tok = normalisePhrase(tok); tok != "" {
				mediaTokens = append(mediaTokens, tok)
				e.media[mediaKey(tok)] = m.Name
			}
		}
	}
	if len(mediaTokens) > 0 {
		sort.SliceStable(mediaTokens, func(i, j int) bool { return len(mediaTokens[i]) > len(mediaTokens[j]) })
		alts := make([]string, len(mediaTokens))
		for i, tok := range mediaTokens {
			alts[i] = wordPattern(tok)
		}
		alt := strings.Join(alts, "|")
		e.storageFwd = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*(gb|tb)\s*(?:[-/]\s*)?(` + alt + `)`)
		e.storageRev = regexp.MustCompile(`(` + alt + `)\s*[:\-]?\s*(\d+(?:\.\d+)?)\s*(gb|tb)\b`)
	}

	for _, p := range vocab.NoisePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("extractor: noise pattern %q: %w", p, err)
		}
		e.noise = append(e.noise, re)
	}
	words := append([]string(nil), vocab.NoiseWords...)
	words = append(words, mediaTokens...)
	if re := phraseAlternation(words); re != nil {
		e.noise = append(e.noise, re)
	}

	return e, nil
}

// Extract returns the identity attributes found in title.
func (e *Extractor) Extract(title string) models.Attributes {
	text := prepareTitle(title)
	attrs := models.Attributes{
		Brand:   e.matchBrand(text),
		CPUType: models.Unknown,
		Storage: models.Unknown,
	}

	var removed []span

	cpu, cpuSpans := e.matchCPU(text)
	attrs.CPUType = cpu
	removed = append(removed, cpuSpans...)

	storage, storageSpans := e.matchStorage(text)
	if storage != "" {
		attrs.Storage = storage
	}
	removed = append(removed, storageSpans...)

	if ram, sp, ok := matchRAM(text, storageSpans); ok {
		attrs.RAMGB = models.Some(ram)
		removed = append(removed, sp)
	}
	if screen, sp, ok := matchScreen(text); ok {
		attrs.ScreenSizeInches = models.Some(screen)
		removed = append(removed, sp)
	}

	attrs.Model = e.model(text, attrs.Brand, removed)
	return attrs
}

// matchBrand returns the brand mentioned first in the title. Matchers are
// ordered longest phrase first, so at equal positions the longer phrase wins.
func (e *Extractor) matchBrand(text string) string {
	brand := models.Unknown
	best := -1
	for _, b := range e.brands {
		loc := b.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if best == -1 || loc[0] < best {
			best = loc[0]
			brand = b.brand
		}
	}
	return brand
}

// matchCPU returns the family whose earliest mention comes first in the title,
// with every CPU mention so they can be dropped from the model.
func (e *Extractor) matchCPU(text string) (string, []span) {
	family := models.Unknown
	best := -1
	var spans []span
	for _, c := range e.cpus {
		for _, re := range c.patterns {
			for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
				sp := span{loc[0], loc[1]}
				if len(loc) >= 4 && loc[2] >= 0 {
					sp = span{loc[2], loc[3]}
				}
				spans = append(spans, sp)
				if best == -1 || sp.start < best {
					best = sp.start
					family = c.family
				}
			}
		}
	}
	return family, spans
}

// matchStorage looks for capacity+unit next to a medium token in either order.
// The earliest match wins; every match span is returned.
func (e *Extractor) matchStorage(text string) (string, []span) {
	if e.storageFwd == nil {
		return "", nil
	}
	best := -1
	var value string
	var spans []span

	consider := func(start, end int, capacity, unit, medium string) {
		spans = append(spans, span{start, end})
		token := e.storageToken(capacity, unit, medium)
		if token == "" {
			return
		}
		if best == -1 || start < best {
			best = start
			value = token
		}
	}

	for _, m := range e.storageFwd.FindAllStringSubmatchIndex(text, -1) {
		consider(m[0], m[1], text[m[2]:m[3]], text[m[4]:m[5]], text[m[6]:m[7]])
	}
	for _, m := range e.storageRev.FindAllStringSubmatchIndex(text, -1) {
		consider(m[0], m[1], text[m[4]:m[5]], text[m[6]:m[7]], text[m[2]:m[3]])
	}
	return value, spans
}

func (e *Extractor) storageToken(capacity, unit, medium string) string {
	n, err := strconv.ParseFloat(capacity, 64)
	if err != nil || n <= 0 {
		return ""
	}
	name, ok := e.media[mediaKey(medium)]
	if !ok {
		return ""
	}
	return strconv.FormatFloat(n, 'f', -1, 64) + strings.ToUpper(unit) + "_" + name
}

// matchRAM returns the first size outside any storage span, preferring one
// labelled as RAM or memory when the title lists several sizes.
func matchRAM(text string, storage []span) (int, span, bool) {
	found := false
	var size int
	var at span
	for _, m := range ramRegexp.FindAllStringSubmatchIndex(text, -1) {
		sp := span{m[0], m[1]}
		if overlapsAny(sp, storage) {
			continue
		}
		n, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil || n <= minRAMGB || n > maxRAMGB {
			continue
		}
		if ramAfter.MatchString(text[sp.end:]) || ramBefore.MatchString(text[:sp.start]) {
			return n, sp, true
		}
		if !found {
			found, size, at = true, n, sp
		}
	}
	return size, at, found
}

func matchScreen(text string) (float64, span, bool) {
	for _, m := range screenRegexp.FindAllStringSubmatchIndex(text, -1) {
		n, err := strconv.ParseFloat(text[m[2]:m[3]], 64)
		if err != nil || n < minScreen || n > maxScreen {
			continue
		}
		return n, span{m[0], m[1]}, true
	}
	return 0, span{}, false
}

// model is what remains of the title once brand aliases, attribute mentions and
// marketing noise are removed.
func (e *Extractor) model(text, brand string, removed []span) string {
	buf := []byte(text)
	for _, sp := range removed {
		for i := sp.start; i < sp.end; i++ {
			buf[i] = ' '
		}
	}
	residue := string(buf)
	for _, re := range e.aliases[brand] {
		residue = re.ReplaceAllString(residue, " ")
	}
	for _, re := range e.noise {
		residue = re.ReplaceAllString(residue, " ")
	}

	tokens := tokenRegexp.FindAllString(residue, -1)
	if len(tokens) == 0 {
		return ""
	}
	upper := cases.Upper(language.Und)
	for i, t := range tokens {
		tokens[i] = upper.String(t)
	}
	return strings.Join(tokens, "_")
}

// prepareTitle folds a title into the form every matcher runs against.
func prepareTitle(title string) string {
	s := html.UnescapeString(title)
	s = norm.NFKC.String(s)
	s = quoteReplacer.Replace(s)
	return strings.ToLower(s)
}

func normalisePhrase(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func mediaKey(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' {
			return -1
		}
		return r
	}, strings.ToLower(s))
}

// phrasePattern quotes a phrase and lets its words be separated by any run of
// whitespace or hyphens.
func phrasePattern(phrase string) string {
	words := strings.Fields(phrase)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(words, `[\s-]*`)
}

// wordPattern is phrasePattern anchored on word boundaries where the phrase
// starts or ends with a word character.
func wordPattern(phrase string) string {
	p := phrasePattern(phrase)
	if isWordByte(phrase[0]) {
		p = `\b` + p
	}
	if isWordByte(phrase[len(phrase)-1]) {
		p += `\b`
	}
	return p
}

func phraseAlternation(phrases []string) *regexp.Regexp {
	var cleaned []string
	for _, p := range phrases {
		if p = normalisePhrase(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return nil
	}
	sort.SliceStable(cleaned, func(i, j int) bool { return len(cleaned[i]) > len(cleaned[j]) })
	alts := make([]string, len(cleaned))
	for i, p := range cleaned {
		alts[i] = wordPattern(p)
	}
	return regexp.MustCompile(strings.Join(alts, "|"))
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

func overlapsAny(s span, others []span) bool {
	for _, o := range others {
		if s.overlaps(o) {
			return true
		}
	}
	return false
}
