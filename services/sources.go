package services

import (
	"sort"
	"strings"
)

// SourceOrder ranks sources for stable ordering and tie-breaks. Configured
// sources come first in their configured order; any other source ranks after
// them, alphabetically.
type SourceOrder struct {
	rank map[string]int
}

// NewSourceOrder builds an ordering from source identifiers.
func NewSourceOrder(sources []string) *SourceOrder {
	o := &SourceOrder{rank: make(map[string]int, len(sources))}
	for _, s := range sources {
		s = strings.ToLower(strings.TrimSpace(s))
		if _, dup := o.rank[s]; s != "" && !dup {
			o.rank[s] = len(o.rank)
		}
	}
	return o
}

// Rank returns the configured position of source, or the number of
// configured sources when it is unknown.
func (o *SourceOrder) Rank(source string) int {
	if r, ok := o.rank[source]; ok {
		return r
	}
	return len(o.rank)
}

// Less orders two source identifiers.
func (o *SourceOrder) Less(a, b string) bool {
	ra, rb := o.Rank(a), o.Rank(b)
	if ra != rb {
		return ra < rb
	}
	return a < b
}

// Sort orders sources in place.
func (o *SourceOrder) Sort(sources []string) {
	sort.SliceStable(sources, func(i, j int) bool { return o.Less(sources[i], sources[j]) })
}
