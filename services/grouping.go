package services

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"price-matcher/models"
	"price-matcher/utils"
)

// DefaultFuzzyThreshold is the model similarity at which two unbranded groups
// are treated as the same product.
const DefaultFuzzyThreshold = 0.85

// GroupingEngine partitions standardized listings into product groups: first
// by identical primary key, then by fuzzy model similarity for groups whose
// brand could not be recognised.
type GroupingEngine struct {
	threshold float64
	order     *SourceOrder
	logger    *utils.Logger
}

// NewGroupingEngine creates an engine. A threshold outside (0, 1] falls back
// to DefaultFuzzyThreshold.
func NewGroupingEngine(threshold float64, order *SourceOrder, logger *utils.Logger) *GroupingEngine {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultFuzzyThreshold
	}
	return &GroupingEngine{threshold: threshold, order: order, logger: logger}
}

// Group returns groups covering every listing exactly once. The result depends
// only on the listings, not on the order they are passed in.
func (g *GroupingEngine) Group(listings []*models.StandardizedListing) []*models.ProductGroup {
	ordered := g.stableOrder(listings)
	position := make(map[*models.StandardizedListing]int, len(ordered))
	for i, l := range ordered {
		position[l] = i
	}

	groups := exactGroups(ordered)

	// Only groups without a recognised brand are eligible for fuzzy merging;
	// a known brand already pins the identity down.
	var candidates []int
	for i, grp := range groups {
		rep := grp.Members[0]
		if rep.Brand == models.Unknown && rep.Model != "" {
			candidates = append(candidates, i)
		}
	}

	ds := utils.NewDisjointSet(len(candidates))
	for a := 0; a < len(candidates); a++ {
		for b := a + 1; b < len(candidates); b++ {
			if g.fuzzyMatch(groups[candidates[a]].Members[0], groups[candidates[b]].Members[0]) {
				ds.Union(a, b)
			}
		}
	}

	replaced := make(map[int]*models.ProductGroup)
	absorbed := make(map[int]bool)
	for _, comp := range ds.Components() {
		if len(comp) < 2 {
			continue
		}
		merged := &models.ProductGroup{GroupType: models.GroupFuzzy}
		keys := make([]string, 0, len(comp))
		for n, c := range comp {
			gi := candidates[c]
			merged.Members = append(merged.Members, groups[gi].Members...)
			keys = append(keys, groups[gi].GroupKey)
			if n > 0 {
				absorbed[gi] = true
			}
		}
		sort.SliceStable(merged.Members, func(i, j int) bool {
			return position[merged.Members[i]] < position[merged.Members[j]]
		})
		merged.GroupKey = fuzzyGroupKey(keys)
		replaced[candidates[comp[0]]] = merged
	}

	out := make([]*models.ProductGroup, 0, len(groups)-len(absorbed))
	fuzzy := 0
	for i, grp := range groups {
		if absorbed[i] {
			continue
		}
		if m, ok := replaced[i]; ok {
			grp = m
			fuzzy++
		}
		g.finalise(grp)
		out = append(out, grp)
	}

	g.logger.Info("[grouping] %d listings → %d groups (%d exact, %d fuzzy)",
		len(listings), len(out), len(out)-fuzzy, fuzzy)
	return out
}

// stableOrder sorts a copy of listings by source rank, source name and input
// line, then by key and URL for records that share a line.
func (g *GroupingEngine) stableOrder(listings []*models.StandardizedListing) []*models.StandardizedListing {
	ordered := append([]*models.StandardizedListing(nil), listings...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Source != b.Source {
			return g.order.Less(a.Source, b.Source)
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.PrimaryKey != b.PrimaryKey {
			return a.PrimaryKey < b.PrimaryKey
		}
		return a.URL < b.URL
	})
	return ordered
}

func exactGroups(ordered []*models.StandardizedListing) []*models.ProductGroup {
	index := make(map[string]int)
	var groups []*models.ProductGroup
	for _, l := range ordered {
		i, ok := index[l.PrimaryKey]
		if !ok {
			i = len(groups)
			index[l.PrimaryKey] = i
			groups = append(groups, &models.ProductGroup{GroupKey: l.PrimaryKey, GroupType: models.GroupExact})
		}
		groups[i].Members = append(groups[i].Members, l)
	}
	return groups
}

// fuzzyMatch compares two group representatives. Unknown CPU and null RAM
// are compatible with anything.
func (g *GroupingEngine) fuzzyMatch(a, b *models.StandardizedListing) bool {
	if a.CPUType != models.Unknown && b.CPUType != models.Unknown && a.CPUType != b.CPUType {
		return false
	}
	if a.RAMGB.Valid && b.RAMGB.Valid && a.RAMGB.V != b.RAMGB.V {
		return false
	}
	return ModelSimilarity(a.Model, b.Model) >= g.threshold
}

func (g *GroupingEngine) finalise(grp *models.ProductGroup) {
	seen := make(map[string]struct{})
	grp.Sources = grp.Sources[:0]
	for _, m := range grp.Members {
		if _, ok := seen[m.Source]; !ok {
			seen[m.Source] = struct{}{}
			grp.Sources = append(grp.Sources, m.Source)
		}
	}
	g.order.Sort(grp.Sources)
	grp.ProductCount = len(grp.Members)
}

// fuzzyGroupKey derives a synthetic key from the merged primary keys, so the
// same merge yields the same key in every run.
func fuzzyGroupKey(keys []string) string {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "|")))
	return "FZ" + strings.ToUpper(hex.EncodeToString(sum[:8]))
}
