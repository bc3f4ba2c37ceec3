package storage

import (
	"context"

	"price-matcher/models"
)

// ResultWriter is the interface any sink for a finished run must satisfy.
type ResultWriter interface {
	Write(ctx context.Context, result *models.RunResult) error
	Close() error
}

// groupKeys maps each listing to the key of the group it ended up in.
func groupKeys(result *models.RunResult) map[*models.StandardizedListing]string {
	keys := make(map[*models.StandardizedListing]string, len(result.Listings))
	for _, g := range result.Groups {
		for _, m := range g.Members {
			keys[m] = g.GroupKey
		}
	}
	return keys
}

func runID(result *models.RunResult) string {
	if result.Summary == nil {
		return ""
	}
	return result.Summary.RunID
}
