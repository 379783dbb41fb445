// Package dedup filters candidate PubMed ids against the local store.
package dedup

import (
	"context"
	"fmt"
)

// ExistenceChecker reports which of a batch of ids are already stored.
type ExistenceChecker interface {
	// ExistingPMIDs returns the subset of pmids present in the store. The
	// batch is never empty.
	ExistingPMIDs(ctx context.Context, pmids []string) (map[string]struct{}, error)
}

// Missing returns the ids in pmids that are not stored, preserving their
// order and any duplicates. The store is queried once with the distinct ids;
// an empty input returns without querying.
func Missing(ctx context.Context, pmids []string, store ExistenceChecker) ([]string, error) {
	if len(pmids) == 0 {
		return []string{}, nil
	}

	existing, err := store.ExistingPMIDs(ctx, Unique(pmids))
	if err != nil {
		return nil, fmt.Errorf("look up existing pmids: %w", err)
	}

	missing := make([]string, 0, len(pmids))
	for _, id := range pmids {
		if _, ok := existing[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// Unique returns the distinct ids in order of first occurrence.
func Unique(pmids []string) []string {
	seen := make(map[string]struct{}, len(pmids))
	out := make([]string, 0, len(pmids))
	for _, id := range pmids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Subtract returns the distinct ids of from that do not appear in remove,
// in order of first occurrence.
func Subtract(from, remove []string) []string {
	drop := make(map[string]struct{}, len(remove))
	for _, id := range remove {
		drop[id] = struct{}{}
	}
	out := make([]string, 0, len(from))
	for _, id := range Unique(from) {
		if _, ok := drop[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
