package workflows

import "sort"

// DeduplicateStrings removes duplicate strings and returns the result
// sorted in ascending order. The input slice is not modified.
// Workflow code uses it instead of ranging over a map so replays see
// the same order.
func DeduplicateStrings(s []string) []string {
	if len(s) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(s))
	result := make([]string, 0, len(s))
	for _, v := range s {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			result = append(result, v)
		}
	}
	sort.Strings(result)
	return result
}
