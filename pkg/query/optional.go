package query

import (
	"fmt"
	"strings"
)

// OptionalPolicy selects how OPTIONAL matches are merged into rows.
type OptionalPolicy string

const (
	// OptionalFirst merges the first optional match per row, so the row
	// count never changes.
	OptionalFirst OptionalPolicy = "first"
	// OptionalExpand is a left outer join: one row per optional match.
	OptionalExpand OptionalPolicy = "expand"
)

// ParseOptionalPolicy maps a configuration value to an OptionalPolicy.
func ParseOptionalPolicy(s string) (OptionalPolicy, error) {
	switch policy := OptionalPolicy(strings.ToLower(strings.TrimSpace(s))); policy {
	case OptionalFirst, OptionalExpand:
		return policy, nil
	case "":
		return OptionalFirst, nil
	default:
		return "", fmt.Errorf("unknown optional policy %q (want first or expand)", s)
	}
}

// MergeOptional evaluates the optional patterns seeded with each row.
// Matches are pruned by filters written inside the OPTIONAL block. Rows
// without a surviving match pass through unchanged. Existing variables are
// never overwritten.
func MergeOptional(src Source, rows []Binding, optional []TriplePattern, filters FilterSet, policy OptionalPolicy) []Binding {
	if len(optional) == 0 {
		return rows
	}

	out := make([]Binding, 0, len(rows))
	for _, row := range rows {
		matches := filters.Apply(Match(src, optional, row))
		if len(matches) == 0 {
			out = append(out, row)
			continue
		}

		if policy == OptionalExpand {
			for _, match := range matches {
				out = append(out, merge(row, match))
			}
			continue
		}
		out = append(out, merge(row, matches[0]))
	}
	return out
}

func merge(row, extra Binding) Binding {
	out := row.Clone()
	for k, v := range extra {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}
