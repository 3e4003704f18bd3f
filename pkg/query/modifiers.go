package query

import (
	"sort"
	"strconv"
)

type groupKey struct {
	value string
	bound bool
}

// Aggregate groups rows by plan.GroupBy and emits one row per group with a
// count for every COUNT item. Groups appear in first-seen order. Without a
// GROUP BY variable all rows form a single group.
func Aggregate(rows []Binding, plan *Plan) []Binding {
	if !plan.HasAggregates() {
		return rows
	}

	var order []groupKey
	groups := make(map[groupKey][]Binding)

	if plan.GroupBy == "" {
		key := groupKey{}
		order = append(order, key)
		groups[key] = rows
	} else {
		for _, row := range rows {
			value, ok := row[plan.GroupBy]
			key := groupKey{value: value, bound: ok}
			if _, seen := groups[key]; !seen {
				order = append(order, key)
			}
			groups[key] = append(groups[key], row)
		}
	}

	out := make([]Binding, 0, len(order))
	for _, key := range order {
		members := groups[key]
		result := make(Binding)
		if key.bound {
			result[plan.GroupBy] = key.value
		}
		for _, item := range plan.Select {
			if item.Kind != SelectCount {
				continue
			}
			result[item.Alias] = strconv.Itoa(countBound(members, item.Source))
		}
		out = append(out, result)
	}
	return out
}

// countBound counts rows binding source; an empty source is COUNT(*).
func countBound(rows []Binding, source string) int {
	if source == "" {
		return len(rows)
	}
	n := 0
	for _, row := range rows {
		if _, ok := row[source]; ok {
			n++
		}
	}
	return n
}

// Sort orders rows by the ORDER BY variable with a stable sort. Values of
// columns listed in numeric compare as integers; everything else compares
// as strings. Rows missing the variable sort first in ascending order.
func Sort(rows []Binding, order *OrderBy, numeric map[string]bool) []Binding {
	if order == nil {
		return rows
	}

	sorted := make([]Binding, len(rows))
	copy(sorted, rows)

	asNumber := numeric[order.Variable]
	sort.SliceStable(sorted, func(i, j int) bool {
		if order.Descending {
			return compareValues(sorted[j], sorted[i], order.Variable, asNumber) < 0
		}
		return compareValues(sorted[i], sorted[j], order.Variable, asNumber) < 0
	})
	return sorted
}

func compareValues(a, b Binding, variable string, asNumber bool) int {
	va, okA := a[variable]
	vb, okB := b[variable]

	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	}

	if asNumber {
		na, errA := strconv.Atoi(va)
		nb, errB := strconv.Atoi(vb)
		if errA == nil && errB == nil {
			switch {
			case na < nb:
				return -1
			case na > nb:
				return 1
			}
			return 0
		}
	}

	switch {
	case va < vb:
		return -1
	case va > vb:
		return 1
	}
	return 0
}

// Limit keeps the first n rows. A negative n keeps everything.
func Limit(rows []Binding, n int) []Binding {
	if n < 0 || n >= len(rows) {
		return rows
	}
	return rows[:n]
}

// Project returns new rows holding only the named columns that are bound.
func Project(rows []Binding, columns []string) []Binding {
	out := make([]Binding, 0, len(rows))
	for _, row := range rows {
		projected := make(Binding, len(columns))
		for _, col := range columns {
			if value, ok := row[col]; ok {
				projected[col] = value
			}
		}
		out = append(out, projected)
	}
	return out
}
