package query

import "github.com/coolbeans/sparqlab/pkg/store"

// Source supplies facts for matching. "" is a wildcard, and matches must be
// returned in dataset order.
type Source interface {
	Find(subject, predicate, object string) []store.Triple
}

// Match joins patterns against src starting from seed and returns every
// consistent binding. Patterns are evaluated in order with a nested-loop
// join; a multi-valued field yields one row per value. Neither seed nor
// any intermediate row is modified.
func Match(src Source, patterns []TriplePattern, seed Binding) []Binding {
	rows := []Binding{seed.Clone()}

	for _, pattern := range patterns {
		var next []Binding
		for _, row := range rows {
			next = append(next, extend(src, pattern, row)...)
		}
		if len(next) == 0 {
			return nil
		}
		rows = next
	}

	return rows
}

// extend returns the rows produced by joining one pattern onto row.
func extend(src Source, pattern TriplePattern, row Binding) []Binding {
	candidates := src.Find(
		resolve(pattern.Subject, row),
		resolve(pattern.Predicate, row),
		resolve(pattern.Object, row),
	)

	var out []Binding
	for _, triple := range candidates {
		if b, ok := bind(pattern, triple, row); ok {
			out = append(out, b)
		}
	}
	return out
}

// resolve returns the lookup key for a slot: the constant, the bound value
// of a variable, or "" for an unbound variable.
func resolve(term Term, row Binding) string {
	if term.IsVariable() {
		return row[term.Value]
	}
	return term.Value
}

// bind checks every slot of pattern against triple and returns row extended
// with the new variable values. Constants are compared again here because
// the store treats an empty constant as a wildcard.
func bind(pattern TriplePattern, triple store.Triple, row Binding) (Binding, bool) {
	out := row.Clone()

	slots := [3]struct {
		term  Term
		value string
	}{
		{pattern.Subject, triple.Subject},
		{pattern.Predicate, triple.Predicate},
		{pattern.Object, triple.Object},
	}

	for _, slot := range slots {
		if !slot.term.IsVariable() {
			if slot.term.Value != slot.value {
				return nil, false
			}
			continue
		}
		if bound, ok := out[slot.term.Value]; ok {
			if bound != slot.value {
				return nil, false
			}
			continue
		}
		out[slot.term.Value] = slot.value
	}

	return out, true
}
