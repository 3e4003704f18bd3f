// Package query parses and evaluates the SELECT dialect taught in the lab:
// basic graph patterns, one OPTIONAL block, CONTAINS and comparison
// filters, COUNT with GROUP BY, ORDER BY and LIMIT.
package query

import (
	"fmt"
	"strconv"
	"strings"
)

// TermKind distinguishes the two kinds of pattern slot.
type TermKind int

const (
	// VariableTerm is a ?name slot that binds to fact values.
	VariableTerm TermKind = iota
	// ConstantTerm is a normalized identifier or literal that must match exactly.
	ConstantTerm
)

// Term is one slot of a triple pattern.
type Term struct {
	Kind  TermKind
	Value string // variable name without '?', or the constant value
}

// Variable returns a variable term.
func Variable(name string) Term {
	return Term{Kind: VariableTerm, Value: name}
}

// Constant returns a constant term.
func Constant(value string) Term {
	return Term{Kind: ConstantTerm, Value: value}
}

// IsVariable reports whether the term is a variable.
func (t Term) IsVariable() bool {
	return t.Kind == VariableTerm
}

func (t Term) String() string {
	if t.IsVariable() {
		return "?" + t.Value
	}
	return strconv.Quote(t.Value)
}

// TriplePattern represents a triple pattern in a WHERE clause.
type TriplePattern struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// NewPattern builds a pattern from three terms.
func NewPattern(subject, predicate, object Term) TriplePattern {
	return TriplePattern{Subject: subject, Predicate: predicate, Object: object}
}

func (p TriplePattern) String() string {
	return fmt.Sprintf("%s %s %s .", p.Subject, p.Predicate, p.Object)
}

// Variables returns the variable names used by the pattern, in slot order,
// without duplicates.
func (p TriplePattern) Variables() []string {
	var names []string
	for _, term := range []Term{p.Subject, p.Predicate, p.Object} {
		if !term.IsVariable() {
			continue
		}
		dup := false
		for _, n := range names {
			if n == term.Value {
				dup = true
				break
			}
		}
		if !dup {
			names = append(names, term.Value)
		}
	}
	return names
}

// SelectKind distinguishes plain variables from COUNT aggregates in the
// SELECT clause.
type SelectKind int

const (
	SelectVariable SelectKind = iota
	SelectCount
)

// SelectItem is one entry of the SELECT clause.
type SelectItem struct {
	Kind     SelectKind
	Variable string // plain variable name; empty for COUNT
	Source   string // COUNT(?source)
	Alias    string // AS ?alias
}

// Column returns the output column name of the item.
func (s SelectItem) Column() string {
	if s.Kind == SelectCount {
		return s.Alias
	}
	return s.Variable
}

// OrderBy represents an ORDER BY clause.
type OrderBy struct {
	Variable   string
	Descending bool
}

// Plan is the structured form of a query produced by the parser.
type Plan struct {
	Select          []SelectItem
	Where           []TriplePattern
	Optional        []TriplePattern
	Filters         []string // raw expressions, applied after the optional merge
	OptionalFilters []string // raw expressions found inside the OPTIONAL block
	GroupBy         string
	OrderBy         *OrderBy
	Limit           int // -1 when absent
	Prefixes        map[string]string

	// IgnoredOptionals counts OPTIONAL blocks after the first; they are
	// removed from the WHERE body and not evaluated.
	IgnoredOptionals int
}

// Columns returns the output column names in SELECT order.
func (p *Plan) Columns() []string {
	cols := make([]string, 0, len(p.Select))
	for _, item := range p.Select {
		cols = append(cols, item.Column())
	}
	return cols
}

// HasAggregates returns true if the query uses COUNT.
func (p *Plan) HasAggregates() bool {
	for _, item := range p.Select {
		if item.Kind == SelectCount {
			return true
		}
	}
	return false
}

// CountAliases returns the set of columns produced by COUNT.
func (p *Plan) CountAliases() map[string]bool {
	aliases := make(map[string]bool)
	for _, item := range p.Select {
		if item.Kind == SelectCount {
			aliases[item.Alias] = true
		}
	}
	return aliases
}

// String renders the plan as normalized query text.
func (p *Plan) String() string {
	var sb strings.Builder

	sb.WriteString("SELECT")
	for _, item := range p.Select {
		switch {
		case item.Kind == SelectVariable:
			fmt.Fprintf(&sb, " ?%s", item.Variable)
		case item.Source == "":
			fmt.Fprintf(&sb, " (COUNT(*) AS ?%s)", item.Alias)
		default:
			fmt.Fprintf(&sb, " (COUNT(?%s) AS ?%s)", item.Source, item.Alias)
		}
	}

	sb.WriteString(" WHERE {")
	for _, pattern := range p.Where {
		sb.WriteString(" " + pattern.String())
	}
	if len(p.Optional) > 0 || len(p.OptionalFilters) > 0 {
		sb.WriteString(" OPTIONAL {")
		for _, pattern := range p.Optional {
			sb.WriteString(" " + pattern.String())
		}
		for _, f := range p.OptionalFilters {
			fmt.Fprintf(&sb, " FILTER(%s)", f)
		}
		sb.WriteString(" }")
	}
	for _, f := range p.Filters {
		fmt.Fprintf(&sb, " FILTER(%s)", f)
	}
	sb.WriteString(" }")

	if p.GroupBy != "" {
		fmt.Fprintf(&sb, " GROUP BY ?%s", p.GroupBy)
	}
	if p.OrderBy != nil {
		if p.OrderBy.Descending {
			fmt.Fprintf(&sb, " ORDER BY DESC(?%s)", p.OrderBy.Variable)
		} else {
			fmt.Fprintf(&sb, " ORDER BY ?%s", p.OrderBy.Variable)
		}
	}
	if p.Limit >= 0 {
		fmt.Fprintf(&sb, " LIMIT %d", p.Limit)
	}

	return sb.String()
}

// Binding maps variable names (without '?') to values.
type Binding map[string]string

// Clone returns a shallow copy of the binding.
func (b Binding) Clone() Binding {
	out := make(Binding, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}
