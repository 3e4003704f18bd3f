package query

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	containsPattern   = regexp.MustCompile(`(?i)CONTAINS\s*\(\s*LCASE\s*\(\s*[?$](\w+)\s*\)\s*,\s*"((?:[^"\\]|\\.)*)"\s*\)`)
	comparisonPattern = regexp.MustCompile(`[?$](\w+)\s*(>=|<=|!=|=|>|<)\s*"((?:[^"\\]|\\.)*)"`)
)

type filterKind int

const (
	filterUnsupported filterKind = iota
	filterContains
	filterCompare
)

// Filter is a compiled FILTER expression. Two forms are understood:
// CONTAINS(LCASE(?v), "text") and ?v <op> "value". Any other expression
// keeps every row.
type Filter struct {
	Expression string

	kind     filterKind
	variable string
	operator string
	operand  string
}

// CompileFilter recognizes the form of a raw filter expression.
func CompileFilter(expression string) Filter {
	f := Filter{Expression: expression}

	if m := containsPattern.FindStringSubmatch(expression); m != nil {
		f.kind = filterContains
		f.variable = m[1]
		f.operand = lower(unescaper.Replace(m[2]))
		return f
	}

	if m := comparisonPattern.FindStringSubmatch(expression); m != nil {
		f.kind = filterCompare
		f.variable = m[1]
		f.operator = m[2]
		f.operand = unescaper.Replace(m[3])
	}

	return f
}

// Supported reports whether the expression matched a known form.
func (f Filter) Supported() bool {
	return f.kind != filterUnsupported
}

// Eval reports whether row satisfies the filter. A row that leaves the
// filter variable unbound is rejected.
func (f Filter) Eval(row Binding) bool {
	switch f.kind {
	case filterContains:
		value, ok := row[f.variable]
		if !ok || value == "" {
			return false
		}
		return strings.Contains(lower(value), f.operand)

	case filterCompare:
		value, ok := row[f.variable]
		if !ok {
			return false
		}
		switch f.operator {
		case ">=":
			return value >= f.operand
		case "<=":
			return value <= f.operand
		case ">":
			return value > f.operand
		case "<":
			return value < f.operand
		case "=":
			return value == f.operand
		case "!=":
			return value != f.operand
		}
	}

	return true
}

// lower applies Unicode lower casing. A Caser is not safe for concurrent
// use, so one is made per call.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// FilterSet is a conjunction of filters.
type FilterSet []Filter

// CompileFilters compiles every expression once for a query.
func CompileFilters(expressions []string) FilterSet {
	set := make(FilterSet, 0, len(expressions))
	for _, expr := range expressions {
		set = append(set, CompileFilter(expr))
	}
	return set
}

// Keep reports whether row satisfies every filter.
func (fs FilterSet) Keep(row Binding) bool {
	for _, f := range fs {
		if !f.Eval(row) {
			return false
		}
	}
	return true
}

// Apply returns the rows that satisfy every filter, preserving order.
func (fs FilterSet) Apply(rows []Binding) []Binding {
	if len(fs) == 0 {
		return rows
	}

	var out []Binding
	for _, row := range rows {
		if fs.Keep(row) {
			out = append(out, row)
		}
	}
	return out
}

// Unsupported returns the expressions that did not match a known form.
func (fs FilterSet) Unsupported() []string {
	var exprs []string
	for _, f := range fs {
		if !f.Supported() {
			exprs = append(exprs, f.Expression)
		}
	}
	return exprs
}
