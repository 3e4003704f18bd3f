package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/coolbeans/sparqlab/pkg/store"
)

// AggregationMode decides what happens when COUNT appears without GROUP BY.
type AggregationMode string

const (
	// AggregationStrict rejects the query with ErrMissingGroupBy.
	AggregationStrict AggregationMode = "strict"
	// AggregationLenient counts over a single global group.
	AggregationLenient AggregationMode = "lenient"
)

// ParseAggregationMode maps a configuration value to an AggregationMode.
func ParseAggregationMode(s string) (AggregationMode, error) {
	switch mode := AggregationMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case AggregationStrict, AggregationLenient:
		return mode, nil
	case "":
		return AggregationStrict, nil
	default:
		return "", fmt.Errorf("unknown aggregation mode %q (want strict or lenient)", s)
	}
}

var (
	prefixRegex     = regexp.MustCompile(`(?i)PREFIX\s+([\w-]*):\s*<([^>]*)>`)
	selectItemRegex = regexp.MustCompile(`(?i)\(\s*COUNT\s*\(\s*(?:DISTINCT\s+)?(?:[?$](\w+)|\*)\s*\)\s+AS\s+[?$](\w+)\s*\)|[?$](\w+)`)
	groupByRegex    = regexp.MustCompile(`(?i)\bGROUP\s+BY\s+[?$](\w+)`)
	orderByRegex    = regexp.MustCompile(`(?i)\bORDER\s+BY\s+(?:(ASC|DESC)\s*\(\s*[?$](\w+)\s*\)|[?$](\w+))`)
	limitRegex      = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)`)

	unescaper = strings.NewReplacer(`\"`, `"`, `\'`, `'`, `\\`, `\`, `\n`, "\n", `\t`, "\t")
)

const (
	clauseHint  = "a query needs both keywords, e.g. SELECT ?title WHERE { ?book dc:title ?title . }"
	braceHint   = "write WHERE { ... } and check for matching braces"
	groupByHint = "add GROUP BY after the WHERE block, e.g. GROUP BY ?subject"
)

// Parser turns query text into a Plan.
type Parser struct {
	aggregation AggregationMode
}

// NewParser creates a parser with the given aggregation mode.
func NewParser(mode AggregationMode) *Parser {
	if mode == "" {
		mode = AggregationStrict
	}
	return &Parser{aggregation: mode}
}

// ParseQuery parses a query in strict aggregation mode.
func ParseQuery(text string) (*Plan, error) {
	return NewParser(AggregationStrict).Parse(text)
}

// Parse parses a SELECT query. Structural problems are reported as *Error.
func (p *Parser) Parse(text string) (*Plan, error) {
	text = norm.NFC.String(text)
	mask := codeMask(text)

	selectAt := findKeyword(text, mask, "SELECT", 0)
	if selectAt < 0 {
		return nil, newError(ErrMissingClause, "SELECT keyword not found", clauseHint)
	}
	whereAt := findKeyword(text, mask, "WHERE", selectAt+len("SELECT"))
	if whereAt < 0 {
		return nil, newError(ErrMissingClause, "WHERE keyword not found after SELECT", clauseHint)
	}

	plan := &Plan{
		Limit:    -1,
		Prefixes: parsePrefixes(text[:selectAt]),
		Select:   parseSelectItems(text[selectAt+len("SELECT") : whereAt]),
	}
	if len(plan.Select) == 0 {
		return nil, newError(ErrNoVariables, "SELECT clause has no variables",
			"variables start with ?, e.g. SELECT ?title ?author")
	}

	open := nextCode(text, mask, whereAt+len("WHERE"))
	if open < 0 || text[open] != '{' {
		return nil, newError(ErrMalformedWhere, "WHERE block not found", braceHint)
	}
	end := matchClose(text, mask, open)
	if end < 0 {
		return nil, newError(ErrMalformedWhere, "WHERE block is not closed", braceHint)
	}

	body, optional, ignored, err := cutOptional(text[open+1 : end])
	if err != nil {
		return nil, err
	}
	plan.IgnoredOptionals = ignored

	body, plan.Filters, err = cutFilters(body)
	if err != nil {
		return nil, err
	}
	plan.Where = parsePatterns(body)

	if optional != "" {
		optional, plan.OptionalFilters, err = cutFilters(optional)
		if err != nil {
			return nil, err
		}
		plan.Optional = parsePatterns(optional)
	}

	parseModifiers(plan, text[end+1:])

	if plan.HasAggregates() && plan.GroupBy == "" && p.aggregation != AggregationLenient {
		return nil, newError(ErrMissingGroupBy, "COUNT requires GROUP BY", groupByHint)
	}

	return plan, nil
}

func parsePrefixes(prologue string) map[string]string {
	prefixes := make(map[string]string)
	for _, m := range prefixRegex.FindAllStringSubmatch(prologue, -1) {
		prefixes[m[1]] = m[2]
	}
	return prefixes
}

func parseSelectItems(clause string) []SelectItem {
	var items []SelectItem
	for _, m := range selectItemRegex.FindAllStringSubmatch(clause, -1) {
		if m[2] != "" {
			items = append(items, SelectItem{Kind: SelectCount, Source: m[1], Alias: m[2]})
			continue
		}
		items = append(items, SelectItem{Kind: SelectVariable, Variable: m[3]})
	}
	return items
}

// cutOptional removes every OPTIONAL block from body. The first block's
// content is returned; the rest are counted as ignored.
func cutOptional(body string) (rest, optional string, ignored int, err error) {
	found := false
	for {
		mask := codeMask(body)
		at := findKeyword(body, mask, "OPTIONAL", 0)
		if at < 0 {
			break
		}

		open := nextCode(body, mask, at+len("OPTIONAL"))
		if open < 0 || body[open] != '{' {
			return "", "", 0, newError(ErrMalformedWhere, "OPTIONAL must be followed by { ... }", braceHint)
		}
		end := matchClose(body, mask, open)
		if end < 0 {
			return "", "", 0, newError(ErrMalformedWhere, "OPTIONAL block is not closed", braceHint)
		}

		if found {
			ignored++
		} else {
			optional = body[open+1 : end]
			found = true
		}
		body = cutSpan(body, at, end+1)
	}

	if found {
		// OPTIONAL blocks nested inside the first one are not evaluated either.
		inner, nested, deeper, err := cutOptional(optional)
		if err != nil {
			return "", "", 0, err
		}
		optional = inner
		if nested != "" {
			ignored++
		}
		ignored += deeper
	}

	return body, optional, ignored, nil
}

// cutFilters removes every FILTER(...) from body and returns the
// expressions in order of appearance.
func cutFilters(body string) (string, []string, error) {
	var filters []string
	for {
		mask := codeMask(body)
		at := findKeyword(body, mask, "FILTER", 0)
		if at < 0 {
			return body, filters, nil
		}

		open := nextCode(body, mask, at+len("FILTER"))
		if open < 0 || body[open] != '(' {
			return "", nil, newError(ErrMalformedWhere, "FILTER must be followed by ( ... )",
				`e.g. FILTER(?year >= "2010")`)
		}
		end := matchClose(body, mask, open)
		if end < 0 {
			return "", nil, newError(ErrMalformedWhere, "FILTER expression has unbalanced parentheses",
				"check that every ( has a matching )")
		}

		filters = append(filters, strings.TrimSpace(body[open+1 : end]))
		body = cutSpan(body, at, end+1)
	}
}

// parsePatterns splits a block body into triple patterns. Statements end
// with '.', and ';' repeats the previous subject.
func parsePatterns(body string) []TriplePattern {
	var patterns []TriplePattern

	for _, statement := range splitOutside(body, '.') {
		var subject Term
		haveSubject := false

		for i, part := range splitOutside(statement, ';') {
			tokens := tokenize(part)

			if i > 0 && haveSubject {
				if len(tokens) < 2 {
					continue
				}
				patterns = append(patterns, NewPattern(subject,
					parsePredicate(tokens[0]), parseTerm(strings.Join(tokens[1:], " "))))
				continue
			}

			if len(tokens) < 3 {
				continue
			}
			subject = parseTerm(tokens[0])
			haveSubject = true
			patterns = append(patterns, NewPattern(subject,
				parsePredicate(tokens[1]), parseTerm(strings.Join(tokens[2:], " "))))
		}
	}

	return patterns
}

func parsePredicate(token string) Term {
	if token == "a" {
		return Constant("type")
	}
	return parseTerm(token)
}

// parseTerm normalizes one pattern token. Quotes are stripped from
// literals, IRIs and prefixed names are reduced to their local name.
func parseTerm(token string) Term {
	if token == "" {
		return Constant("")
	}

	switch token[0] {
	case '?', '$':
		return Variable(token[1:])
	case '"', '\'':
		return Constant(unquote(token))
	case '<':
		if end := strings.IndexByte(token, '>'); end > 0 {
			return Constant(store.LocalName(token[1:end]))
		}
	}

	if _, local, ok := strings.Cut(token, ":"); ok {
		return Constant(local)
	}
	return Constant(token)
}

// unquote returns the text of a quoted literal token, dropping any language
// tag or datatype suffix.
func unquote(token string) string {
	end := closingQuote(token, 0)
	inner := token[1:]
	if end > 0 && token[end] == token[0] {
		inner = token[1:end]
	}
	return unescaper.Replace(inner)
}

func parseModifiers(plan *Plan, tail string) {
	if m := groupByRegex.FindStringSubmatch(tail); m != nil {
		plan.GroupBy = m[1]
	}

	if m := orderByRegex.FindStringSubmatch(tail); m != nil {
		if m[2] != "" {
			plan.OrderBy = &OrderBy{Variable: m[2], Descending: strings.EqualFold(m[1], "DESC")}
		} else {
			plan.OrderBy = &OrderBy{Variable: m[3]}
		}
	}

	if m := limitRegex.FindStringSubmatch(tail); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			plan.Limit = n
		}
	}
}
