package query

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/coolbeans/sparqlab/pkg/catalog"
	"github.com/coolbeans/sparqlab/pkg/store"
)

func column(rows []Binding, name string) []string {
	values := make([]string, len(rows))
	for i, row := range rows {
		values[i] = row[name]
	}
	return values
}

func execute(t *testing.T, e *Executor, q string) *Result {
	t.Helper()
	result, err := e.Execute(context.Background(), q)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	return result
}

func TestNewExecutor(t *testing.T) {
	ts := store.NewTripleStore()
	executor := NewExecutor(ts)

	if executor == nil {
		t.Fatal("NewExecutor() returned nil")
	}
	if executor.source != ts {
		t.Error("Executor source not set correctly")
	}
	if executor.parser == nil {
		t.Error("Executor parser not initialized")
	}
	if executor.optional != OptionalFirst {
		t.Errorf("default optional policy = %q, want first", executor.optional)
	}
	if executor.logger == nil {
		t.Error("Executor logger not initialized")
	}
}

func TestExecute_AllTitles(t *testing.T) {
	e := NewExecutor(catalog.Store())

	result := execute(t, e, `SELECT ?title WHERE { ?book dc:title ?title . }`)

	if !reflect.DeepEqual(result.Columns, []string{"title"}) {
		t.Errorf("Columns = %v", result.Columns)
	}
	books := catalog.Books()
	if result.Count() != len(books) {
		t.Fatalf("Count() = %d, want %d", result.Count(), len(books))
	}
	for i, b := range books {
		if result.Rows[i]["title"] != b.Title {
			t.Errorf("row %d title = %q, want %q", i, result.Rows[i]["title"], b.Title)
		}
	}
	if result.ID.String() == "" {
		t.Error("result has no ID")
	}
}

func TestExecute_EBooks(t *testing.T) {
	e := NewExecutor(catalog.Store())

	result := execute(t, e, `SELECT ?title WHERE { ?book dc:title ?title . ?book :resourceType :EBook . }`)

	want := []string{
		"해리포터와 비밀의 방", "클린 코드", "채식주의자", "시맨틱 웹 입문", "RDF와 SPARQL",
		"메타데이터의 이해", "총, 균, 쇠", "호모 데우스", "파이썬으로 배우는 머신러닝", "딥러닝의 정석",
	}
	if got := column(result.Rows, "title"); !reflect.DeepEqual(got, want) {
		t.Errorf("titles = %v, want %v", got, want)
	}
}

func TestExecute_ContainsFilter(t *testing.T) {
	e := NewExecutor(catalog.Store())

	result := execute(t, e, `
PREFIX dc: <http://purl.org/dc/elements/1.1/>
SELECT ?title ?subject
WHERE {
  ?book dc:title ?title .
  ?book dc:subject ?subject .
  FILTER(CONTAINS(LCASE(?subject), "프로그래밍"))
}`)

	want := []string{"클린 코드", "리팩토링", "파이썬으로 배우는 머신러닝"}
	if got := column(result.Rows, "title"); !reflect.DeepEqual(got, want) {
		t.Errorf("titles = %v, want %v", got, want)
	}
	for _, row := range result.Rows {
		if !strings.Contains(row["subject"], "프로그래밍") {
			t.Errorf("row %v does not satisfy the filter", row)
		}
	}
}

func TestExecute_SubjectCounts(t *testing.T) {
	e := NewExecutor(catalog.Store())

	result := execute(t, e, `SELECT ?subject (COUNT(?book) AS ?count) WHERE { ?book dc:subject ?subject . } GROUP BY ?subject ORDER BY DESC(?count)`)

	if !reflect.DeepEqual(result.Columns, []string{"subject", "count"}) {
		t.Errorf("Columns = %v", result.Columns)
	}

	head := []Binding{
		{"subject": "소설", "count": "4"},
		{"subject": "프로그래밍", "count": "3"},
		{"subject": "판타지", "count": "2"},
		{"subject": "소프트웨어 공학", "count": "2"},
	}
	if result.Count() < len(head) {
		t.Fatalf("Count() = %d", result.Count())
	}
	if !reflect.DeepEqual(result.Rows[:len(head)], head) {
		t.Errorf("first rows = %v, want %v", result.Rows[:len(head)], head)
	}

	seen := make(map[string]bool)
	total := 0
	for i, row := range result.Rows {
		if seen[row["subject"]] {
			t.Errorf("subject %q appears twice", row["subject"])
		}
		seen[row["subject"]] = true
		total += atoi(t, row["count"])
		if i > 0 && atoi(t, result.Rows[i-1]["count"]) < atoi(t, row["count"]) {
			t.Errorf("row %d out of order: %v after %v", i, row, result.Rows[i-1])
		}
	}
	if total != 41 {
		t.Errorf("sum of counts = %d, want 41", total)
	}
}

func TestExecute_OptionalISBN(t *testing.T) {
	e := NewExecutor(catalog.Store())

	result := execute(t, e, `SELECT ?title ?isbn WHERE { ?book dc:title ?title . OPTIONAL { ?book :isbn ?isbn . } }`)

	if result.Count() != 20 {
		t.Fatalf("Count() = %d, want 20", result.Count())
	}
	for i, row := range result.Rows {
		isbn, ok := row["isbn"]
		if i == 0 {
			if row["title"] != "해리포터와 마법사의 돌" || isbn != "978-89-8392-476-1" {
				t.Errorf("row 0 = %v", row)
			}
			continue
		}
		if ok {
			t.Errorf("row %d (%s) has isbn %q", i, row["title"], isbn)
		}
	}
}

// With the first-match policy an OPTIONAL block never changes the row count.
func TestExecute_OptionalPreservesCardinality(t *testing.T) {
	e := NewExecutor(catalog.Store())

	base := execute(t, e, `SELECT ?title WHERE { ?book dc:title ?title . }`)
	withOptional := execute(t, e, `SELECT ?title ?subject WHERE { ?book dc:title ?title . OPTIONAL { ?book dc:subject ?subject } }`)

	if base.Count() != withOptional.Count() {
		t.Errorf("OPTIONAL changed row count: %d -> %d", base.Count(), withOptional.Count())
	}
	if withOptional.Rows[0]["subject"] != "판타지" {
		t.Errorf("first subject = %q, want 판타지", withOptional.Rows[0]["subject"])
	}
}

func TestExecute_OptionalExpand(t *testing.T) {
	e := NewExecutor(catalog.Store(), WithOptionalPolicy(OptionalExpand))

	result := execute(t, e, `SELECT ?title ?subject WHERE { ?book dc:title ?title . OPTIONAL { ?book dc:subject ?subject } }`)
	if result.Count() != 41 {
		t.Errorf("Count() = %d, want 41", result.Count())
	}
}

func TestExecute_KoreanAuthors(t *testing.T) {
	e := NewExecutor(catalog.Store())

	result := execute(t, e, `SELECT ?name WHERE { ?author :nationality "한국" . ?author rdfs:label ?name . }`)

	want := []string{"한강", "김승연", "이명희", "박해선", "최윤수"}
	if got := column(result.Rows, "name"); !reflect.DeepEqual(got, want) {
		t.Errorf("names = %v, want %v", got, want)
	}
}

func TestExecute_RecentBooks(t *testing.T) {
	e := NewExecutor(catalog.Store())

	result := execute(t, e, `SELECT ?title ?year WHERE { ?book dc:title ?title . ?book dcterms:issued ?year . FILTER(?year >= "2015") } ORDER BY DESC(?year) LIMIT 3`)

	want := []string{"2020", "2019", "2018"}
	if got := column(result.Rows, "year"); !reflect.DeepEqual(got, want) {
		t.Errorf("years = %v, want %v", got, want)
	}
}

func TestExecute_BooksByAuthorName(t *testing.T) {
	e := NewExecutor(catalog.Store())

	result := execute(t, e, `SELECT ?title WHERE { ?book dc:creator ?author . ?author rdfs:label "J.K. 롤링" . ?book dc:title ?title . }`)

	want := []string{"해리포터와 마법사의 돌", "해리포터와 비밀의 방"}
	if got := column(result.Rows, "title"); !reflect.DeepEqual(got, want) {
		t.Errorf("titles = %v, want %v", got, want)
	}
}

func TestExecute_EmptyResultIsNotAnError(t *testing.T) {
	e := NewExecutor(catalog.Store())

	result := execute(t, e, `SELECT ?title WHERE { ?book dc:title ?title . ?book :publisher ?p . }`)
	if result.Count() != 0 {
		t.Errorf("Count() = %d, want 0", result.Count())
	}
	if !reflect.DeepEqual(result.Columns, []string{"title"}) {
		t.Errorf("Columns = %v", result.Columns)
	}
}

func TestExecute_ParseErrors(t *testing.T) {
	e := NewExecutor(catalog.Store())

	tests := []struct {
		query string
		kind  ErrorKind
	}{
		{`?book dc:title ?title`, ErrMissingClause},
		{`SELECT WHERE { ?book dc:title ?title }`, ErrNoVariables},
		{`SELECT ?title WHERE ?book dc:title ?title`, ErrMalformedWhere},
		{`SELECT (COUNT(?book) AS ?n) WHERE { ?book a :Book }`, ErrMissingGroupBy},
	}

	for _, tt := range tests {
		result, err := e.Execute(context.Background(), tt.query)
		if err == nil {
			t.Errorf("Execute(%q) expected error, got %d rows", tt.query, result.Count())
			continue
		}
		if !IsKind(err, tt.kind) {
			t.Errorf("Execute(%q) error = %v, want kind %s", tt.query, err, tt.kind)
		}
	}
}

func TestExecute_LenientAggregation(t *testing.T) {
	e := NewExecutor(catalog.Store(), WithAggregation(AggregationLenient))

	result := execute(t, e, `SELECT (COUNT(?book) AS ?n) WHERE { ?book a :Book }`)
	if result.Count() != 1 || result.Rows[0]["n"] != "20" {
		t.Errorf("Rows = %v, want n=20", result.Rows)
	}

	empty := execute(t, e, `SELECT (COUNT(?book) AS ?n) WHERE { ?book a :Magazine }`)
	if empty.Count() != 1 || empty.Rows[0]["n"] != "0" {
		t.Errorf("Rows = %v, want n=0", empty.Rows)
	}
}

func TestExecute_CancelledContext(t *testing.T) {
	e := NewExecutor(catalog.Store())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Execute(ctx, `SELECT ?title WHERE { ?book dc:title ?title . }`)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
}

func TestExecute_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := NewExecutor(catalog.Store(), WithLogger(logger))

	result := execute(t, e, `SELECT ?t WHERE { ?b dc:title ?t . OPTIONAL { ?b :isbn ?i } OPTIONAL { ?b :issued ?y } FILTER(BOUND(?i)) }`)

	out := buf.String()
	for _, want := range []string{
		"query executed",
		"query_id=" + result.ID.String(),
		"only the first OPTIONAL block is evaluated",
		"filters not understood",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
	if result.Count() != 20 {
		t.Errorf("unsupported filter should keep all rows, got %d", result.Count())
	}
}

func TestExecute_Deterministic(t *testing.T) {
	e := NewExecutor(catalog.Store())
	q := `SELECT ?subject (COUNT(?book) AS ?count) WHERE { ?book dc:subject ?subject . } GROUP BY ?subject ORDER BY DESC(?count)`

	first := execute(t, e, q)
	second := execute(t, e, q)
	if !reflect.DeepEqual(first.Rows, second.Rows) {
		t.Error("repeated execution returned different rows")
	}
	if first.ID == second.ID {
		t.Error("results share an ID")
	}
}

func TestRun_PlanFromParser(t *testing.T) {
	plan, err := ParseQuery(`SELECT ?title WHERE { ?book dc:title ?title } LIMIT 2`)
	if err != nil {
		t.Fatalf("ParseQuery() error = %v", err)
	}

	result, err := NewExecutor(catalog.Store()).Run(context.Background(), plan)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Count() != 2 {
		t.Errorf("Count() = %d, want 2", result.Count())
	}
}

func TestExecute_EmptyContainsDropsUnboundOptional(t *testing.T) {
	e := NewExecutor(catalog.Store())

	result := execute(t, e, `
SELECT ?title ?isbn
WHERE {
  ?book a :Book .
  ?book dc:title ?title .
  OPTIONAL { ?book :isbn ?isbn . }
  FILTER(CONTAINS(LCASE(?isbn), ""))
}`)

	if got := column(result.Rows, "title"); !reflect.DeepEqual(got, []string{"해리포터와 마법사의 돌"}) {
		t.Errorf("titles = %v, want only the book with an ISBN", got)
	}
}

func atoi(t *testing.T, s string) int {
	t.Helper()
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			t.Fatalf("%q is not a count", s)
		}
		n = n*10 + int(c-'0')
	}
	return n
}
