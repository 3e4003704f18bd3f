package query

import (
	"reflect"
	"testing"

	"github.com/coolbeans/sparqlab/pkg/store"
)

func setupTestStore() *store.TripleStore {
	ts := store.NewTripleStore()

	ts.Add("book1", "type", "Book")
	ts.Add("book1", "title", "Harry Potter")
	ts.Add("book1", "creator", "author1")
	ts.Add("book1", "subject", "fantasy")
	ts.Add("book1", "subject", "novel")
	ts.Add("book1", "isbn", "978-1")

	ts.Add("book2", "type", "Book")
	ts.Add("book2", "title", "Clean Code")
	ts.Add("book2", "creator", "author2")
	ts.Add("book2", "subject", "programming")

	ts.Add("book3", "type", "Book")
	ts.Add("book3", "title", "Refactoring")
	ts.Add("book3", "creator", "author2")
	ts.Add("book3", "subject", "programming")

	ts.Add("author1", "type", "Author")
	ts.Add("author1", "label", "Rowling")
	ts.Add("author2", "type", "Author")
	ts.Add("author2", "label", "Martin")

	ts.Add("loop", "self", "loop")

	ts.Seal()
	return ts
}

func TestMatch_SinglePattern(t *testing.T) {
	ts := setupTestStore()

	rows := Match(ts, []TriplePattern{
		NewPattern(Variable("book"), Constant("title"), Variable("title")),
	}, nil)

	want := []Binding{
		{"book": "book1", "title": "Harry Potter"},
		{"book": "book2", "title": "Clean Code"},
		{"book": "book3", "title": "Refactoring"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("Match() = %v, want %v", rows, want)
	}
}

func TestMatch_Join(t *testing.T) {
	ts := setupTestStore()

	rows := Match(ts, []TriplePattern{
		NewPattern(Variable("book"), Constant("creator"), Variable("author")),
		NewPattern(Variable("author"), Constant("label"), Constant("Martin")),
		NewPattern(Variable("book"), Constant("title"), Variable("title")),
	}, nil)

	if len(rows) != 2 {
		t.Fatalf("Match() = %d rows, want 2", len(rows))
	}
	if rows[0]["title"] != "Clean Code" || rows[1]["title"] != "Refactoring" {
		t.Errorf("titles = [%s %s], want dataset order", rows[0]["title"], rows[1]["title"])
	}
}

func TestMatch_MultiValuedFieldYieldsRowPerValue(t *testing.T) {
	ts := setupTestStore()

	rows := Match(ts, []TriplePattern{
		NewPattern(Constant("book1"), Constant("subject"), Variable("subject")),
	}, nil)

	if len(rows) != 2 {
		t.Fatalf("Match() = %d rows, want 2", len(rows))
	}
	if rows[0]["subject"] != "fantasy" || rows[1]["subject"] != "novel" {
		t.Errorf("subjects = %v", rows)
	}
}

func TestMatch_NoMatchIsEmpty(t *testing.T) {
	ts := setupTestStore()

	rows := Match(ts, []TriplePattern{
		NewPattern(Variable("book"), Constant("title"), Variable("title")),
		NewPattern(Variable("book"), Constant("publisher"), Variable("p")),
	}, nil)

	if len(rows) != 0 {
		t.Errorf("Match() = %v, want no rows", rows)
	}
}

func TestMatch_EmptyConstantMatchesNothing(t *testing.T) {
	ts := setupTestStore()

	rows := Match(ts, []TriplePattern{
		NewPattern(Variable("s"), Constant(""), Variable("o")),
	}, nil)

	if len(rows) != 0 {
		t.Errorf("Match() = %d rows, want 0", len(rows))
	}
}

func TestMatch_RepeatedVariableInPattern(t *testing.T) {
	ts := setupTestStore()

	rows := Match(ts, []TriplePattern{
		NewPattern(Variable("x"), Variable("p"), Variable("x")),
	}, nil)

	want := []Binding{{"x": "loop", "p": "self"}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("Match() = %v, want %v", rows, want)
	}
}

func TestMatch_ZeroPatternsReturnsSeed(t *testing.T) {
	ts := setupTestStore()

	rows := Match(ts, nil, Binding{"a": "b"})
	if len(rows) != 1 || rows[0]["a"] != "b" {
		t.Errorf("Match() = %v, want the seed", rows)
	}
}

func TestMatch_SeedIsNotMutated(t *testing.T) {
	ts := setupTestStore()
	seed := Binding{"book": "book1"}

	rows := Match(ts, []TriplePattern{
		NewPattern(Variable("book"), Constant("subject"), Variable("subject")),
	}, seed)

	if len(rows) != 2 {
		t.Fatalf("Match() = %d rows, want 2", len(rows))
	}
	if len(seed) != 1 {
		t.Errorf("seed was modified: %v", seed)
	}
	rows[0]["subject"] = "changed"
	if rows[1]["subject"] != "novel" {
		t.Error("rows share a map")
	}
}

// Every returned row must satisfy every pattern once its variables are
// substituted.
func TestMatch_RowsSatisfyPatterns(t *testing.T) {
	ts := setupTestStore()
	patterns := []TriplePattern{
		NewPattern(Variable("book"), Constant("type"), Constant("Book")),
		NewPattern(Variable("book"), Constant("subject"), Variable("subject")),
		NewPattern(Variable("book"), Constant("creator"), Variable("author")),
		NewPattern(Variable("author"), Constant("label"), Variable("name")),
	}

	rows := Match(ts, patterns, nil)
	if len(rows) != 4 {
		t.Fatalf("Match() = %d rows, want 4", len(rows))
	}

	for _, row := range rows {
		for _, p := range patterns {
			s, pr, o := resolve(p.Subject, row), resolve(p.Predicate, row), resolve(p.Object, row)
			if len(ts.Find(s, pr, o)) == 0 {
				t.Errorf("row %v does not satisfy %v", row, p)
			}
		}
	}
}

func TestMergeOptional_First(t *testing.T) {
	ts := setupTestStore()
	rows := Match(ts, []TriplePattern{
		NewPattern(Variable("book"), Constant("title"), Variable("title")),
	}, nil)

	merged := MergeOptional(ts, rows, []TriplePattern{
		NewPattern(Variable("book"), Constant("subject"), Variable("subject")),
	}, nil, OptionalFirst)

	if len(merged) != len(rows) {
		t.Fatalf("MergeOptional() = %d rows, want %d", len(merged), len(rows))
	}
	if merged[0]["subject"] != "fantasy" {
		t.Errorf("first optional match = %q, want fantasy", merged[0]["subject"])
	}
}

func TestMergeOptional_PreservesRowsWithoutMatch(t *testing.T) {
	ts := setupTestStore()
	rows := Match(ts, []TriplePattern{
		NewPattern(Variable("book"), Constant("title"), Variable("title")),
	}, nil)

	merged := MergeOptional(ts, rows, []TriplePattern{
		NewPattern(Variable("book"), Constant("isbn"), Variable("isbn")),
	}, nil, OptionalFirst)

	if len(merged) != 3 {
		t.Fatalf("MergeOptional() = %d rows, want 3", len(merged))
	}
	if merged[0]["isbn"] != "978-1" {
		t.Errorf("book1 isbn = %q", merged[0]["isbn"])
	}
	for _, row := range merged[1:] {
		if _, ok := row["isbn"]; ok {
			t.Errorf("row %v should not bind isbn", row)
		}
	}
	for i := range rows {
		for k, v := range rows[i] {
			if merged[i][k] != v {
				t.Errorf("row %d: %s changed from %q to %q", i, k, v, merged[i][k])
			}
		}
	}
}

func TestMergeOptional_Expand(t *testing.T) {
	ts := setupTestStore()
	rows := Match(ts, []TriplePattern{
		NewPattern(Variable("book"), Constant("title"), Variable("title")),
	}, nil)

	merged := MergeOptional(ts, rows, []TriplePattern{
		NewPattern(Variable("book"), Constant("subject"), Variable("subject")),
	}, nil, OptionalExpand)

	if len(merged) != 4 {
		t.Fatalf("MergeOptional(expand) = %d rows, want 4", len(merged))
	}
	if merged[0]["subject"] != "fantasy" || merged[1]["subject"] != "novel" {
		t.Errorf("expanded rows = %v", merged[:2])
	}
}

func TestMergeOptional_FiltersInsideBlock(t *testing.T) {
	ts := setupTestStore()
	rows := Match(ts, []TriplePattern{
		NewPattern(Constant("book1"), Constant("title"), Variable("title")),
	}, nil)

	merged := MergeOptional(ts, rows, []TriplePattern{
		NewPattern(Constant("book1"), Constant("subject"), Variable("subject")),
	}, CompileFilters([]string{`?subject != "fantasy"`}), OptionalFirst)

	if len(merged) != 1 || merged[0]["subject"] != "novel" {
		t.Errorf("MergeOptional() = %v, want subject novel", merged)
	}
}

func TestMergeOptional_NoPatterns(t *testing.T) {
	rows := []Binding{{"a": "1"}}
	if got := MergeOptional(nil, rows, nil, nil, OptionalFirst); !reflect.DeepEqual(got, rows) {
		t.Errorf("MergeOptional() = %v, want input rows", got)
	}
}

func TestParseOptionalPolicy(t *testing.T) {
	for input, want := range map[string]OptionalPolicy{
		"":       OptionalFirst,
		"first":  OptionalFirst,
		"EXPAND": OptionalExpand,
	} {
		got, err := ParseOptionalPolicy(input)
		if err != nil || got != want {
			t.Errorf("ParseOptionalPolicy(%q) = %q, %v; want %q", input, got, err, want)
		}
	}
	if _, err := ParseOptionalPolicy("all"); err == nil {
		t.Error("ParseOptionalPolicy(all) expected error")
	}
}
