package query

import (
	"reflect"
	"testing"
)

func TestCodeMask(t *testing.T) {
	s := `?a "x.y" <http://e.org/a> . ?b`
	mask := codeMask(s)

	for i, c := range s {
		inside := (i >= 3 && i <= 7) || (i >= 9 && i <= 24)
		if mask[i] == inside {
			t.Errorf("mask[%d] (%q) = %v, want %v", i, c, mask[i], !inside)
		}
	}
}

func TestCodeMask_ComparisonIsNotIRI(t *testing.T) {
	for _, s := range []string{`?y <= "2000"`, `?y < "2000"`, `?y<"2000"`, `?a < ?b`} {
		mask := codeMask(s)
		for i := 0; i < len(s); i++ {
			if s[i] == '<' && !mask[i] {
				t.Errorf("codeMask(%q): '<' at %d treated as IRI", s, i)
			}
		}
	}
}

func TestFindKeyword(t *testing.T) {
	tests := []struct {
		s    string
		kw   string
		want int
	}{
		{"SELECT ?a WHERE {}", "WHERE", 10},
		{"select ?a where {}", "WHERE", 10},
		{"SELECT ?where WHERE {}", "WHERE", 14},
		{`SELECT "WHERE" ?a`, "WHERE", -1},
		{"SELECT ?a NOWHERE", "WHERE", -1},
		{"SELECT ?a WHEREVER", "WHERE", -1},
		{"dc:optional OPTIONAL {", "OPTIONAL", 12},
		{"", "SELECT", -1},
	}

	for _, tt := range tests {
		if got := findKeyword(tt.s, codeMask(tt.s), tt.kw, 0); got != tt.want {
			t.Errorf("findKeyword(%q, %q) = %d, want %d", tt.s, tt.kw, got, tt.want)
		}
	}
}

func TestMatchClose(t *testing.T) {
	tests := []struct {
		s    string
		open int
		want int
	}{
		{"{ a { b } c }", 0, 12},
		{"{ a { b } c }", 4, 8},
		{`{ "}" }`, 0, 6},
		{"{ a ", 0, -1},
		{`(LCASE(?s), ")")`, 0, 15},
	}

	for _, tt := range tests {
		if got := matchClose(tt.s, codeMask(tt.s), tt.open); got != tt.want {
			t.Errorf("matchClose(%q, %d) = %d, want %d", tt.s, tt.open, got, tt.want)
		}
	}
}

func TestSplitOutside(t *testing.T) {
	got := splitOutside(`?a :label "J.K. 롤링" . ?b <http://purl.org/x> ?c .`, '.')
	want := []string{`?a :label "J.K. 롤링" `, ` ?b <http://purl.org/x> ?c `, ``}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("splitOutside() = %q, want %q", got, want)
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"?book dc:title ?title", []string{"?book", "dc:title", "?title"}},
		{"  ?a\t:label\n\"총, 균, 쇠\"  ", []string{"?a", ":label", `"총, 균, 쇠"`}},
		{`?a <http://e.org/p> "x"@ko`, []string{"?a", "<http://e.org/p>", `"x"@ko`}},
		{"", nil},
	}

	for _, tt := range tests {
		if got := tokenize(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("tokenize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestIncomplete(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"SELECT ?t WHERE {", true},
		{"SELECT ?t WHERE { ?b dc:title ?t .", true},
		{"SELECT ?t WHERE { ?b dc:title ?t . }", false},
		{`SELECT ?t WHERE { ?b dc:title "}" `, true},
		{`SELECT ?t WHERE { ?b dc:title "open`, true},
		{`SELECT ?t WHERE { FILTER(CONTAINS(LCASE(?s), "x")`, true},
		{"SELECT ?t", false},
		{"", false},
		{`"`, true},
	}

	for _, tt := range tests {
		if got := Incomplete(tt.text); got != tt.want {
			t.Errorf("Incomplete(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
