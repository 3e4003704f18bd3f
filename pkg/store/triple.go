package store

import "fmt"

// Triple is one catalog fact. Subjects and IRI objects are local names
// ("book3", "EBook"); literal objects keep their lexical value.
type Triple struct {
	Subject   string
	Predicate string
	Object    string
}

// NewTriple creates a new triple with the given components.
func NewTriple(subject, predicate, object string) Triple {
	return Triple{Subject: subject, Predicate: predicate, Object: object}
}

func (t Triple) String() string {
	return fmt.Sprintf("(%s %s %q)", t.Subject, t.Predicate, t.Object)
}

// IsValid reports whether every component is set.
func (t Triple) IsValid() bool {
	return t.Subject != "" && t.Predicate != "" && t.Object != ""
}

// matches reports whether t agrees with every non-empty term.
func (t Triple) matches(subject, predicate, object string) bool {
	return (subject == "" || subject == t.Subject) &&
		(predicate == "" || predicate == t.Predicate) &&
		(object == "" || object == t.Object)
}
