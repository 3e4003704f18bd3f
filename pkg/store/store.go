package store

import (
	"errors"
	"fmt"
	"sync"
)

// ErrSealed is returned when adding to a store that has been sealed.
var ErrSealed = errors.New("triple store is sealed")

// IndexStats contains statistics about the triple store.
type IndexStats struct {
	TotalTriples     int            `json:"total_triples"`
	UniqueSubjects   int            `json:"unique_subjects"`
	UniquePredicates int            `json:"unique_predicates"`
	UniqueObjects    int            `json:"unique_objects"`
	PredicateCounts  map[string]int `json:"predicate_counts"`
	SubjectCounts    map[string]int `json:"subject_counts"`
	ObjectCounts     map[string]int `json:"object_counts"`
}

// TripleStore is an in-memory triple store that remembers insertion order.
// Three position indexes narrow lookups:
//   - subject -> positions of triples with that subject
//   - predicate -> positions of triples with that predicate
//   - object -> positions of triples with that object
//
// Position lists are ascending, so every lookup yields matches in the order
// they were added, exactly as a full scan would.
type TripleStore struct {
	mu sync.RWMutex

	triples []Triple
	seen    map[Triple]struct{}

	bySubject   map[string][]int
	byPredicate map[string][]int
	byObject    map[string][]int

	// first-appearance order of each term, for listings
	subjects   []string
	predicates []string

	sealed bool
}

// NewTripleStore creates a new empty, writable triple store.
func NewTripleStore() *TripleStore {
	return &TripleStore{
		seen:        make(map[Triple]struct{}),
		bySubject:   make(map[string][]int),
		byPredicate: make(map[string][]int),
		byObject:    make(map[string][]int),
	}
}

// Add appends a triple to the store. Adding a triple that already exists is
// a no-op.
func (ts *TripleStore) Add(subject, predicate, object string) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	return ts.addUnsafe(Triple{Subject: subject, Predicate: predicate, Object: object})
}

// AddTriple inserts a Triple struct into the store.
func (ts *TripleStore) AddTriple(triple Triple) error {
	return ts.Add(triple.Subject, triple.Predicate, triple.Object)
}

// BulkAdd inserts multiple triples under a single lock. Invalid triples are
// skipped; the number of triples actually added is returned.
func (ts *TripleStore) BulkAdd(triples []Triple) (int, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.sealed {
		return 0, ErrSealed
	}

	before := len(ts.triples)
	for _, triple := range triples {
		if !triple.IsValid() {
			continue
		}
		if err := ts.addUnsafe(triple); err != nil {
			return len(ts.triples) - before, err
		}
	}
	return len(ts.triples) - before, nil
}

// Seal freezes the store. Later writes fail with ErrSealed.
func (ts *TripleStore) Seal() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.sealed = true
}

// Sealed reports whether the store has been frozen.
func (ts *TripleStore) Sealed() bool {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.sealed
}

// Find returns the triples matching the given terms in insertion order.
// Use empty string "" for wildcards.
func (ts *TripleStore) Find(subject, predicate, object string) []Triple {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	return ts.findUnsafe(subject, predicate, object)
}

// HasSubject reports whether any triple uses value as its subject.
func (ts *TripleStore) HasSubject(value string) bool {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	_, ok := ts.bySubject[value]
	return ok
}

// Count returns the total number of triples in the store.
func (ts *TripleStore) Count() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.triples)
}

// All returns a copy of every triple in insertion order.
func (ts *TripleStore) All() []Triple {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	all := make([]Triple, len(ts.triples))
	copy(all, ts.triples)
	return all
}

// Subjects returns all unique subjects in first-appearance order.
func (ts *TripleStore) Subjects() []string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	return append([]string(nil), ts.subjects...)
}

// Predicates returns all unique predicates in first-appearance order.
func (ts *TripleStore) Predicates() []string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	return append([]string(nil), ts.predicates...)
}

// Stats returns statistics about the store.
func (ts *TripleStore) Stats() IndexStats {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	return IndexStats{
		TotalTriples:     len(ts.triples),
		UniqueSubjects:   len(ts.bySubject),
		UniquePredicates: len(ts.byPredicate),
		UniqueObjects:    len(ts.byObject),
		PredicateCounts:  countPositions(ts.byPredicate),
		SubjectCounts:    countPositions(ts.bySubject),
		ObjectCounts:     countPositions(ts.byObject),
	}
}

// String returns a string representation of the store statistics.
func (ts *TripleStore) String() string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	return fmt.Sprintf("TripleStore{triples: %d, subjects: %d, predicates: %d, objects: %d, sealed: %t}",
		len(ts.triples), len(ts.bySubject), len(ts.byPredicate), len(ts.byObject), ts.sealed)
}

func (ts *TripleStore) addUnsafe(triple Triple) error {
	if ts.sealed {
		return ErrSealed
	}
	if !triple.IsValid() {
		return fmt.Errorf("triple components cannot be empty: %s", triple)
	}
	if _, ok := ts.seen[triple]; ok {
		return nil
	}

	position := len(ts.triples)
	ts.triples = append(ts.triples, triple)
	ts.seen[triple] = struct{}{}

	if _, ok := ts.bySubject[triple.Subject]; !ok {
		ts.subjects = append(ts.subjects, triple.Subject)
	}
	if _, ok := ts.byPredicate[triple.Predicate]; !ok {
		ts.predicates = append(ts.predicates, triple.Predicate)
	}
	ts.bySubject[triple.Subject] = append(ts.bySubject[triple.Subject], position)
	ts.byPredicate[triple.Predicate] = append(ts.byPredicate[triple.Predicate], position)
	ts.byObject[triple.Object] = append(ts.byObject[triple.Object], position)

	return nil
}

// findUnsafe walks the shortest position list among the bound terms.
func (ts *TripleStore) findUnsafe(subject, predicate, object string) []Triple {
	var results []Triple

	if subject == "" && predicate == "" && object == "" {
		return append(results, ts.triples...)
	}

	var candidates []int
	first := true
	pick := func(index map[string][]int, term string) {
		if term == "" {
			return
		}
		positions := index[term]
		if first || len(positions) < len(candidates) {
			candidates = positions
			first = false
		}
	}
	pick(ts.bySubject, subject)
	pick(ts.byPredicate, predicate)
	pick(ts.byObject, object)

	for _, position := range candidates {
		triple := ts.triples[position]
		if triple.matches(subject, predicate, object) {
			results = append(results, triple)
		}
	}
	return results
}

func countPositions(index map[string][]int) map[string]int {
	counts := make(map[string]int, len(index))
	for term, positions := range index {
		counts[term] = len(positions)
	}
	return counts
}
