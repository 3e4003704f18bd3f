package store

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/knakk/rdf"
	"github.com/spf13/afero"
)

// Format names an RDF serialization supported for import and export.
type Format string

const (
	FormatTurtle   Format = "turtle"
	FormatNTriples Format = "ntriples"
	FormatJSONLD   Format = "jsonld" // export only
)

// ParseFormat maps a user-facing name to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "turtle", "ttl":
		return FormatTurtle, nil
	case "ntriples", "nt", "n-triples":
		return FormatNTriples, nil
	case "jsonld", "json-ld":
		return FormatJSONLD, nil
	default:
		return "", fmt.Errorf("unsupported RDF format: %q", name)
	}
}

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ttl", ".turtle":
		return FormatTurtle, nil
	case ".nt":
		return FormatNTriples, nil
	default:
		return "", fmt.Errorf("cannot infer RDF format from %q", path)
	}
}

func (f Format) rdfFormat() rdf.Format {
	if f == FormatNTriples {
		return rdf.NTriples
	}
	return rdf.Turtle
}

// LocalName reduces an IRI to the text after its last '#' or '/'.
func LocalName(iri string) string {
	if idx := strings.LastIndexAny(iri, "#/"); idx >= 0 && idx < len(iri)-1 {
		return iri[idx+1:]
	}
	return iri
}

// Decode reads RDF from r into ts. IRIs are stored by their local name and
// literals by their lexical value. It returns the number of triples added to
// ts; statements already present are skipped and not counted.
func Decode(r io.Reader, format Format, ts *TripleStore) (int, error) {
	if format == FormatJSONLD {
		return 0, fmt.Errorf("reading %s is not supported", format)
	}
	dec := rdf.NewTripleDecoder(r, format.rdfFormat())

	var batch []Triple
	for triple, err := dec.Decode(); err != io.EOF; triple, err = dec.Decode() {
		if err != nil {
			return 0, fmt.Errorf("decoding triple %d: %w", len(batch)+1, err)
		}
		if triple.Subj == nil || triple.Pred == nil || triple.Obj == nil {
			return 0, fmt.Errorf("decoding triple %d: incomplete statement", len(batch)+1)
		}
		batch = append(batch, Triple{
			Subject:   termValue(triple.Subj),
			Predicate: termValue(triple.Pred),
			Object:    termValue(triple.Obj),
		})
	}

	return ts.BulkAdd(batch)
}

// LoadFile reads an RDF file from fs into a new sealed store. The format is
// inferred from the file extension.
func LoadFile(fs afero.Fs, path string) (*TripleStore, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	fh, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer fh.Close()

	ts := NewTripleStore()
	if _, err := Decode(fh, format, ts); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	ts.Seal()
	return ts, nil
}

func termValue(term rdf.Term) string {
	if term.Type() == rdf.TermIRI {
		return LocalName(term.String())
	}
	return term.String()
}

// Vocabulary supplies the namespaces needed to turn local names back into
// IRIs when exporting.
type Vocabulary struct {
	// Base is the namespace for subjects and resource objects.
	Base string
	// Predicates maps a predicate local name to its namespace IRI.
	Predicates map[string]string
	// Resources lists object values that are IRIs even though they never
	// appear as a subject (classes such as "Book").
	Resources map[string]bool
	// Prefixes maps namespace IRI to prefix label for Turtle output.
	Prefixes map[string]string
}

func (v Vocabulary) predicateIRI(local string) string {
	if ns, ok := v.Predicates[local]; ok {
		return ns + local
	}
	return v.Base + local
}

// Encode writes every triple in ts to w.
func Encode(w io.Writer, format Format, ts *TripleStore, vocab Vocabulary) error {
	if format == FormatJSONLD {
		return encodeJSONLD(w, ts, vocab)
	}

	enc := rdf.NewTripleEncoder(w, format.rdfFormat())
	if format == FormatTurtle && len(vocab.Prefixes) > 0 {
		enc.Namespaces = vocab.Prefixes
	}

	for _, triple := range ts.All() {
		out, err := toRDF(triple, ts, vocab)
		if err != nil {
			return err
		}
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encoding %s: %w", triple, err)
		}
	}
	return enc.Close()
}

func toRDF(triple Triple, ts *TripleStore, vocab Vocabulary) (rdf.Triple, error) {
	subj, err := rdf.NewIRI(vocab.Base + triple.Subject)
	if err != nil {
		return rdf.Triple{}, fmt.Errorf("subject %q: %w", triple.Subject, err)
	}
	pred, err := rdf.NewIRI(vocab.predicateIRI(triple.Predicate))
	if err != nil {
		return rdf.Triple{}, fmt.Errorf("predicate %q: %w", triple.Predicate, err)
	}

	var obj rdf.Object
	if vocab.Resources[triple.Object] || ts.HasSubject(triple.Object) {
		obj, err = rdf.NewIRI(vocab.Base + triple.Object)
	} else {
		obj, err = rdf.NewLiteral(triple.Object)
	}
	if err != nil {
		return rdf.Triple{}, fmt.Errorf("object %q: %w", triple.Object, err)
	}

	return rdf.Triple{Subj: subj, Pred: pred, Obj: obj}, nil
}
