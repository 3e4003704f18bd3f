package store

import (
	"encoding/json"
	"io"
)

// JSONLDContext represents a JSON-LD @context document.
type JSONLDContext map[string]interface{}

// JSONLDDocument represents a complete JSON-LD document.
type JSONLDDocument struct {
	Context JSONLDContext            `json:"@context,omitempty"`
	Graph   []map[string]interface{} `json:"@graph"`
}

// BuildContext creates the @context for vocab. The base namespace serves as
// both @base and @vocab so subjects and base predicates stay unprefixed.
func (v Vocabulary) BuildContext() JSONLDContext {
	context := make(JSONLDContext)
	if v.Base != "" {
		context["@base"] = v.Base
		context["@vocab"] = v.Base
	}
	for namespace, prefix := range v.Prefixes {
		if prefix != "" {
			context[prefix] = namespace
		}
	}
	return context
}

// compactPredicate returns the JSON-LD property name for a predicate.
func (v Vocabulary) compactPredicate(local string) string {
	if local == "type" && v.Predicates[local] == rdfNamespace {
		return "@type"
	}
	ns, ok := v.Predicates[local]
	if !ok || ns == v.Base {
		return local
	}
	if prefix := v.Prefixes[ns]; prefix != "" {
		return prefix + ":" + local
	}
	return ns + local
}

const rdfNamespace = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"

// BuildJSONLD groups the triples of ts into one node per subject, in the
// order subjects first appear.
func BuildJSONLD(ts *TripleStore, vocab Vocabulary) *JSONLDDocument {
	doc := &JSONLDDocument{
		Context: vocab.BuildContext(),
		Graph:   make([]map[string]interface{}, 0),
	}

	for _, subject := range ts.Subjects() {
		node := map[string]interface{}{"@id": subject}
		values := make(map[string][]interface{})
		var order []string

		for _, triple := range ts.Find(subject, "", "") {
			key := vocab.compactPredicate(triple.Predicate)
			if _, seen := values[key]; !seen {
				order = append(order, key)
			}
			values[key] = append(values[key], jsonldValue(key, triple.Object, ts, vocab))
		}

		for _, key := range order {
			if len(values[key]) == 1 {
				node[key] = values[key][0]
			} else {
				node[key] = values[key]
			}
		}
		doc.Graph = append(doc.Graph, node)
	}
	return doc
}

// jsonldValue renders an object as a node reference or a plain literal.
// @type values are bare IRIs by definition.
func jsonldValue(key, object string, ts *TripleStore, vocab Vocabulary) interface{} {
	if key == "@type" {
		return object
	}
	if vocab.Resources[object] || ts.HasSubject(object) {
		return map[string]string{"@id": object}
	}
	return object
}

func encodeJSONLD(w io.Writer, ts *TripleStore, vocab Vocabulary) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(BuildJSONLD(ts, vocab))
}
