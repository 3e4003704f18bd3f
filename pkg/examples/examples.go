// Package examples provides the library of named example queries shown to
// learners, loaded from embedded YAML and optionally from a directory of
// user-supplied YAML files.
package examples

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// SourceBuiltin marks examples that ship with the binary.
const SourceBuiltin = "builtin"

// ErrNotFound is returned when no example has the requested name.
var ErrNotFound = errors.New("example not found")

//go:embed builtin.yaml
var builtinYAML []byte

var nameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Example is one named query with its lesson text.
type Example struct {
	Name        string `yaml:"name" json:"name"`               // unique slug (e.g., "subject_count")
	Title       string `yaml:"title" json:"title"`             // heading shown above the explanation
	Category    string `yaml:"category" json:"category"`       // grouping label (e.g., "filter")
	Description string `yaml:"description" json:"description"` // one-line summary
	Explanation string `yaml:"explanation" json:"explanation"` // walk-through of the query
	Query       string `yaml:"query" json:"query"`

	// Source is SourceBuiltin or the file the example was loaded from.
	Source string `yaml:"-" json:"source"`
}

// Validate checks that the example can be registered.
func (e *Example) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !nameRegex.MatchString(e.Name) {
		return fmt.Errorf("invalid name %q: use lowercase letters, digits, '_' or '-'", e.Name)
	}
	if strings.TrimSpace(e.Query) == "" {
		return fmt.Errorf("example %q has no query", e.Name)
	}
	return nil
}

// document is the layout of an examples YAML file. A file holds either a
// list under "examples" or a single example at the top level.
type document struct {
	Examples []Example `yaml:"examples"`
	Example  `yaml:",inline"`
}

// Decode parses an examples YAML document.
func Decode(data []byte) ([]Example, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	list := doc.Examples
	if len(list) == 0 && doc.Example.Name != "" {
		list = []Example{doc.Example}
	}
	for i := range list {
		if err := list[i].Validate(); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// Builtin returns the examples embedded in the binary.
func Builtin() []Example {
	list, err := Decode(builtinYAML)
	if err != nil {
		panic("examples: embedded YAML: " + err.Error())
	}
	for i := range list {
		list[i].Source = SourceBuiltin
	}
	return list
}
