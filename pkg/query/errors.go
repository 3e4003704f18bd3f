package query

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a structural problem found while parsing.
type ErrorKind string

const (
	ErrMissingClause  ErrorKind = "MissingClause"
	ErrNoVariables    ErrorKind = "NoVariables"
	ErrMalformedWhere ErrorKind = "MalformedWhere"
	ErrMissingGroupBy ErrorKind = "MissingGroupBy"
)

// Error is a parse failure with a remediation hint for the learner.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var qe *Error
	return errors.As(err, &qe) && qe.Kind == kind
}

func newError(kind ErrorKind, message, details string) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}
