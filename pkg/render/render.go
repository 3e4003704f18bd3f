// Package render writes query results and query errors for people and
// programs: aligned text tables, JSON, CSV and HTML tables.
package render

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/coolbeans/sparqlab/pkg/query"
)

// Format is an output format name.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatHTML  Format = "html"
)

// Missing is printed in place of an unbound value.
const Missing = "-"

// Formats lists the supported formats.
var Formats = []Format{FormatTable, FormatJSON, FormatCSV, FormatHTML}

// ParseFormat maps a user-supplied name to a Format. The empty string
// selects the table format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatCSV, FormatHTML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Write renders result in the given format.
func Write(w io.Writer, result *query.Result, format Format) error {
	switch format {
	case FormatTable, "":
		return Table(w, result)
	case FormatJSON:
		return JSON(w, result)
	case FormatCSV:
		return CSV(w, result)
	case FormatHTML:
		return HTML(w, result)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// cells returns the row values in column order with Missing for unbound
// columns.
func cells(row query.Binding, columns []string) []string {
	out := make([]string, len(columns))
	for i, col := range columns {
		if value, ok := row[col]; ok {
			out[i] = value
		} else {
			out[i] = Missing
		}
	}
	return out
}

func rowCount(n int) string {
	if n == 1 {
		return "1 row"
	}
	return fmt.Sprintf("%d rows", n)
}

type jsonResult struct {
	ID      string          `json:"id"`
	Columns []string        `json:"columns"`
	Rows    []query.Binding `json:"rows"`
	Count   int             `json:"count"`
}

// JSON writes the result as an indented JSON object with id, columns, rows
// and count. Unbound values are omitted from their row object.
func JSON(w io.Writer, result *query.Result) error {
	out := jsonResult{
		ID:      result.ID.String(),
		Columns: result.Columns,
		Rows:    result.Rows,
		Count:   result.Count(),
	}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	if out.Rows == nil {
		out.Rows = []query.Binding{}
	}
	return encodeJSON(w, out)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// CSV writes a header line followed by one record per row.
func CSV(w io.Writer, result *query.Result) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(result.Columns); err != nil {
		return err
	}
	for _, row := range result.Rows {
		if err := writer.Write(cells(row, result.Columns)); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// errorKindExecution labels failures that are not parse errors.
const errorKindExecution = "ExecutionFailed"

func describe(err error) errorBody {
	var qe *query.Error
	if errors.As(err, &qe) {
		return errorBody{Kind: string(qe.Kind), Message: qe.Message, Details: qe.Details}
	}
	return errorBody{Kind: errorKindExecution, Message: err.Error()}
}

// WriteError renders a failed query so it cannot be mistaken for an empty
// result. JSON output is {"error": {kind, message, details}}.
func WriteError(w io.Writer, err error, format Format) error {
	body := describe(err)

	switch format {
	case FormatJSON:
		return encodeJSON(w, struct {
			Error errorBody `json:"error"`
		}{body})
	case FormatHTML:
		return errorTemplate.Execute(w, body)
	default:
		if _, werr := fmt.Fprintf(w, "Error [%s]: %s\n", body.Kind, body.Message); werr != nil {
			return werr
		}
		if body.Details != "" {
			if _, werr := fmt.Fprintf(w, "Hint: %s\n", body.Details); werr != nil {
				return werr
			}
		}
		return nil
	}
}
