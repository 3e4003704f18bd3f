package render

import (
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/coolbeans/sparqlab/pkg/query"
)

// NoResults is printed by the table renderer for an empty result.
const NoResults = "No results."

// width measures terminal cells independently of the user's locale, so
// ambiguous-width characters count as one cell and Hangul as two.
var width = &runewidth.Condition{EastAsianWidth: false, StrictEmojiNeutral: true}

// Table writes the result as a box-drawn text table sized by display width.
func Table(w io.Writer, result *query.Result) error {
	if result.Count() == 0 || len(result.Columns) == 0 {
		_, err := io.WriteString(w, NoResults+"\n")
		return err
	}

	rows := make([][]string, len(result.Rows))
	for i, row := range result.Rows {
		rows[i] = cells(row, result.Columns)
	}

	widths := make([]int, len(result.Columns))
	for i, col := range result.Columns {
		widths[i] = width.StringWidth(col)
	}
	for _, row := range rows {
		for i, value := range row {
			if n := width.StringWidth(value); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var sep strings.Builder
	sep.WriteString("+")
	for _, n := range widths {
		sep.WriteString(strings.Repeat("-", n+2))
		sep.WriteString("+")
	}
	sep.WriteString("\n")

	var sb strings.Builder
	sb.WriteString(sep.String())
	writeLine(&sb, result.Columns, widths)
	sb.WriteString(sep.String())
	for _, row := range rows {
		writeLine(&sb, row, widths)
	}
	sb.WriteString(sep.String())
	sb.WriteString(rowCount(result.Count()) + "\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeLine(sb *strings.Builder, values []string, widths []int) {
	sb.WriteString("|")
	for i, value := range values {
		sb.WriteString(" ")
		sb.WriteString(width.FillRight(value, widths[i]))
		sb.WriteString(" |")
	}
	sb.WriteString("\n")
}
