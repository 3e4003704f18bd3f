package render

import (
	"html/template"
	"io"

	"github.com/coolbeans/sparqlab/pkg/query"
)

var resultTemplate = template.Must(template.New("result").Parse(`{{if .Rows -}}
<table class="results">
  <thead>
    <tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
  </thead>
  <tbody>
{{- range .Rows}}
    <tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
  </tbody>
</table>
<p class="count">{{.Count}}</p>
{{else -}}
<p class="no-results">No results.</p>
{{end -}}
`))

var errorTemplate = template.Must(template.New("error").Parse(`<div class="error">
  <p><strong>{{.Kind}}</strong>: {{.Message}}</p>
{{- if .Details}}
  <p class="hint">{{.Details}}</p>
{{- end}}
</div>
`))

type htmlResult struct {
	Columns []string
	Rows    [][]string
	Count   string
}

// HTML writes the result as an HTML table fragment. Values are escaped.
func HTML(w io.Writer, result *query.Result) error {
	data := htmlResult{
		Columns: result.Columns,
		Rows:    make([][]string, len(result.Rows)),
		Count:   rowCount(result.Count()),
	}
	for i, row := range result.Rows {
		data.Rows[i] = cells(row, result.Columns)
	}
	return resultTemplate.Execute(w, data)
}
