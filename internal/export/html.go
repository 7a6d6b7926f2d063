package export

import (
	"html/template"
	"io"
	"time"

	"cannabistrack-api/internal/models"
)

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>
    <style>
      body { font-family: Arial, sans-serif; margin: 20px; }
      table { width: 100%; border-collapse: collapse; margin-top: 20px; }
      th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
      th { background-color: #f2f2f2; }
      h1 { color: #2E7D32; }
    </style>
  </head>
  <body>
    <h1>{{.Title}}</h1>
    <p>Generated on: {{.Generated}}</p>
{{- if .Rows}}
    <table>
      <thead><tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr></thead>
      <tbody>
{{- range .Rows}}
        <tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
      </tbody>
    </table>
{{- else}}
    <p>No data available</p>
{{- end}}
  </body>
</html>
`))

// WriteHTML writes a printable report page
func WriteHTML(w io.Writer, t *Table, now time.Time) error {
	return reportTemplate.Execute(w, struct {
		*Table
		Generated string
	}{t, now.Format(models.DateLayout)})
}
