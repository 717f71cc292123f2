package invoice

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/outstanding_invoices.html
var templateFS embed.FS

var statementTemplate = template.Must(
	template.ParseFS(templateFS, "templates/outstanding_invoices.html"),
)

// RenderHTML executes the reminder template for st.
func RenderHTML(st *Statement) (string, error) {
	var buf bytes.Buffer
	if err := statementTemplate.Execute(&buf, st); err != nil {
		return "", fmt.Errorf("render invoice template: %w", err)
	}
	return buf.String(), nil
}
