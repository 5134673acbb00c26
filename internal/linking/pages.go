package linking

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pages = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

type errorPage struct {
	Message string
}
