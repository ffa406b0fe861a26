package server

import (
	"embed"
	"html/template"

	"github.com/pkg/errors"
)

// The consent prompt and the inline error page are the only HTML this
// service serves. Both ship inside the binary.
//
//go:embed templates/*.html
var templateFiles embed.FS

// pageTemplates holds the pre-parsed pages. Parsing happens once in
// server.New so a broken template fails startup, not a user's request.
type pageTemplates struct {
	consent   *template.Template
	errorPage *template.Template
}

func parsePageTemplates() (pageTemplates, error) {
	consent, err := template.ParseFS(templateFiles, "templates/consent.html")
	if err != nil {
		return pageTemplates{}, errors.Wrap(err, "[parsePageTemplates] consent.html")
	}
	errorPage, err := template.ParseFS(templateFiles, "templates/error.html")
	if err != nil {
		return pageTemplates{}, errors.Wrap(err, "[parsePageTemplates] error.html")
	}
	return pageTemplates{consent: consent, errorPage: errorPage}, nil
}
