// Package web embeds the HTML templates of the site.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/url"
)

//go:embed templates/*.html
var files embed.FS

// PhotoURL is the local proxy path for a restaurant photo reference
func PhotoURL(ref string) string {
	if ref == "" {
		return ""
	}
	return "/get-image?photo_reference=" + url.QueryEscape(ref)
}

var funcs = template.FuncMap{
	"photoURL": PhotoURL,
	"openLabel": func(open *bool) string {
		switch {
		case open == nil:
			return ""
		case *open:
			return "Open now"
		default:
			return "Closed"
		}
	},
	"rating": func(r float64) string {
		return fmt.Sprintf("%.1f", r)
	},
}

// Templates parses every page template
func Templates() (*template.Template, error) {
	t, err := template.New("").Funcs(funcs).ParseFS(files, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}
