// Package templates embeds the HTML pages rendered by the controllers.
package templates

import (
	"embed"
	"html/template"
	"time"

	"github.com/cppla/yatube/utils"
)

//go:embed *.html
var files embed.FS

// Funcs are the helpers available to every page.
var Funcs = template.FuncMap{
	"linebreaks": utils.Linebreaks,
	"date": func(t time.Time) string {
		return t.Local().Format("02.01.2006 15:04")
	},
	"media": func(rel string) string {
		return "/media/" + rel
	},
}

// Load parses every embedded page; pages are addressed by file name.
func Load() *template.Template {
	return template.Must(template.New("").Funcs(Funcs).ParseFS(files, "*.html"))
}
