package utils

import (
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.UGCPolicy()

// Sanitize cleans HTML content to prevent XSS attacks.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}

// Linebreaks sanitizes user text and turns line breaks into <br> for display.
func Linebreaks(input string) template.HTML {
	text := strings.ReplaceAll(strings.TrimSpace(input), "\r\n", "\n")
	return template.HTML(strings.ReplaceAll(Sanitize(text), "\n", "<br>"))
}
