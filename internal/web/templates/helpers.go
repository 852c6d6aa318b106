// Package templates holds the templ components rendered for HTMX requests.
// Regenerate the *_templ.go files with `templ generate` after editing a .templ file.
package templates

// Count is one labelled total in a summary.
type Count struct {
	Label string
	N     int
}

func tone(ok bool) string {
	if ok {
		return "alert-success"
	}
	return "alert-warning"
}
