package preview

import (
	"fmt"
	"html"
)

// configuration for one rendered preview page
type PageConfig struct {
	Title string `json:"title"`
	Theme string `json:"theme,omitempty"`
}

// turns document tokens into a preview page.
//
// Rendering is a pure function supplied from outside this core; the server
// only invokes it when the preview HTTP handler serves a page.
type Renderer interface {
	Render(tokens string, cfg PageConfig) (htmlOut string, cssOut string, err error)
}

// minimal renderer used when no template engine is wired in.
// Escapes the document text into a <pre> block.
type PlainRenderer struct{}

func (PlainRenderer) Render(tokens string, cfg PageConfig) (string, string, error) {
	title := cfg.Title
	if title == "" {
		title = "preview"
	}

	page := fmt.Sprintf(
		"<!doctype html><html><head><title>%s</title></head><body><pre>%s</pre></body></html>",
		html.EscapeString(title),
		html.EscapeString(tokens),
	)

	css := "pre { font-family: monospace; white-space: pre-wrap; }"

	return page, css, nil
}
