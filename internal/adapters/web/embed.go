// Package web serves the kwtag JSON API, Prometheus metrics and a small
// embedded page for trying out the annotator in a browser.
package web

import "embed"

//go:embed static/index.html
var staticFS embed.FS
