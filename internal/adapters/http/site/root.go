// Package site serves the embedded snapshot viewer.
package site

import (
	"context"
	"net/http"
)

// Register attaches the viewer to mux at the root path. Paths that are not
// embedded files answer 404.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("/", http.FileServer(FS()))
}
