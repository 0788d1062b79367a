// Package site serves the embedded single-page picker at /.
package site

import (
	"context"
	"net/http"
)

// Register attaches the embedded page and its assets to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("GET /", http.FileServer(FS()))
}
