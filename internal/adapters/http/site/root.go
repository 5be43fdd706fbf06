// Package site serves the embedded live leaderboard page. The page is a
// plain polling client of /groups and /live-feed.
package site

import (
	"context"
	"net/http"
)

// Register attaches the board routes to mux.
//
//	GET /        -> redirect to /board/
//	GET /board/  -> embedded static files
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.Handle("GET /board/", http.StripPrefix("/board/", http.FileServer(FS())))
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/board/", http.StatusFound)
	})
}
