package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"sootio/handlers"
)

// corsMiddleware allows the addon to be loaded from any player origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewRouter wires the addon routes. Host references travel percent-encoded
// as one path segment; the router must match the raw path untouched, or
// path cleaning redirects and double-decodes them.
func NewRouter(streamHandler *handlers.StreamHandler) *mux.Router {
	r := mux.NewRouter()
	r.SkipClean(true)
	r.UseEncodedPath()
	r.Use(corsMiddleware)

	r.HandleFunc("/manifest.json", streamHandler.Manifest).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/stream/{type}/{id}", streamHandler.Streams).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/resolve/{provider}/{apiKey}/{hostRef:.*}", streamHandler.ResolveStream).Methods(http.MethodGet, http.MethodOptions)

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	return r
}
