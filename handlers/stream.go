package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"sootio/models"
	"sootio/services/stream"
)

type streamService interface {
	Streams(ctx context.Context, user stream.UserConfig, id models.ContentID) ([]models.StreamDescriptor, error)
}

type resolveService interface {
	Resolve(ctx context.Context, prov stream.Provider, itemID, hostRef, clientIP string) (string, error)
}

// StreamHandler serves the addon surface: manifest, stream listings,
// and host reference resolution.
type StreamHandler struct {
	Pipeline streamService
	Resolver resolveService
}

func NewStreamHandler(pipeline streamService, resolver resolveService) *StreamHandler {
	return &StreamHandler{Pipeline: pipeline, Resolver: resolver}
}

var manifest = map[string]any{
	"id":          "com.sootio.addon",
	"version":     "1.0.0",
	"name":        "Sootio",
	"description": "Debrid cloud streams",
	"resources":   []string{"stream"},
	"types":       []string{"movie", "series"},
	"idPrefixes":  []string{"tt"},
	"catalogs":    []any{},
}

// Manifest responds with the static addon manifest.
func (h *StreamHandler) Manifest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, manifest)
}

func userFromRequest(r *http.Request) stream.UserConfig {
	q := r.URL.Query()
	return stream.UserConfig{
		DebridProvider:   q.Get("provider"),
		DebridAPIKey:     q.Get("apiKey"),
		DebridLinkAPIKey: q.Get("debridLinkApiKey"),
		LangPref:         q.Get("lang"),
	}
}

// Streams lists playable streams for one title.
func (h *StreamHandler) Streams(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rawID := strings.TrimSuffix(vars["id"], ".json")
	id, err := models.ParseContentID(vars["type"], rawID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user := userFromRequest(r)
	start := time.Now()
	streams, err := h.Pipeline.Streams(r.Context(), user, id)
	if err != nil {
		if errors.Is(err, stream.ErrBadRequest) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("[stream-handler] listing %s/%s failed: %v", id.Type, id, err)
		http.Error(w, "stream lookup failed", http.StatusBadGateway)
		return
	}
	log.Printf("[stream-handler] %s/%s: %d streams (took %v)", id.Type, id, len(streams), time.Since(start))

	writeJSON(w, http.StatusOK, map[string]any{"streams": streams})
}

// ResolveStream exchanges a host reference for a direct URL and
// redirects the player to it. The router matches the encoded path, so the
// apiKey and hostRef vars arrive percent-encoded and are decoded here,
// exactly once.
func (h *StreamHandler) ResolveStream(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	providerName := vars["provider"]

	apiKey, err := url.PathUnescape(vars["apiKey"])
	if err != nil {
		http.Error(w, "bad api key encoding", http.StatusBadRequest)
		return
	}
	hostRef, err := url.PathUnescape(vars["hostRef"])
	if err != nil {
		http.Error(w, "bad host reference encoding", http.StatusBadRequest)
		return
	}

	prov, ok := stream.GetProvider(providerName, apiKey)
	if !ok {
		http.Error(w, "unknown provider", http.StatusBadRequest)
		return
	}

	start := time.Now()
	playURL, err := h.Resolver.Resolve(r.Context(), prov, r.URL.Query().Get("item"), hostRef, clientIP(r))
	if err != nil {
		log.Printf("[stream-handler] resolve via %s failed after %v: %v", providerName, time.Since(start), err)
		http.Error(w, "no playable source", http.StatusNotFound)
		return
	}
	log.Printf("[stream-handler] resolve via %s ok (took %v)", providerName, time.Since(start))

	http.Redirect(w, r, playURL, http.StatusFound)
}

// clientIP prefers the forwarded chain's first hop over the socket peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[stream-handler] encode response: %v", err)
	}
}
