package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"sootio/handlers"
	"sootio/models"
	"sootio/services/stream"
)

type noopPipeline struct{}

func (noopPipeline) Streams(ctx context.Context, user stream.UserConfig, id models.ContentID) ([]models.StreamDescriptor, error) {
	return nil, nil
}

type captureResolver struct {
	lastRef string
}

func (c *captureResolver) Resolve(ctx context.Context, prov stream.Provider, itemID, hostRef, clientIP string) (string, error) {
	c.lastRef = hostRef
	return "https://direct.example/out.mkv", nil
}

type routeStubProvider struct{}

func (routeStubProvider) Name() string { return "routestub" }
func (routeStubProvider) Search(ctx context.Context, req stream.SearchRequest) ([]models.Candidate, error) {
	return nil, nil
}
func (routeStubProvider) ResolveURL(ctx context.Context, itemID, hostRef, clientIP string) (string, error) {
	return hostRef, nil
}

// Proxied host references are full URLs carried as one encoded path
// segment. The router must neither clean-path redirect them nor decode
// them more than once.
func TestResolveRouteKeepsHostReferenceIntact(t *testing.T) {
	stream.RegisterProvider("routestub", func(apiKey string) stream.Provider { return routeStubProvider{} })

	resolver := &captureResolver{}
	router := NewRouter(handlers.NewStreamHandler(noopPipeline{}, resolver))

	hostRef := "https://host.example/f/Movie%20Name.mkv"
	outward := "/resolve/routestub/key/" + url.PathEscape(hostRef)

	req := httptest.NewRequest(http.MethodGet, outward, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302 (no clean-path redirect), body %s", rr.Code, rr.Body.String())
	}
	if resolver.lastRef != hostRef {
		t.Errorf("resolver received %q, want %q unchanged", resolver.lastRef, hostRef)
	}
}

func TestHealthRoute(t *testing.T) {
	router := NewRouter(handlers.NewStreamHandler(noopPipeline{}, &captureResolver{}))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d", rr.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	router := NewRouter(handlers.NewStreamHandler(noopPipeline{}, &captureResolver{}))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/manifest.json", nil))
	if rr.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS allow-origin header")
	}
}
