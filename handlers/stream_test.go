package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gorilla/mux"
	"sootio/models"
	"sootio/services/stream"
)

type fakePipeline struct {
	streams  []models.StreamDescriptor
	err      error
	lastUser stream.UserConfig
	lastID   models.ContentID
}

func (f *fakePipeline) Streams(ctx context.Context, user stream.UserConfig, id models.ContentID) ([]models.StreamDescriptor, error) {
	f.lastUser = user
	f.lastID = id
	return f.streams, f.err
}

type fakeResolver struct {
	url     string
	err     error
	lastRef string
	lastIP  string
}

func (f *fakeResolver) Resolve(ctx context.Context, prov stream.Provider, itemID, hostRef, clientIP string) (string, error) {
	f.lastRef = hostRef
	f.lastIP = clientIP
	return f.url, f.err
}

type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }
func (stubProvider) Search(ctx context.Context, req stream.SearchRequest) ([]models.Candidate, error) {
	return nil, nil
}
func (stubProvider) ResolveURL(ctx context.Context, itemID, hostRef, clientIP string) (string, error) {
	return hostRef, nil
}

func testRouter(pipeline *fakePipeline, resolver *fakeResolver) *mux.Router {
	h := NewStreamHandler(pipeline, resolver)
	r := mux.NewRouter()
	r.SkipClean(true)
	r.UseEncodedPath()
	r.HandleFunc("/manifest.json", h.Manifest)
	r.HandleFunc("/stream/{type}/{id}", h.Streams)
	r.HandleFunc("/resolve/{provider}/{apiKey}/{hostRef:.*}", h.ResolveStream)
	return r
}

func TestManifest(t *testing.T) {
	rr := httptest.NewRecorder()
	testRouter(&fakePipeline{}, &fakeResolver{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/manifest.json", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var m map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &m); err != nil {
		t.Fatalf("manifest not json: %v", err)
	}
	if m["id"] != "com.sootio.addon" {
		t.Errorf("manifest id = %v", m["id"])
	}
}

func TestStreamsEndpoint(t *testing.T) {
	pipeline := &fakePipeline{streams: []models.StreamDescriptor{{Name: "x", URL: "https://a/1"}}}
	router := testRouter(pipeline, &fakeResolver{})

	req := httptest.NewRequest(http.MethodGet, "/stream/series/tt100:1:3.json?provider=realdebrid&apiKey=k&lang=ita", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var payload struct {
		Streams []models.StreamDescriptor `json:"streams"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(payload.Streams) != 1 {
		t.Errorf("streams = %d, want 1", len(payload.Streams))
	}
	if pipeline.lastID.Season != 1 || pipeline.lastID.Episode != 3 || pipeline.lastID.IMDBID != "tt100" {
		t.Errorf("parsed id = %+v", pipeline.lastID)
	}
	if pipeline.lastUser.DebridProvider != "realdebrid" || pipeline.lastUser.LangPref != "ita" {
		t.Errorf("user config = %+v", pipeline.lastUser)
	}
}

func TestStreamsEndpointBadRequest(t *testing.T) {
	cases := []struct {
		name string
		path string
		err  error
		want int
	}{
		{"malformed series id", "/stream/series/tt100.json", nil, http.StatusBadRequest},
		{"unknown content type", "/stream/game/tt100.json", nil, http.StatusBadRequest},
		{"unknown provider", "/stream/movie/tt100.json", stream.ErrBadRequest, http.StatusBadRequest},
		{"upstream failure", "/stream/movie/tt100.json", errors.New("catalog down"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := testRouter(&fakePipeline{err: tc.err}, &fakeResolver{})
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.path, nil))
			if rr.Code != tc.want {
				t.Errorf("status = %d, want %d", rr.Code, tc.want)
			}
		})
	}
}

func TestResolveEndpointRedirects(t *testing.T) {
	stream.RegisterProvider("stub", func(apiKey string) stream.Provider { return stubProvider{} })

	resolver := &fakeResolver{url: "https://direct.example/file.mkv"}
	router := testRouter(&fakePipeline{}, resolver)

	hostRef := "https://host.example/f/Movie%20Name.mkv"
	req := httptest.NewRequest(http.MethodGet, "/resolve/stub/key123/"+url.PathEscape(hostRef), nil)
	req.Header.Set("X-Forwarded-For", "9.9.9.9, 10.0.0.1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusFound {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); loc != resolver.url {
		t.Errorf("redirect location = %q", loc)
	}
	if resolver.lastRef != hostRef {
		t.Errorf("host ref = %q, want %q decoded exactly once", resolver.lastRef, hostRef)
	}
	if resolver.lastIP != "9.9.9.9" {
		t.Errorf("client ip = %q, want first forwarded hop", resolver.lastIP)
	}
}

func TestResolveEndpointFailures(t *testing.T) {
	stream.RegisterProvider("stub", func(apiKey string) stream.Provider { return stubProvider{} })

	t.Run("unknown provider", func(t *testing.T) {
		router := testRouter(&fakePipeline{}, &fakeResolver{})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/resolve/nosuch/key/ref", nil))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rr.Code)
		}
	})

	t.Run("resolution failure", func(t *testing.T) {
		router := testRouter(&fakePipeline{}, &fakeResolver{err: errors.New("dead magnet")})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/resolve/stub/key/magnet", nil))
		if rr.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rr.Code)
		}
	})
}
