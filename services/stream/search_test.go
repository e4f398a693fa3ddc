package stream

import (
	"context"
	"errors"
	"testing"

	"sootio/models"
)

type fakeMeta struct {
	record *models.MetadataRecord
	err    error
}

func (f fakeMeta) GetMeta(ctx context.Context, contentType models.ContentType, imdbID string) (*models.MetadataRecord, error) {
	return f.record, f.err
}

// fakeStore is a plain provider with no detail expansion.
type fakeStore struct {
	candidates []models.Candidate
	err        error
	lastReq    SearchRequest
}

func (f *fakeStore) Name() string { return "fakestore" }

func (f *fakeStore) Search(ctx context.Context, req SearchRequest) ([]models.Candidate, error) {
	f.lastReq = req
	return f.candidates, f.err
}

func (f *fakeStore) ResolveURL(ctx context.Context, itemID, hostRef, clientIP string) (string, error) {
	return hostRef, nil
}

// fakeDetailStore expands candidates one at a time.
type fakeDetailStore struct {
	fakeStore
	details map[string]*models.Candidate
}

func (f *fakeDetailStore) GetDetails(ctx context.Context, id string) (*models.Candidate, error) {
	d, ok := f.details[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return d, nil
}

func registerFake(t *testing.T, name string, prov Provider) {
	t.Helper()
	RegisterProvider(name, func(apiKey string) Provider { return prov })
}

func seriesID(season, episode int) models.ContentID {
	return models.ContentID{Type: models.ContentTypeSeries, IMDBID: "tt100", Season: season, Episode: episode}
}

func TestStreamsRejectsUnknownProvider(t *testing.T) {
	p := NewPipeline(fakeMeta{record: &models.MetadataRecord{Name: "Dark"}}, NewFormatter(""))

	_, err := p.Streams(context.Background(), UserConfig{DebridProvider: "nosuch", DebridAPIKey: "k"}, seriesID(1, 3))
	if !errors.Is(err, ErrBadRequest) {
		t.Errorf("unknown provider error = %v, want ErrBadRequest", err)
	}

	_, err = p.Streams(context.Background(), UserConfig{}, seriesID(1, 3))
	if !errors.Is(err, ErrBadRequest) {
		t.Errorf("missing provider error = %v, want ErrBadRequest", err)
	}
}

func TestStreamsMetadataFailureIsFatal(t *testing.T) {
	registerFake(t, "metafail", &fakeStore{})
	p := NewPipeline(fakeMeta{err: errors.New("catalog down")}, NewFormatter(""))
	_, err := p.Streams(context.Background(), UserConfig{DebridProvider: "metafail", DebridAPIKey: "k"}, seriesID(1, 3))
	if err == nil {
		t.Fatal("expected metadata failure to fail the request")
	}
}

func TestStreamsEmptyResultsIsNotAnError(t *testing.T) {
	registerFake(t, "emptystore", &fakeStore{})
	p := NewPipeline(fakeMeta{record: &models.MetadataRecord{Name: "Dark"}}, NewFormatter(""))
	streams, err := p.Streams(context.Background(), UserConfig{DebridProvider: "emptystore", DebridAPIKey: "k"}, seriesID(1, 3))
	if err != nil {
		t.Fatalf("Streams failed: %v", err)
	}
	if streams == nil || len(streams) != 0 {
		t.Errorf("streams = %#v, want empty non-nil list", streams)
	}
}

func TestStreamsSeriesEpisodeGate(t *testing.T) {
	store := &fakeStore{candidates: []models.Candidate{
		{Source: "fakestore", ID: "1", Name: "Dark.S01E03.1080p.mkv", URL: "https://a/1",
			Info: models.ParsedInfo{Season: 1, Episode: 3, Resolution: "1080p"}},
		{Source: "fakestore", ID: "2", Name: "Dark.S01E04.1080p.mkv", URL: "https://a/2",
			Info: models.ParsedInfo{Season: 1, Episode: 4, Resolution: "1080p"}},
		{Source: "fakestore", ID: "3", Name: "Severance.S01E05.1080p.mkv", URL: "https://a/3",
			Info: models.ParsedInfo{Title: "Severance", Season: 1, Episode: 5, Resolution: "1080p"}},
	}}
	registerFake(t, "gatestore", store)
	p := NewPipeline(fakeMeta{record: &models.MetadataRecord{Name: "Dark"}}, NewFormatter(""))

	streams, err := p.Streams(context.Background(), UserConfig{DebridProvider: "gatestore", DebridAPIKey: "k"}, seriesID(1, 3))
	if err != nil {
		t.Fatalf("Streams failed: %v", err)
	}
	if len(streams) != 1 {
		t.Fatalf("got %d streams, want only the requested episode", len(streams))
	}
	if streams[0].URL != "https://a/1" {
		t.Errorf("stream url = %q, want the S01E03 candidate", streams[0].URL)
	}
	if store.lastReq.Key != "Dark" {
		t.Errorf("search key = %q, want canonical title", store.lastReq.Key)
	}
}

func TestStreamsMovieYearGate(t *testing.T) {
	store := &fakeStore{candidates: []models.Candidate{
		{Source: "fakestore", ID: "1", Name: "Movie.1999.1080p.mkv", URL: "https://a/1",
			Info: models.ParsedInfo{Year: 1999}},
		{Source: "fakestore", ID: "2", Name: "Movie.2003.1080p.mkv", URL: "https://a/2",
			Info: models.ParsedInfo{Year: 2003}},
		{Source: "fakestore", ID: "3", Name: "Movie.1080p.mkv", URL: "https://a/3"},
	}}
	registerFake(t, "yearstore", store)
	p := NewPipeline(fakeMeta{record: &models.MetadataRecord{Name: "Movie", Year: 1999}}, NewFormatter(""))

	id := models.ContentID{Type: models.ContentTypeMovie, IMDBID: "tt200"}
	streams, err := p.Streams(context.Background(), UserConfig{DebridProvider: "yearstore", DebridAPIKey: "k"}, id)
	if err != nil {
		t.Fatalf("Streams failed: %v", err)
	}
	if len(streams) != 2 {
		t.Fatalf("got %d streams, want 2 (wrong year dropped, unknown year kept)", len(streams))
	}
}

func TestStreamsDetailExpansionIsolatesFailures(t *testing.T) {
	store := &fakeDetailStore{
		fakeStore: fakeStore{candidates: []models.Candidate{
			{Source: "fakestore", ID: "ok", Name: "Dark.S01.1080p", Info: models.ParsedInfo{Seasons: []int{1}}},
			{Source: "fakestore", ID: "broken", Name: "Dark.S01.720p", Info: models.ParsedInfo{Seasons: []int{1}}},
		}},
		details: map[string]*models.Candidate{
			"ok": {Source: "fakestore", ID: "ok", Name: "Dark.S01.1080p", URL: "https://a/ok",
				Files: []models.FileEntry{
					{ID: 1, Path: "Dark.S01E03.mkv", Info: models.ParsedInfo{Season: 1, Episode: 3}},
				}},
		},
	}
	registerFake(t, "detailstore", store)
	p := NewPipeline(fakeMeta{record: &models.MetadataRecord{Name: "Dark"}}, NewFormatter(""))

	streams, err := p.Streams(context.Background(), UserConfig{DebridProvider: "detailstore", DebridAPIKey: "k"}, seriesID(1, 3))
	if err != nil {
		t.Fatalf("Streams failed: %v", err)
	}
	if len(streams) != 1 {
		t.Fatalf("got %d streams, want 1 (failed detail dropped, not fatal)", len(streams))
	}
}

func TestStreamsRankedOrder(t *testing.T) {
	store := &fakeStore{candidates: []models.Candidate{
		{Source: "fakestore", ID: "1", Name: "Dark.S01E03.720p.mkv", URL: "https://a/1",
			Info: models.ParsedInfo{Season: 1, Episode: 3, Resolution: "720p"}},
		{Source: "fakestore", ID: "2", Name: "Dark.S01E03.2160p.mkv", URL: "https://a/2",
			Info: models.ParsedInfo{Season: 1, Episode: 3, Resolution: "2160p"}},
	}}
	registerFake(t, "rankstore", store)
	p := NewPipeline(fakeMeta{record: &models.MetadataRecord{Name: "Dark"}}, NewFormatter(""))

	streams, err := p.Streams(context.Background(), UserConfig{DebridProvider: "rankstore", DebridAPIKey: "k"}, seriesID(1, 3))
	if err != nil {
		t.Fatalf("Streams failed: %v", err)
	}
	if len(streams) != 2 {
		t.Fatalf("got %d streams, want 2", len(streams))
	}
	if streams[0].URL != "https://a/2" {
		t.Errorf("first stream = %q, want the 2160p candidate first", streams[0].URL)
	}
}

func TestReorderByIDs(t *testing.T) {
	batch := []models.Candidate{{ID: "b"}, {ID: "a"}, {ID: "x"}}
	got := reorderByIDs(batch, []string{"a", "b"})
	if len(got) != 3 || got[0].ID != "a" || got[1].ID != "b" || got[2].ID != "x" {
		t.Errorf("reorderByIDs = %v", got)
	}
}

func TestUserConfig(t *testing.T) {
	u := UserConfig{DebridLinkAPIKey: "dlkey"}
	if u.ProviderName() != "debridlink" {
		t.Errorf("ProviderName = %q, want debridlink fallback", u.ProviderName())
	}
	if u.APIKey() != "dlkey" {
		t.Errorf("APIKey = %q", u.APIKey())
	}

	u = UserConfig{DebridProvider: " RealDebrid ", DebridAPIKey: "rdkey"}
	if u.ProviderName() != "realdebrid" {
		t.Errorf("ProviderName = %q", u.ProviderName())
	}
	if u.APIKey() != "rdkey" {
		t.Errorf("APIKey = %q", u.APIKey())
	}
}
