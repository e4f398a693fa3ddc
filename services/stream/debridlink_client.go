package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"sootio/models"
)

// DebridLinkClient talks to the Debrid-Link v2 API. Seedbox files carry
// direct download URLs, so resolution is a passthrough.
type DebridLinkClient struct {
	apiKey  string
	httpc   *http.Client
	baseURL string
}

var _ Provider = (*DebridLinkClient)(nil)
var _ BatchDetailer = (*DebridLinkClient)(nil)

func NewDebridLinkClient(apiKey string) *DebridLinkClient {
	return &DebridLinkClient{
		apiKey:  strings.TrimSpace(apiKey),
		httpc:   newHTTPClient(),
		baseURL: "https://debrid-link.com/api/v2",
	}
}

func init() {
	RegisterProvider("debridlink", func(apiKey string) Provider {
		return NewDebridLinkClient(apiKey)
	})
}

func (c *DebridLinkClient) Name() string { return "debridlink" }

type debridLinkResponse[T any] struct {
	Success bool   `json:"success"`
	Value   T      `json:"value,omitempty"`
	Error   string `json:"error,omitempty"`
}

type debridLinkTorrent struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	HashString  string            `json:"hashString"`
	TotalSize   int64             `json:"totalSize"`
	DownloadPct float64           `json:"downloadPercent"`
	Files       []debridLinkFile  `json:"files"`
	Trackers    []debridLinkTrack `json:"trackers,omitempty"`
}

type debridLinkFile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"downloadUrl"`
	Wanted      bool   `json:"wanted"`
}

type debridLinkTrack struct {
	Announce string `json:"announce"`
}

func (c *DebridLinkClient) listSeedbox(ctx context.Context, ids []string) ([]debridLinkTorrent, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("debridlink API key not configured")
	}
	endpoint := c.baseURL + "/seedbox/list?perPage=100"
	if len(ids) > 0 {
		endpoint += "&ids=" + url.QueryEscape(strings.Join(ids, ","))
	}
	var resp debridLinkResponse[[]debridLinkTorrent]
	if err := doJSON(ctx, c.httpc, http.MethodGet, endpoint, c.apiKey, nil, &resp); err != nil {
		return nil, fmt.Errorf("seedbox list: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("debridlink: %s", resp.Error)
	}
	return resp.Value, nil
}

func (c *DebridLinkClient) candidateFromTorrent(t debridLinkTorrent) models.Candidate {
	cand := models.Candidate{
		Source:     c.Name(),
		ID:         t.ID,
		Name:       t.Name,
		Hash:       strings.ToLower(t.HashString),
		Size:       t.TotalSize,
		IsPersonal: true,
		Info:       parseReleaseInfo(t.Name),
	}
	if len(t.Trackers) > 0 {
		if host := trackerHost(t.Trackers[0].Announce); host != "" {
			cand.Tracker = host
		}
	}
	var best debridLinkFile
	for i, f := range t.Files {
		cand.Files = append(cand.Files, models.FileEntry{
			ID:       i + 1,
			Name:     f.Name,
			Path:     f.Name,
			Size:     f.Size,
			Selected: f.Wanted,
			Info:     parseReleaseInfo(f.Name),
		})
		if isValidVideo(f.Name, f.Size, 0) && f.DownloadURL != "" && f.Size >= best.Size {
			best = f
		}
	}
	if best.DownloadURL != "" {
		cand.URL = best.DownloadURL
		cand.Path = best.Name
	}
	return cand
}

func trackerHost(announce string) string {
	u, err := url.Parse(announce)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Search lists the account's completed seedbox torrents matching the key.
func (c *DebridLinkClient) Search(ctx context.Context, req SearchRequest) ([]models.Candidate, error) {
	torrents, err := c.listSeedbox(ctx, nil)
	if err != nil {
		return nil, err
	}
	var candidates []models.Candidate
	for _, t := range torrents {
		if t.DownloadPct < 100 {
			continue
		}
		if !matchesSearchKey(t.Name, req.Key, req.MinScore) {
			continue
		}
		candidates = append(candidates, c.candidateFromTorrent(t))
	}
	return candidates, nil
}

// GetDetailsBatch expands several seedbox torrents in a single request.
func (c *DebridLinkClient) GetDetailsBatch(ctx context.Context, ids []string) ([]models.Candidate, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	torrents, err := c.listSeedbox(ctx, ids)
	if err != nil {
		return nil, err
	}
	candidates := make([]models.Candidate, 0, len(torrents))
	for _, t := range torrents {
		candidates = append(candidates, c.candidateFromTorrent(t))
	}
	return candidates, nil
}

// ResolveURL returns the host reference unchanged. Seedbox download URLs
// are already unrestricted.
func (c *DebridLinkClient) ResolveURL(ctx context.Context, itemID, hostRef, clientIP string) (string, error) {
	if !IsPlayableReference(hostRef) {
		return "", fmt.Errorf("debridlink: not a playable reference")
	}
	return hostRef, nil
}
