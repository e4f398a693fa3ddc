package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"sootio/models"
)

// TorBoxClient talks to the TorBox v1 API. Download links are minted on
// demand through the requestdl endpoint, so host references carry the
// torrent and file ids and are exchanged at resolution time.
type TorBoxClient struct {
	apiKey  string
	httpc   *http.Client
	baseURL string
}

var _ Provider = (*TorBoxClient)(nil)

func NewTorBoxClient(apiKey string) *TorBoxClient {
	return &TorBoxClient{
		apiKey:  strings.TrimSpace(apiKey),
		httpc:   newHTTPClient(),
		baseURL: "https://api.torbox.app/v1/api",
	}
}

func init() {
	RegisterProvider("torbox", func(apiKey string) Provider {
		return NewTorBoxClient(apiKey)
	})
}

func (c *TorBoxClient) Name() string { return "torbox" }

type torBoxResponse[T any] struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail,omitempty"`
	Data    T      `json:"data,omitempty"`
}

type torBoxTorrent struct {
	ID            int          `json:"id"`
	Name          string       `json:"name"`
	Hash          string       `json:"hash"`
	Size          int64        `json:"size"`
	DownloadState string       `json:"download_state"`
	Files         []torBoxFile `json:"files"`
}

type torBoxFile struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
	Size      int64  `json:"size"`
}

func (c *TorBoxClient) fileReference(torrentID, fileID int) string {
	return fmt.Sprintf("%s/torrents/requestdl?torrent_id=%d&file_id=%d", c.baseURL, torrentID, fileID)
}

// Search lists the account's finished torrents matching the key. File
// lists come back with the listing, so no detail expansion is needed.
func (c *TorBoxClient) Search(ctx context.Context, req SearchRequest) ([]models.Candidate, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("torbox API key not configured")
	}
	endpoint := c.baseURL + "/torrents/mylist?bypass_cache=true"
	var resp torBoxResponse[[]torBoxTorrent]
	if err := doJSON(ctx, c.httpc, http.MethodGet, endpoint, c.apiKey, nil, &resp); err != nil {
		return nil, fmt.Errorf("torrent list: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("torbox: %s", resp.Detail)
	}

	var candidates []models.Candidate
	for _, t := range resp.Data {
		if t.DownloadState != "completed" && t.DownloadState != "cached" && t.DownloadState != "uploading" {
			continue
		}
		if !matchesSearchKey(t.Name, req.Key, req.MinScore) {
			continue
		}
		cand := models.Candidate{
			Source:     c.Name(),
			ID:         strconv.Itoa(t.ID),
			Name:       t.Name,
			Hash:       strings.ToLower(t.Hash),
			Size:       t.Size,
			IsPersonal: true,
			Info:       parseReleaseInfo(t.Name),
		}
		var best torBoxFile
		bestSet := false
		for _, f := range t.Files {
			name := f.ShortName
			if name == "" {
				name = f.Name
			}
			cand.Files = append(cand.Files, models.FileEntry{
				ID:       f.ID,
				Name:     name,
				Path:     f.Name,
				Size:     f.Size,
				Selected: true,
				Info:     parseReleaseInfo(name),
			})
			if isValidVideo(f.Name, f.Size, 0) && (!bestSet || f.Size > best.Size) {
				best = f
				bestSet = true
			}
		}
		if !bestSet {
			continue
		}
		cand.URL = c.fileReference(t.ID, best.ID)
		cand.Path = best.Name
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

// ResolveURL exchanges a requestdl reference for a fresh download link,
// pinned to the requesting client's IP.
func (c *TorBoxClient) ResolveURL(ctx context.Context, itemID, hostRef, clientIP string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("torbox API key not configured")
	}
	ref, err := url.Parse(hostRef)
	if err != nil {
		return "", fmt.Errorf("torbox: bad host reference: %w", err)
	}
	torrentID := ref.Query().Get("torrent_id")
	fileID := ref.Query().Get("file_id")
	if torrentID == "" || fileID == "" {
		return "", fmt.Errorf("torbox: host reference missing torrent or file id")
	}

	params := url.Values{}
	params.Set("token", c.apiKey)
	params.Set("torrent_id", torrentID)
	params.Set("file_id", fileID)
	if clientIP != "" {
		params.Set("user_ip", clientIP)
	}
	endpoint := c.baseURL + "/torrents/requestdl?" + params.Encode()
	var resp torBoxResponse[string]
	if err := doJSON(ctx, c.httpc, http.MethodGet, endpoint, c.apiKey, nil, &resp); err != nil {
		return "", fmt.Errorf("request download: %w", err)
	}
	if !resp.Success || resp.Data == "" {
		return "", fmt.Errorf("torbox: %s", resp.Detail)
	}
	return resp.Data, nil
}
