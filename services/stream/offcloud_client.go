package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"sootio/models"
	"sootio/utils/medianame"
)

// OffcloudClient talks to the Offcloud API. Finished cloud downloads are
// served from per-request download URLs.
type OffcloudClient struct {
	apiKey  string
	httpc   *http.Client
	baseURL string
}

var _ Provider = (*OffcloudClient)(nil)
var _ Detailer = (*OffcloudClient)(nil)

func NewOffcloudClient(apiKey string) *OffcloudClient {
	return &OffcloudClient{
		apiKey:  strings.TrimSpace(apiKey),
		httpc:   newHTTPClient(),
		baseURL: "https://offcloud.com/api",
	}
}

func init() {
	RegisterProvider("offcloud", func(apiKey string) Provider {
		return NewOffcloudClient(apiKey)
	})
}

func (c *OffcloudClient) Name() string { return "offcloud" }

type offcloudHistoryItem struct {
	RequestID    string `json:"requestId"`
	FileName     string `json:"fileName"`
	Status       string `json:"status"`
	Server       string `json:"server"`
	FileSize     int64  `json:"fileSize,omitempty"`
	IsDirectory  bool   `json:"isDirectory,omitempty"`
	OriginalLink string `json:"originalLink,omitempty"`
}

func (c *OffcloudClient) endpoint(p string) string {
	return fmt.Sprintf("%s%s?key=%s", c.baseURL, p, url.QueryEscape(c.apiKey))
}

func (c *OffcloudClient) downloadURL(item offcloudHistoryItem, fileName string) string {
	server := item.Server
	if server == "" {
		server = "offcloud"
	}
	return fmt.Sprintf("https://%s.offcloud.com/cloud/download/%s/%s",
		server, item.RequestID, url.PathEscape(fileName))
}

// Search lists the cloud download history and keeps finished entries
// matching the key. Directory downloads carry their archive name, which
// rarely looks like a release, so they skip the title filters and are
// resolved by exploring their contents.
func (c *OffcloudClient) Search(ctx context.Context, req SearchRequest) ([]models.Candidate, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("offcloud API key not configured")
	}
	var items []offcloudHistoryItem
	if err := doJSON(ctx, c.httpc, http.MethodGet, c.endpoint("/cloud/history"), "", nil, &items); err != nil {
		return nil, fmt.Errorf("cloud history: %w", err)
	}

	var candidates []models.Candidate
	for _, item := range items {
		if item.Status != "downloaded" {
			continue
		}
		if !matchesSearchKey(item.FileName, req.Key, req.MinScore) {
			continue
		}
		cand := models.Candidate{
			Source:     c.Name(),
			ID:         item.RequestID,
			Name:       item.FileName,
			Size:       item.FileSize,
			IsPersonal: true,
			Info:       parseReleaseInfo(item.FileName),
		}
		if item.IsDirectory || !medianame.HasQualityMarkers(item.FileName) {
			cand.BypassFiltering = true
			cand.SearchableName = item.FileName
		}
		if !item.IsDirectory && isVideoFile(item.FileName) {
			cand.URL = c.downloadURL(item, item.FileName)
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

// GetDetails explores a cloud download and picks its best video file.
func (c *OffcloudClient) GetDetails(ctx context.Context, id string) (*models.Candidate, error) {
	var links []string
	if err := doJSON(ctx, c.httpc, http.MethodGet, c.endpoint("/cloud/explore/"+url.PathEscape(id)), "", nil, &links); err != nil {
		return nil, fmt.Errorf("cloud explore: %w", err)
	}
	cand := &models.Candidate{
		Source:     c.Name(),
		ID:         id,
		IsPersonal: true,
	}
	for i, link := range links {
		name := path.Base(link)
		if decoded, err := url.PathUnescape(name); err == nil {
			name = decoded
		}
		cand.Files = append(cand.Files, models.FileEntry{
			ID:   i + 1,
			Name: name,
			Path: name,
			Info: parseReleaseInfo(name),
		})
		if cand.URL == "" && isVideoFile(name) {
			cand.URL = link
			cand.Name = name
			cand.Path = name
			cand.Info = parseReleaseInfo(name)
		}
	}
	if cand.URL == "" {
		return nil, fmt.Errorf("cloud item %s has no playable file", id)
	}
	return cand, nil
}

// ResolveURL passes finished download links through and explores
// anything else.
func (c *OffcloudClient) ResolveURL(ctx context.Context, itemID, hostRef, clientIP string) (string, error) {
	if strings.Contains(hostRef, "/cloud/download/") && IsPlayableReference(hostRef) {
		return hostRef, nil
	}
	if itemID == "" {
		return "", fmt.Errorf("offcloud: missing item id")
	}
	cand, err := c.GetDetails(ctx, itemID)
	if err != nil {
		return "", err
	}
	return cand.URL, nil
}
