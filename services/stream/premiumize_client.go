package stream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"sootio/models"
)

// PremiumizeClient talks to the Premiumize.me API. Cloud items expose
// direct links, so resolution is a passthrough.
type PremiumizeClient struct {
	apiKey  string
	httpc   *http.Client
	baseURL string
}

var _ Provider = (*PremiumizeClient)(nil)
var _ Detailer = (*PremiumizeClient)(nil)

func NewPremiumizeClient(apiKey string) *PremiumizeClient {
	return &PremiumizeClient{
		apiKey:  strings.TrimSpace(apiKey),
		httpc:   newHTTPClient(),
		baseURL: "https://www.premiumize.me/api",
	}
}

func init() {
	RegisterProvider("premiumize", func(apiKey string) Provider {
		return NewPremiumizeClient(apiKey)
	})
}

func (c *PremiumizeClient) Name() string { return "premiumize" }

type premiumizeSearchResponse struct {
	Status  string           `json:"status"`
	Message string           `json:"message,omitempty"`
	Content []premiumizeItem `json:"content"`
}

type premiumizeItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Size       int64  `json:"size,omitempty"`
	Link       string `json:"link,omitempty"`
	StreamLink string `json:"stream_link,omitempty"`
	Path       string `json:"path,omitempty"`
}

type premiumizeDetailsResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Size       int64  `json:"size,omitempty"`
	Link       string `json:"link,omitempty"`
	StreamLink string `json:"stream_link,omitempty"`
	Path       string `json:"path,omitempty"`
}

func (c *PremiumizeClient) endpoint(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", c.apiKey)
	return c.baseURL + path + "?" + params.Encode()
}

// Search queries the cloud folder contents for files matching the key.
func (c *PremiumizeClient) Search(ctx context.Context, req SearchRequest) ([]models.Candidate, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("premiumize API key not configured")
	}
	params := url.Values{}
	params.Set("q", req.Key)
	var resp premiumizeSearchResponse
	if err := doJSON(ctx, c.httpc, http.MethodGet, c.endpoint("/folder/search", params), "", nil, &resp); err != nil {
		return nil, fmt.Errorf("folder search: %w", err)
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("premiumize: %s", resp.Message)
	}

	var candidates []models.Candidate
	for _, item := range resp.Content {
		if item.Type != "file" {
			continue
		}
		if !isVideoFile(item.Name) {
			continue
		}
		candidates = append(candidates, c.candidateFromItem(premiumizeDetailsResponse{
			ID:         item.ID,
			Name:       item.Name,
			Size:       item.Size,
			Link:       item.Link,
			StreamLink: item.StreamLink,
			Path:       item.Path,
		}))
	}
	return candidates, nil
}

func (c *PremiumizeClient) candidateFromItem(item premiumizeDetailsResponse) models.Candidate {
	link := item.StreamLink
	if link == "" {
		link = item.Link
	}
	return models.Candidate{
		Source:     c.Name(),
		ID:         item.ID,
		Name:       item.Name,
		Path:       item.Path,
		URL:        link,
		Size:       item.Size,
		IsPersonal: true,
		Info:       parseReleaseInfo(item.Name),
	}
}

// GetDetails fetches a single cloud item, refreshing its direct link.
func (c *PremiumizeClient) GetDetails(ctx context.Context, id string) (*models.Candidate, error) {
	params := url.Values{}
	params.Set("id", id)
	var resp premiumizeDetailsResponse
	if err := doJSON(ctx, c.httpc, http.MethodGet, c.endpoint("/item/details", params), "", nil, &resp); err != nil {
		return nil, fmt.Errorf("item details: %w", err)
	}
	if resp.Status != "" && resp.Status != "success" {
		return nil, fmt.Errorf("premiumize: %s", resp.Message)
	}
	cand := c.candidateFromItem(resp)
	return &cand, nil
}

// ResolveURL returns the host reference unchanged. Cloud links are
// already direct.
func (c *PremiumizeClient) ResolveURL(ctx context.Context, itemID, hostRef, clientIP string) (string, error) {
	if !IsPlayableReference(hostRef) {
		return "", fmt.Errorf("premiumize: not a playable reference")
	}
	return hostRef, nil
}
