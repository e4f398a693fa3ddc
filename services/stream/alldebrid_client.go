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

// AllDebridClient talks to the AllDebrid v4 API.
type AllDebridClient struct {
	apiKey  string
	httpc   *http.Client
	baseURL string
	agent   string
}

var _ Provider = (*AllDebridClient)(nil)
var _ Detailer = (*AllDebridClient)(nil)

func NewAllDebridClient(apiKey string) *AllDebridClient {
	return &AllDebridClient{
		apiKey:  strings.TrimSpace(apiKey),
		httpc:   newHTTPClient(),
		baseURL: "https://api.alldebrid.com/v4",
		agent:   clientAgent,
	}
}

func init() {
	RegisterProvider("alldebrid", func(apiKey string) Provider {
		return NewAllDebridClient(apiKey)
	})
}

func (c *AllDebridClient) Name() string { return "alldebrid" }

// allDebridResponse is the generic API response wrapper.
type allDebridResponse[T any] struct {
	Status string `json:"status"`
	Data   T      `json:"data,omitempty"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type allDebridMagnetStatus struct {
	ID         int                 `json:"id"`
	Filename   string              `json:"filename"`
	Hash       string              `json:"hash,omitempty"`
	Size       int64               `json:"size"`
	StatusCode int                 `json:"statusCode"`
	Links      []allDebridLink     `json:"links,omitempty"`
	Files      []allDebridFileNode `json:"files,omitempty"`
}

type allDebridLink struct {
	Link     string `json:"link"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// allDebridFileNode is a file or directory in the v4.1 nested tree.
type allDebridFileNode struct {
	N string              `json:"n"`
	S int64               `json:"s,omitempty"`
	L string              `json:"l,omitempty"`
	E []allDebridFileNode `json:"e,omitempty"`
}

type allDebridStatusData struct {
	Magnets []allDebridMagnetStatus `json:"magnets"`
}

type allDebridUnlockData struct {
	Link     string `json:"link"`
	Filename string `json:"filename"`
	Filesize int64  `json:"filesize"`
	Delayed  int    `json:"delayed,omitempty"`
}

const allDebridStatusReady = 4

func (c *AllDebridClient) checkResponse(status string, errInfo *struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}) error {
	if status == "success" {
		return nil
	}
	if errInfo != nil {
		return fmt.Errorf("alldebrid: %s", errInfo.Message)
	}
	return fmt.Errorf("alldebrid: unknown error")
}

// Search lists the account's ready magnets and keeps those matching the
// search key.
func (c *AllDebridClient) Search(ctx context.Context, req SearchRequest) ([]models.Candidate, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("alldebrid API key not configured")
	}
	endpoint := fmt.Sprintf("%s/magnet/status?agent=%s", c.baseURL, url.QueryEscape(c.agent))
	var resp allDebridResponse[allDebridStatusData]
	if err := doJSON(ctx, c.httpc, http.MethodGet, endpoint, c.apiKey, nil, &resp); err != nil {
		return nil, fmt.Errorf("magnet status: %w", err)
	}
	if err := c.checkResponse(resp.Status, resp.Error); err != nil {
		return nil, err
	}

	var candidates []models.Candidate
	for _, m := range resp.Data.Magnets {
		if m.StatusCode != allDebridStatusReady {
			continue
		}
		if !matchesSearchKey(m.Filename, req.Key, req.MinScore) {
			continue
		}
		candidates = append(candidates, models.Candidate{
			Source:     c.Name(),
			ID:         strconv.Itoa(m.ID),
			Name:       m.Filename,
			Hash:       strings.ToLower(m.Hash),
			Size:       m.Size,
			IsPersonal: true,
			Info:       parseReleaseInfo(m.Filename),
		})
	}
	return candidates, nil
}

// GetDetails expands one magnet into its file list. The candidate's host
// reference becomes the restricted link of its largest valid video, to be
// unlocked at resolution time.
func (c *AllDebridClient) GetDetails(ctx context.Context, id string) (*models.Candidate, error) {
	endpoint := fmt.Sprintf("%s/magnet/status?agent=%s&id=%s",
		strings.Replace(c.baseURL, "/v4", "/v4.1", 1),
		url.QueryEscape(c.agent),
		url.QueryEscape(id))
	var resp allDebridResponse[allDebridStatusData]
	if err := doJSON(ctx, c.httpc, http.MethodGet, endpoint, c.apiKey, nil, &resp); err != nil {
		return nil, fmt.Errorf("magnet details: %w", err)
	}
	if err := c.checkResponse(resp.Status, resp.Error); err != nil {
		return nil, err
	}
	if len(resp.Data.Magnets) == 0 {
		return nil, fmt.Errorf("magnet %s not found", id)
	}
	m := resp.Data.Magnets[0]

	cand := &models.Candidate{
		Source:     c.Name(),
		ID:         strconv.Itoa(m.ID),
		Name:       m.Filename,
		Hash:       strings.ToLower(m.Hash),
		Size:       m.Size,
		IsPersonal: true,
		Info:       parseReleaseInfo(m.Filename),
	}

	type leaf struct {
		path string
		size int64
		link string
	}
	var leaves []leaf
	if len(m.Files) > 0 {
		var walk func(nodes []allDebridFileNode, base string)
		walk = func(nodes []allDebridFileNode, base string) {
			for _, node := range nodes {
				p := node.N
				if base != "" {
					p = base + "/" + node.N
				}
				if len(node.E) > 0 {
					walk(node.E, p)
					continue
				}
				if node.L != "" {
					leaves = append(leaves, leaf{path: p, size: node.S, link: node.L})
				}
			}
		}
		walk(m.Files, "")
	} else {
		for _, l := range m.Links {
			leaves = append(leaves, leaf{path: l.Filename, size: l.Size, link: l.Link})
		}
	}

	var best leaf
	for i, l := range leaves {
		cand.Files = append(cand.Files, models.FileEntry{
			ID:       i + 1,
			Path:     l.path,
			Size:     l.size,
			Selected: true,
			Info:     parseReleaseInfo(l.path),
		})
		if isValidVideo(l.path, l.size, 0) && l.size >= best.size {
			best = l
		}
	}
	if best.link == "" {
		return nil, fmt.Errorf("magnet %s has no playable file", id)
	}
	cand.URL = best.link
	cand.Path = best.path
	return cand, nil
}

// ResolveURL unlocks a restricted AllDebrid link.
func (c *AllDebridClient) ResolveURL(ctx context.Context, itemID, hostRef, clientIP string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("alldebrid API key not configured")
	}
	form := url.Values{}
	form.Set("agent", c.agent)
	form.Set("link", hostRef)
	var resp allDebridResponse[allDebridUnlockData]
	if err := doJSON(ctx, c.httpc, http.MethodPost, c.baseURL+"/link/unlock", c.apiKey, form, &resp); err != nil {
		return "", fmt.Errorf("unlock: %w", err)
	}
	if err := c.checkResponse(resp.Status, resp.Error); err != nil {
		return "", err
	}
	if resp.Data.Delayed > 0 {
		return "", fmt.Errorf("link is being processed, try again in %d seconds", resp.Data.Delayed)
	}
	if resp.Data.Link == "" {
		return "", fmt.Errorf("unlock returned no link")
	}
	return resp.Data.Link, nil
}
