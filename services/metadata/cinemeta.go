package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"sootio/models"
)

const cinemetaBaseURL = "https://v3-cinemeta.strem.io"

// Client fetches title metadata from the Cinemeta catalog.
type Client struct {
	httpc   *http.Client
	baseURL string
}

func NewClient(httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{httpc: httpc, baseURL: cinemetaBaseURL}
}

type cinemetaMetaResponse struct {
	Meta struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Year        string `json:"year"`
		ReleaseInfo string `json:"releaseInfo"`
	} `json:"meta"`
}

// yearLeadPattern pulls the first year out of values like "2019" or
// "2019-2023".
var yearLeadPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

func parseYear(raw string) int {
	match := yearLeadPattern.FindString(raw)
	if match == "" {
		return 0
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return year
}

// GetMeta resolves an IMDb id to its canonical name and release year.
func (c *Client) GetMeta(ctx context.Context, contentType models.ContentType, imdbID string) (*models.MetadataRecord, error) {
	endpoint := fmt.Sprintf("%s/meta/%s/%s.json", c.baseURL, contentType, url.PathEscape(imdbID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cinemeta request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("no metadata for %s", imdbID)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("cinemeta request failed: %s", resp.Status)
	}

	var payload cinemetaMetaResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("cinemeta decode failed: %w", err)
	}
	name := strings.TrimSpace(payload.Meta.Name)
	if name == "" {
		return nil, fmt.Errorf("no metadata for %s", imdbID)
	}

	year := parseYear(payload.Meta.Year)
	if year == 0 {
		year = parseYear(payload.Meta.ReleaseInfo)
	}
	return &models.MetadataRecord{Name: name, Year: year}, nil
}
