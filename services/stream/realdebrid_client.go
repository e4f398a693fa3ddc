package stream

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"sootio/models"
)

// RealDebridClient talks to the Real-Debrid REST API. It implements both the
// Provider contract and the MagnetClient workflow the resolver drives.
type RealDebridClient struct {
	apiKey  string
	httpc   *http.Client
	baseURL string
}

var (
	_ Provider     = (*RealDebridClient)(nil)
	_ MagnetClient = (*RealDebridClient)(nil)
)

func NewRealDebridClient(apiKey string) *RealDebridClient {
	return &RealDebridClient{
		apiKey:  strings.TrimSpace(apiKey),
		httpc:   newHTTPClient(),
		baseURL: "https://api.real-debrid.com/rest/1.0",
	}
}

func init() {
	RegisterProvider("realdebrid", func(apiKey string) Provider {
		return NewRealDebridClient(apiKey)
	})
}

func (c *RealDebridClient) Name() string { return "realdebrid" }

type realDebridTorrent struct {
	ID       string   `json:"id"`
	Filename string   `json:"filename"`
	Hash     string   `json:"hash"`
	Bytes    int64    `json:"bytes"`
	Status   string   `json:"status"`
	Links    []string `json:"links"`
}

type realDebridDownload struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Filesize int64  `json:"filesize"`
	Link     string `json:"link"`
	Download string `json:"download"`
	Host     string `json:"host"`
}

type realDebridTorrentInfo struct {
	ID       string               `json:"id"`
	Filename string               `json:"filename"`
	Hash     string               `json:"hash"`
	Status   string               `json:"status"`
	Files    []realDebridFileInfo `json:"files"`
	Links    []string             `json:"links"`
}

type realDebridFileInfo struct {
	ID       int    `json:"id"`
	Path     string `json:"path"`
	Bytes    int64  `json:"bytes"`
	Selected int    `json:"selected"`
}

type realDebridAddMagnet struct {
	ID  string `json:"id"`
	URI string `json:"uri"`
}

type realDebridUnrestrict struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Filesize int64  `json:"filesize"`
	Download string `json:"download"`
}

// Search lists the account's cloud: completed torrents become magnet-backed
// candidates (carrying an episode hint for series requests) and finished
// downloads become personal, directly resolvable candidates.
func (c *RealDebridClient) Search(ctx context.Context, req SearchRequest) ([]models.Candidate, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("realdebrid API key not configured")
	}

	var candidates []models.Candidate

	var torrents []realDebridTorrent
	if err := doJSON(ctx, c.httpc, http.MethodGet, c.baseURL+"/torrents?limit=100", c.apiKey, nil, &torrents); err != nil {
		return nil, fmt.Errorf("list torrents: %w", err)
	}
	for _, t := range torrents {
		if !strings.EqualFold(t.Status, "downloaded") || t.Hash == "" {
			continue
		}
		if !matchesSearchKey(t.Filename, req.Key, req.MinScore) {
			continue
		}
		hostRef := magnetFromHash(t.Hash, t.Filename)
		if req.Type == models.ContentTypeSeries {
			hostRef = EncodeHostReference(hostRef, models.EpisodeHint{
				Season:  req.ID.Season,
				Episode: req.ID.Episode,
			})
		}
		candidates = append(candidates, models.Candidate{
			Source:     c.Name(),
			ID:         t.ID,
			Name:       t.Filename,
			URL:        hostRef,
			Hash:       strings.ToLower(t.Hash),
			Size:       t.Bytes,
			IsPersonal: true,
			Info:       parseReleaseInfo(t.Filename),
		})
	}

	var downloads []realDebridDownload
	if err := doJSON(ctx, c.httpc, http.MethodGet, c.baseURL+"/downloads?limit=100", c.apiKey, nil, &downloads); err != nil {
		log.Printf("[realdebrid] listing downloads failed, continuing with torrents only: %v", err)
	} else {
		for _, d := range downloads {
			ref := firstNonEmpty(d.Link, d.Download)
			if !IsPlayableReference(ref) {
				continue
			}
			if !matchesSearchKey(d.Filename, req.Key, req.MinScore) {
				continue
			}
			candidates = append(candidates, models.Candidate{
				Source:     c.Name(),
				ID:         d.ID,
				Name:       d.Filename,
				URL:        ref,
				Size:       d.Filesize,
				Tracker:    d.Host,
				IsPersonal: true,
				Info:       parseReleaseInfo(d.Filename),
			})
		}
	}

	return candidates, nil
}

// ResolveURL unrestricts a non-magnet reference. Magnet references go
// through the resolver's job workflow instead.
func (c *RealDebridClient) ResolveURL(ctx context.Context, itemID, hostRef, clientIP string) (string, error) {
	return c.Unrestrict(ctx, hostRef, clientIP)
}

// AddMagnet registers a magnet with the account and returns the job id.
func (c *RealDebridClient) AddMagnet(ctx context.Context, magnet string) (string, error) {
	form := url.Values{}
	form.Set("magnet", magnet)
	var resp realDebridAddMagnet
	if err := doJSON(ctx, c.httpc, http.MethodPost, c.baseURL+"/torrents/addMagnet", c.apiKey, form, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("no torrent id returned")
	}
	log.Printf("[realdebrid] magnet added: id=%s", resp.ID)
	return resp.ID, nil
}

// SelectAllFiles marks every file in the job for retrieval.
func (c *RealDebridClient) SelectAllFiles(ctx context.Context, jobID string) error {
	form := url.Values{}
	form.Set("files", "all")
	return doJSON(ctx, c.httpc, http.MethodPost, c.baseURL+"/torrents/selectFiles/"+url.PathEscape(jobID), c.apiKey, form, nil)
}

// JobInfo fetches the current job state, normalized for the resolver.
func (c *RealDebridClient) JobInfo(ctx context.Context, jobID string) (*MagnetJob, error) {
	var info realDebridTorrentInfo
	if err := doJSON(ctx, c.httpc, http.MethodGet, c.baseURL+"/torrents/info/"+url.PathEscape(jobID), c.apiKey, nil, &info); err != nil {
		return nil, err
	}
	job := &MagnetJob{
		ID:       info.ID,
		Filename: info.Filename,
		Status:   info.Status,
		Links:    info.Links,
	}
	for _, f := range info.Files {
		job.Files = append(job.Files, models.FileEntry{
			ID:       f.ID,
			Path:     f.Path,
			Size:     f.Bytes,
			Selected: f.Selected == 1,
			Info:     parseReleaseInfo(f.Path),
		})
	}
	return job, nil
}

// DeleteJob removes the torrent from the account.
func (c *RealDebridClient) DeleteJob(ctx context.Context, jobID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/torrents/delete/"+url.PathEscape(jobID), nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete failed: %s", resp.Status)
	}
	log.Printf("[realdebrid] torrent %s deleted", jobID)
	return nil
}

// Unrestrict exchanges a restricted link for a direct download URL. The
// caller's address is forwarded where Real-Debrid requires it.
func (c *RealDebridClient) Unrestrict(ctx context.Context, link, clientIP string) (string, error) {
	form := url.Values{}
	form.Set("link", link)
	if clientIP != "" {
		form.Set("ip", clientIP)
	}
	var resp realDebridUnrestrict
	if err := doJSON(ctx, c.httpc, http.MethodPost, c.baseURL+"/unrestrict/link", c.apiKey, form, &resp); err != nil {
		return "", err
	}
	if resp.Download == "" {
		return "", fmt.Errorf("unrestrict returned no download URL")
	}
	return resp.Download, nil
}
