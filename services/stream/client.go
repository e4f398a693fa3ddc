package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"sootio/models"
	"sootio/utils/medianame"
)

const clientAgent = "sootio"

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// doJSON performs a request with bearer auth and decodes the JSON body into v.
func doJSON(ctx context.Context, httpc *http.Client, method, endpoint, apiKey string, form url.Values, v any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := httpc.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("authentication failed: invalid API key")
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("request failed: %s", resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode response: %w (body: %s)", err, truncateBody(raw))
	}
	return nil
}

func truncateBody(raw []byte) string {
	const limit = 256
	if len(raw) > limit {
		return string(raw[:limit]) + "..."
	}
	return string(raw)
}

var (
	releaseYearPattern    = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	releaseSeasonEpisode  = regexp.MustCompile(`(?i)s(\d{1,2})\s*e(\d{1,2})`)
	releaseSeasonOnly     = regexp.MustCompile(`(?i)\bs(?:eason)?[\s._]*(\d{1,2})\b`)
	releaseEpisodeCompact = regexp.MustCompile(`(?i)\b(\d{1,2})x(\d{1,2})\b`)
)

// parseReleaseInfo extracts what structured metadata a release name gives
// away. Adapters call this so downstream filters never re-parse names.
func parseReleaseInfo(name string) models.ParsedInfo {
	info := models.ParsedInfo{}
	if name == "" {
		return info
	}
	if res := medianame.ResolutionFromName(name); res != "other" {
		info.Resolution = res
	}
	if m := releaseSeasonEpisode.FindStringSubmatch(name); len(m) == 3 {
		info.Season, _ = strconv.Atoi(m[1])
		info.Episode, _ = strconv.Atoi(m[2])
	} else if m := releaseEpisodeCompact.FindStringSubmatch(name); len(m) == 3 {
		info.Season, _ = strconv.Atoi(m[1])
		info.Episode, _ = strconv.Atoi(m[2])
	} else if m := releaseSeasonOnly.FindStringSubmatch(name); len(m) == 2 {
		season, _ := strconv.Atoi(m[1])
		if season > 0 {
			info.Seasons = []int{season}
		}
	}
	if m := releaseYearPattern.FindString(name); m != "" {
		info.Year, _ = strconv.Atoi(m)
	}
	return info
}

// searchKeyScore rates a name against the search key as the fraction of
// normalized key tokens appearing word-bounded in the name, 0 to 1. An empty
// key scores 1: the caller has nothing to gate on.
func searchKeyScore(name, key string) float64 {
	tokens := strings.Fields(NormalizeTitle(key))
	if len(tokens) == 0 {
		return 1
	}
	normName := " " + NormalizeTitle(name) + " "
	hits := 0
	for _, tok := range tokens {
		if strings.Contains(normName, " "+tok+" ") {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens))
}

// matchesSearchKey is the lightweight relevance gate adapters apply when
// their backend has no server-side search. The threshold comes from the
// request; downstream title/year/episode filters do the precise work.
func matchesSearchKey(name, key string, minScore float64) bool {
	return searchKeyScore(name, key) > minScore
}

func magnetFromHash(hash, name string) string {
	magnet := "magnet:?xt=urn:btih:" + strings.ToLower(hash)
	if name != "" {
		magnet += "&dn=" + url.QueryEscape(name)
	}
	return magnet
}
