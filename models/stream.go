package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ContentType identifies the kind of title being requested.
type ContentType string

const (
	ContentTypeMovie  ContentType = "movie"
	ContentTypeSeries ContentType = "series"
)

// ContentID identifies a movie or a specific series episode.
// Series ids arrive as "ttXXXXXXX:season:episode".
type ContentID struct {
	Type    ContentType
	IMDBID  string
	Season  int
	Episode int
}

// ParseContentID splits an inbound id into its parts. Movie ids are used
// verbatim; series ids must carry season and episode segments.
func ParseContentID(contentType, id string) (ContentID, error) {
	ct := ContentType(strings.ToLower(strings.TrimSpace(contentType)))
	switch ct {
	case ContentTypeMovie:
		return ContentID{Type: ct, IMDBID: strings.TrimSpace(id)}, nil
	case ContentTypeSeries:
		parts := strings.Split(id, ":")
		if len(parts) != 3 {
			return ContentID{}, fmt.Errorf("series id %q must be imdb:season:episode", id)
		}
		season, err := strconv.Atoi(parts[1])
		if err != nil {
			return ContentID{}, fmt.Errorf("invalid season in id %q", id)
		}
		episode, err := strconv.Atoi(parts[2])
		if err != nil {
			return ContentID{}, fmt.Errorf("invalid episode in id %q", id)
		}
		return ContentID{Type: ct, IMDBID: parts[0], Season: season, Episode: episode}, nil
	default:
		return ContentID{}, fmt.Errorf("unsupported content type %q", contentType)
	}
}

// String reassembles the full request id, including season/episode for series.
func (c ContentID) String() string {
	if c.Type == ContentTypeSeries {
		return fmt.Sprintf("%s:%d:%d", c.IMDBID, c.Season, c.Episode)
	}
	return c.IMDBID
}

// MetadataRecord is the canonical title/year resolved for one request.
type MetadataRecord struct {
	Name string
	Year int
}

// ParsedInfo carries structured metadata extracted from a release name
// by a provider adapter.
type ParsedInfo struct {
	Title      string
	Year       int
	Resolution string
	Season     int
	Episode    int
	Seasons    []int
}

// FileEntry is one member of a multi-file candidate (e.g. a torrent holding
// several videos).
type FileEntry struct {
	ID       int
	Name     string
	Path     string
	Size     int64
	Selected bool
	Info     ParsedInfo
}

// Candidate is the normalized provider search result every downstream
// component operates on. Adapters populate whichever fields their backend
// exposes; absent fields stay zero.
type Candidate struct {
	Source          string // provider identifier, e.g. "alldebrid"
	ID              string
	Name            string
	Title           string
	SearchableName  string
	Path            string
	URL             string // host reference: direct link or magnet
	Hash            string
	Tracker         string
	Size            int64
	IsPersonal      bool
	BypassFiltering bool
	Info            ParsedInfo
	Files           []FileEntry
}

// DisplayFields returns the candidate's title-bearing strings in preference
// order, skipping empties.
func (c Candidate) DisplayFields() []string {
	var fields []string
	for _, f := range []string{c.Name, c.Title, c.SearchableName, c.Path, c.Info.Title} {
		if f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// EpisodeHint pins which file inside a multi-file candidate corresponds to a
// requested episode. It travels base64-encoded inside the host reference and
// is only consumed at resolution time.
type EpisodeHint struct {
	FileID   *int   `json:"fileId,omitempty"`
	FilePath string `json:"filePath,omitempty"`
	Season   int    `json:"season,omitempty"`
	Episode  int    `json:"episode,omitempty"`
}

// BehaviorHints carries player-facing grouping hints.
type BehaviorHints struct {
	BingeGroup string `json:"bingeGroup,omitempty"`
}

// StreamDescriptor is the externally visible result of aggregation.
type StreamDescriptor struct {
	Name            string        `json:"name"`
	Title           string        `json:"title"`
	URL             string        `json:"url"`
	BehaviorHints   BehaviorHints `json:"behaviorHints"`
	BypassFiltering bool          `json:"bypassFiltering,omitempty"`
}
