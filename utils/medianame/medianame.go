// Package medianame extracts quality tokens from release names.
package medianame

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	resolution2160 = regexp.MustCompile(`(?i)\b(2160p|4k|uhd)\b`)
	resolution1080 = regexp.MustCompile(`(?i)\b1080p?\b`)
	resolution720  = regexp.MustCompile(`(?i)\b720p?\b`)
	resolution480  = regexp.MustCompile(`(?i)\b(480p?|sd)\b`)

	// qualityMarkerPatterns flag names that already carry release metadata.
	// A name matching none of these is considered uninformative.
	qualityMarkerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)s\d{2}e\d{2}`),
		regexp.MustCompile(`(?i)1080p|720p|480p|2160p|4k`),
		regexp.MustCompile(`(?i)bluray|web|hdtv|dvd|brrip`),
		regexp.MustCompile(`(?i)x264|x265|h264|h265|hevc|av1`),
		regexp.MustCompile(`(?i)remaster|director|extended`),
		regexp.MustCompile(`\d{4}`),
	}
)

// ResolutionFromName derives a canonical resolution token from a release
// name. Unrecognized names yield "other".
func ResolutionFromName(name string) string {
	switch {
	case resolution2160.MatchString(name):
		return "2160p"
	case resolution1080.MatchString(name):
		return "1080p"
	case resolution720.MatchString(name):
		return "720p"
	case resolution480.MatchString(name):
		return "480p"
	default:
		return "other"
	}
}

// HasQualityMarkers reports whether a release name carries any recognizable
// quality, codec, source or year tag.
func HasQualityMarkers(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	for _, p := range qualityMarkerPatterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

// FormatSize renders a byte count for display. Zero or negative sizes render
// as "N/A" since several providers omit sizes entirely.
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "N/A"
	}
	const (
		kb = 1 << 10
		mb = 1 << 20
		gb = 1 << 30
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
