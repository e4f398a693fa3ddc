package stream

import (
	"fmt"
	"net/url"
	"strings"

	"sootio/models"
	"sootio/utils/medianame"
)

// streamNameMap labels streams by provider identity. Unknown sources fall
// back to the generic tag.
var streamNameMap = map[string]string{
	"debridlink": "[DL+] Sootio",
	"realdebrid": "[RD+] Sootio",
	"alldebrid":  "[AD+] Sootio",
	"premiumize": "[PM+] Sootio",
	"torbox":     "[TB+] Sootio",
	"offcloud":   "[OC+] Sootio",
}

const defaultStreamName = "[DS+] Sootio"

// IsPlayableReference reports whether a host reference can possibly be
// turned into playback: a direct http(s) link or a magnet.
func IsPlayableReference(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == "undefined" || ref == "null" {
		return false
	}
	return strings.HasPrefix(ref, "http://") ||
		strings.HasPrefix(ref, "https://") ||
		strings.HasPrefix(ref, "magnet:")
}

// Formatter maps ready candidates to externally visible stream descriptors.
type Formatter struct {
	// PublicHost is the externally reachable base for proxied resolve URLs.
	// Empty means raw host references are handed out.
	PublicHost string
}

func NewFormatter(publicHost string) *Formatter {
	return &Formatter{PublicHost: strings.TrimRight(publicHost, "/")}
}

// Stream builds the descriptor for one candidate, or nil when the candidate
// carries nothing playable.
func (f *Formatter) Stream(c models.Candidate, contentType models.ContentType, user UserConfig) *models.StreamDescriptor {
	if !IsPlayableReference(c.URL) {
		return nil
	}

	icon := "💾"
	personalTag := ""
	if c.IsPersonal {
		icon = "☁️"
		personalTag = "[Cloud] "
	}

	displayName := firstNonEmpty(c.Name, c.Title, "Unknown")
	// Release names inside archives are sometimes bare ("movie.mkv") while
	// the archive itself carries the informative name. Prefer the archive's
	// leading token in that case.
	if c.SearchableName != "" && c.Name != "" && !medianame.HasQualityMarkers(c.Name) {
		if token := strings.Fields(c.SearchableName); len(token) > 0 {
			displayName = token[0]
		}
	}

	title := personalTag + displayName
	if contentType == models.ContentTypeSeries && c.Name != "" && c.Name != displayName {
		title += "\n" + c.Name
	}
	trackerInfo := ""
	if c.Tracker != "" {
		trackerInfo = " | " + c.Tracker
	}
	title += "\n" + icon + " " + medianame.FormatSize(c.Size) + trackerInfo

	name, ok := streamNameMap[c.Source]
	if !ok {
		name = defaultStreamName
	}
	name += "\n" + firstNonEmpty(c.Info.Resolution, "N/A")

	return &models.StreamDescriptor{
		Name:  name,
		Title: title,
		URL:   f.outwardURL(c, user),
		BehaviorHints: models.BehaviorHints{
			BingeGroup: fmt.Sprintf("%s|%s", c.Source, firstNonEmpty(c.Hash, c.ID, "unknown")),
		},
		BypassFiltering: c.BypassFiltering,
	}
}

// outwardURL decides between handing out the candidate's link verbatim and
// routing playback through the proxied resolve endpoint.
func (f *Formatter) outwardURL(c models.Candidate, user UserConfig) string {
	// OffCloud cloud-download links are already directly fetchable.
	if c.Source == "offcloud" && strings.Contains(c.URL, "offcloud.com/cloud/download/") {
		return c.URL
	}
	if f.PublicHost == "" || !strings.HasPrefix(f.PublicHost, "http") {
		return c.URL
	}
	// PathEscape, not QueryEscape: these land in a path segment, and the
	// query form's space-to-plus does not survive path decoding.
	return fmt.Sprintf("%s/resolve/%s/%s/%s",
		f.PublicHost,
		c.Source,
		url.PathEscape(user.APIKey()),
		url.PathEscape(c.URL))
}
