package stream

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"

	"sootio/models"
)

var (
	apostrophePattern = regexp.MustCompile("['’`]")
	nonAlnumPattern   = regexp.MustCompile(`[^a-z0-9]+`)

	// Any explicit SxxEyy code, regardless of which episode it names. Used to
	// decide whether bare episode markers are unambiguous.
	anyEpisodeCodePattern = regexp.MustCompile(`(?i)s[\W_]*\d{1,2}[\W_]*e[\W_]*\d{1,2}`)
)

// NormalizeTitle folds a title to a canonical comparable form: diacritics
// romanized, lowercased, apostrophes dropped, every other non-alphanumeric
// run collapsed to a single space.
func NormalizeTitle(s string) string {
	lowered := strings.ToLower(unidecode.Unidecode(s))
	lowered = apostrophePattern.ReplaceAllString(lowered, "")
	lowered = nonAlnumPattern.ReplaceAllString(lowered, " ")
	return strings.TrimSpace(lowered)
}

// TitleMatches compares two titles after normalization. Absent data on
// either side counts as a match; callers must not reject a candidate just
// because a provider left the field empty.
func TitleMatches(candidateTitle, canonicalName string) bool {
	if candidateTitle == "" || canonicalName == "" {
		return true
	}
	return NormalizeTitle(candidateTitle) == NormalizeTitle(canonicalName)
}

// MatchesSeriesTitle checks the candidate's title-bearing fields against the
// canonical series name. Release names usually carry episode and quality
// tags after the title, so the canonical name only has to appear as a
// leading or whole-word token sequence.
func MatchesSeriesTitle(c models.Candidate, canonicalName string) bool {
	if canonicalName == "" {
		return true
	}
	want := NormalizeTitle(canonicalName)
	if want == "" {
		return true
	}
	fields := c.DisplayFields()
	if len(fields) == 0 {
		return true
	}
	for _, field := range fields {
		got := NormalizeTitle(field)
		if got == want ||
			strings.HasPrefix(got, want+" ") ||
			strings.Contains(got, " "+want+" ") ||
			strings.HasSuffix(got, " "+want) {
			return true
		}
	}
	return false
}

// episodeMarkerPatterns builds the marker shapes recognized for one
// season/episode pair: SxxEyy with flexible separators, the NxMM shorthand,
// and bare Eyy / "episode N" forms.
func episodeMarkerPatterns(season, episode int) (strict, bare []*regexp.Regexp) {
	strict = []*regexp.Regexp{
		regexp.MustCompile(fmt.Sprintf(`(?i)(?:^|[\W_])s[\W_]*0?%d[\W_]*e[\W_]*0?%d(?:[\W_]|$)`, season, episode)),
		regexp.MustCompile(fmt.Sprintf(`(?i)(?:^|[\W_])%d[\W_]*x[\W_]*0?%d(?:[\W_]|$)`, season, episode)),
	}
	bare = []*regexp.Regexp{
		regexp.MustCompile(fmt.Sprintf(`(?i)(?:^|[\W_])ep?\.?\s?0?%d(?:[\W_]|$)`, episode)),
		regexp.MustCompile(fmt.Sprintf(`(?i)episode\s*0?%d(?:[\W_]|$)`, episode)),
	}
	return strict, bare
}

// HasEpisodeMarker reports whether text names the given season/episode.
// Markers match on separator boundaries only, so S01E02 never matches inside
// S01E20. Bare episode forms (E02, "episode 2") are trusted only when the
// text carries no explicit SxxEyy code at all.
func HasEpisodeMarker(text string, season, episode int) bool {
	if strings.TrimSpace(text) == "" || season <= 0 || episode <= 0 {
		return false
	}
	strict, bare := episodeMarkerPatterns(season, episode)
	for _, p := range strict {
		if p.MatchString(text) {
			return true
		}
	}
	if anyEpisodeCodePattern.MatchString(text) {
		return false
	}
	for _, p := range bare {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// FilterSeason accepts a candidate for a requested season. Structured season
// data wins; otherwise the title is gated against the canonical name when
// one is known. Candidates with no usable signal pass: provider metadata is
// frequently incomplete and ranking is the second net.
func FilterSeason(c models.Candidate, season int, meta models.MetadataRecord) bool {
	if c.BypassFiltering {
		return true
	}
	if c.Info.Season != 0 && c.Info.Season == season {
		return true
	}
	for _, s := range c.Info.Seasons {
		if s == season {
			return true
		}
	}
	if meta.Name != "" {
		candidate := firstNonEmpty(c.Info.Title, c.Title, c.Name, c.SearchableName, c.Path)
		if !TitleMatches(candidate, meta.Name) {
			return false
		}
	}
	return true
}

// FilterEpisode is the post-detail gate: the candidate must look like the
// requested series, and either a file with structured season/episode data
// must match exactly, or some textual field must carry an episode marker.
func FilterEpisode(detail models.Candidate, season, episode int, meta models.MetadataRecord) bool {
	if detail.BypassFiltering {
		return true
	}
	if meta.Name != "" && !MatchesSeriesTitle(detail, meta.Name) {
		return false
	}

	structured := false
	for _, f := range detail.Files {
		if f.Info.Season == 0 && f.Info.Episode == 0 {
			continue
		}
		structured = true
		if f.Info.Season == season && f.Info.Episode == episode {
			return true
		}
	}
	if structured {
		// Files carry structured data and none of it names this episode.
		return false
	}

	for _, text := range textPool(detail) {
		if HasEpisodeMarker(text, season, episode) {
			return true
		}
	}
	return false
}

// FilterDownloadEpisode gates candidates that arrive already expanded (cloud
// downloads, id-driven searches) where no separate detail call happens.
func FilterDownloadEpisode(d models.Candidate, season, episode int, meta models.MetadataRecord) bool {
	if d.BypassFiltering {
		return true
	}
	if d.Info.Season != 0 && d.Info.Episode != 0 {
		if d.Info.Season == season && d.Info.Episode == episode {
			return true
		}
	}
	pool := textPool(d)
	if meta.Name != "" {
		candidate := firstNonEmpty(d.Info.Title, d.Title, d.Name, d.SearchableName, d.Path)
		if !TitleMatches(candidate, meta.Name) {
			hit := false
			for _, text := range pool {
				if HasEpisodeMarker(text, season, episode) {
					hit = true
					break
				}
			}
			if !hit {
				return false
			}
		}
	}
	for _, text := range pool {
		if HasEpisodeMarker(text, season, episode) {
			return true
		}
	}
	return false
}

// FilterYear rejects a candidate only when both sides carry a year and they
// disagree.
func FilterYear(c models.Candidate, meta models.MetadataRecord) bool {
	if c.Info.Year != 0 && meta.Year != 0 {
		return c.Info.Year == meta.Year
	}
	return true
}

// textPool gathers every textual field worth scanning for episode markers,
// including per-file names and paths.
func textPool(c models.Candidate) []string {
	var pool []string
	for _, f := range []string{c.Name, c.Title, c.SearchableName, c.Path} {
		if f != "" {
			pool = append(pool, f)
		}
	}
	for _, file := range c.Files {
		if file.Path != "" {
			pool = append(pool, file.Path)
		}
		if file.Name != "" {
			pool = append(pool, file.Name)
		}
	}
	return pool
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
