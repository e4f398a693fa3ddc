package stream

import (
	"log"
	"regexp"
	"strings"

	"sootio/models"
)

// languageExpansions maps recognized preference tokens to the alternation of
// abbreviations and native spellings seen in release names. Initialized once,
// never mutated.
var languageExpansions = map[string]string{
	"ita": "ita|italian|italiano", "italian": "ita|italian|italiano", "italiano": "ita|italian|italiano",
	"eng": "eng|english", "english": "eng|english",
	"multi": "multi|multilang|multiaudio", "multilang": "multi|multilang|multiaudio", "multiaudio": "multi|multilang|multiaudio",
	"spa": "spa|spanish|cast|español|esp", "spanish": "spa|spanish|cast|español|esp", "es": "spa|spanish|cast|español|esp",
	"por": "por|portuguese|portugues|brazil|br", "pt": "por|portuguese|portugues|brazil|br",
	"portuguese": "por|portuguese|portugues|brazil|br", "br": "por|portuguese|portugues|brazil|br",
	"fra": "fra|fre|french|français|francais", "fre": "fra|fre|french|français|francais",
	"fr": "fra|fre|french|français|francais", "french": "fra|fre|french|français|francais",
	"ger": "ger|german|deutsch", "de": "ger|german|deutsch", "german": "ger|german|deutsch",
}

var languageTokenCleaner = regexp.MustCompile(`[^a-z0-9]+`)

func expandLanguageToken(token string) string {
	if alt, ok := languageExpansions[token]; ok {
		return alt
	}
	return languageTokenCleaner.ReplaceAllString(token, "")
}

// PrioritizeLanguage reorders candidates so those matching the comma-separated
// language preference sort first. Relative order inside each partition is
// preserved. Any internal failure degrades to the unmodified input; language
// preference must never sink a whole request.
func PrioritizeLanguage(candidates []models.Candidate, langPref string) []models.Candidate {
	pref := strings.TrimSpace(langPref)
	if pref == "" {
		return candidates
	}

	var alternatives []string
	for _, raw := range strings.Split(pref, ",") {
		token := strings.ToLower(strings.TrimSpace(raw))
		if token == "" {
			continue
		}
		if alt := expandLanguageToken(token); alt != "" {
			alternatives = append(alternatives, alt)
		}
	}
	if len(alternatives) == 0 {
		return candidates
	}

	rx, err := regexp.Compile(`(?i)\b(` + strings.Join(alternatives, "|") + `)\b`)
	if err != nil {
		log.Printf("[language] failed to build preference pattern for %q: %v", pref, err)
		return candidates
	}

	matched := make([]models.Candidate, 0, len(candidates))
	unmatched := make([]models.Candidate, 0, len(candidates))
	for _, c := range candidates {
		hit := false
		for _, field := range c.DisplayFields() {
			if rx.MatchString(field) {
				hit = true
				break
			}
		}
		if hit {
			matched = append(matched, c)
		} else {
			unmatched = append(unmatched, c)
		}
	}
	return append(matched, unmatched...)
}
