package stream

import (
	"reflect"
	"testing"

	"sootio/models"
)

func names(candidates []models.Candidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Name
	}
	return out
}

func TestPrioritizeLanguage(t *testing.T) {
	input := []models.Candidate{
		{Name: "Movie.2019.1080p.ENG.mkv"},
		{Name: "Movie.2019.1080p.ITA.mkv"},
		{Name: "Movie.2019.720p.italiano.mkv"},
		{Name: "Movie.2019.2160p.mkv"},
	}

	cases := []struct {
		name string
		pref string
		want []string
	}{
		{
			"single token with native spellings",
			"ita",
			[]string{"Movie.2019.1080p.ITA.mkv", "Movie.2019.720p.italiano.mkv", "Movie.2019.1080p.ENG.mkv", "Movie.2019.2160p.mkv"},
		},
		{
			"empty preference keeps order",
			"",
			[]string{"Movie.2019.1080p.ENG.mkv", "Movie.2019.1080p.ITA.mkv", "Movie.2019.720p.italiano.mkv", "Movie.2019.2160p.mkv"},
		},
		{
			"multiple tokens union",
			"eng, ita",
			[]string{"Movie.2019.1080p.ENG.mkv", "Movie.2019.1080p.ITA.mkv", "Movie.2019.720p.italiano.mkv", "Movie.2019.2160p.mkv"},
		},
		{
			"unknown token matches literally",
			"klingon",
			[]string{"Movie.2019.1080p.ENG.mkv", "Movie.2019.1080p.ITA.mkv", "Movie.2019.720p.italiano.mkv", "Movie.2019.2160p.mkv"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := make([]models.Candidate, len(input))
			copy(in, input)
			got := names(PrioritizeLanguage(in, tc.pref))
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("PrioritizeLanguage(%q) order = %v, want %v", tc.pref, got, tc.want)
			}
		})
	}
}

func TestPrioritizeLanguageIsPermutation(t *testing.T) {
	input := []models.Candidate{
		{Name: "a.ITA.mkv"}, {Name: "b.mkv"}, {Name: "c.german.mkv"}, {Name: "d.ITA.mkv"},
	}
	got := PrioritizeLanguage(input, "de")
	if len(got) != len(input) {
		t.Fatalf("got %d candidates, want %d", len(got), len(input))
	}
	seen := map[string]bool{}
	for _, c := range got {
		seen[c.Name] = true
	}
	for _, c := range input {
		if !seen[c.Name] {
			t.Errorf("candidate %q lost during prioritization", c.Name)
		}
	}
	if got[0].Name != "c.german.mkv" {
		t.Errorf("expected german candidate first, got %q", got[0].Name)
	}
}
