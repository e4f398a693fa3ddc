package stream

import (
	"sort"

	"sootio/models"
	"sootio/utils/medianame"
)

// resolutionOrder ranks canonical resolution tokens. Anything unrecognized
// ranks 0. Initialized once, never mutated.
var resolutionOrder = map[string]int{
	"2160p": 4,
	"1080p": 3,
	"720p":  2,
	"480p":  1,
}

func resolutionRank(c models.Candidate) int {
	name := c.Name
	if name == "" {
		name = c.Title
	}
	return resolutionOrder[medianame.ResolutionFromName(name)]
}

// SortByQuality orders candidates by resolution rank descending, then by
// size descending. The sort is stable: candidates equal on both keys keep
// their input order. Missing sizes rank as zero.
func SortByQuality(candidates []models.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := resolutionRank(candidates[i]), resolutionRank(candidates[j])
		if ri != rj {
			return ri > rj
		}
		return candidates[i].Size > candidates[j].Size
	})
}
