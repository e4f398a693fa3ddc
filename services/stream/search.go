package stream

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sourcegraph/conc"

	"sootio/models"
)

// MetadataResolver resolves a content id to its canonical title and year.
// A failure here fails the whole request: no candidate list can be produced
// without a canonical title.
type MetadataResolver interface {
	GetMeta(ctx context.Context, contentType models.ContentType, imdbID string) (*models.MetadataRecord, error)
}

// Pipeline aggregates playable candidates for one requested title across the
// selected provider and ranks them. All state is per-request.
type Pipeline struct {
	meta      MetadataResolver
	formatter *Formatter
}

// NewPipeline constructs the aggregation pipeline.
func NewPipeline(meta MetadataResolver, formatter *Formatter) *Pipeline {
	return &Pipeline{meta: meta, formatter: formatter}
}

// Streams lists ranked stream descriptors for a movie or series episode.
// Unknown providers fail with ErrBadRequest; a configured provider with no
// results yields an empty, successful list.
func (p *Pipeline) Streams(ctx context.Context, user UserConfig, id models.ContentID) ([]models.StreamDescriptor, error) {
	providerName := user.ProviderName()
	if providerName == "" {
		return nil, ErrBadRequest
	}
	prov, ok := GetProvider(providerName, user.APIKey())
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadRequest, providerName)
	}

	meta, err := p.meta.GetMeta(ctx, id.Type, id.IMDBID)
	if err != nil {
		return nil, fmt.Errorf("metadata lookup for %s: %w", id.IMDBID, err)
	}

	start := time.Now()
	candidates, err := prov.Search(ctx, SearchRequest{
		Key:      meta.Name,
		Type:     id.Type,
		ID:       id,
		MinScore: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("%s search: %w", prov.Name(), err)
	}
	log.Printf("[stream] %s search produced %d candidates for %q in %s",
		prov.Name(), len(candidates), meta.Name, time.Since(start).Round(10*time.Millisecond))
	if len(candidates) == 0 {
		return []models.StreamDescriptor{}, nil
	}

	_, isDetailer := prov.(Detailer)
	_, isBatchDetailer := prov.(BatchDetailer)
	expands := isDetailer || isBatchDetailer

	filtered := candidates[:0:0]
	for _, c := range candidates {
		if !p.passesPreDetailFilter(c, id, *meta, expands) {
			continue
		}
		filtered = append(filtered, c)
	}
	if len(filtered) == 0 {
		return []models.StreamDescriptor{}, nil
	}

	filtered = PrioritizeLanguage(filtered, user.LangPref)
	SortByQuality(filtered)

	details, err := p.expandDetails(ctx, prov, filtered)
	if err != nil {
		return nil, err
	}

	streams := make([]models.StreamDescriptor, 0, len(details))
	for _, d := range details {
		if id.Type == models.ContentTypeSeries && expands &&
			!FilterEpisode(d, id.Season, id.Episode, *meta) {
			continue
		}
		if s := p.formatter.Stream(d, id.Type, user); s != nil {
			streams = append(streams, *s)
		}
	}
	log.Printf("[stream] %s: %d candidates -> %d streams for %s", prov.Name(), len(candidates), len(streams), id.String())
	return streams, nil
}

// passesPreDetailFilter applies the filters appropriate before detail
// expansion. Providers without a detail step must pass the full episode gate
// here, since no second pass happens.
func (p *Pipeline) passesPreDetailFilter(c models.Candidate, id models.ContentID, meta models.MetadataRecord, expands bool) bool {
	if c.BypassFiltering {
		return true
	}
	if id.Type == models.ContentTypeMovie {
		return FilterYear(c, meta)
	}
	if expands {
		return FilterSeason(c, id.Season, meta)
	}
	if c.Info.Season == id.Season && c.Info.Episode == id.Episode && c.Info.Season != 0 {
		return true
	}
	return FilterSeason(c, id.Season, meta) && FilterDownloadEpisode(c, id.Season, id.Episode, meta)
}

// expandDetails fetches per-candidate detail records. Batch-capable
// providers get one call; per-candidate providers run concurrently with each
// failure isolated to its own candidate. Ranked order is preserved.
func (p *Pipeline) expandDetails(ctx context.Context, prov Provider, filtered []models.Candidate) ([]models.Candidate, error) {
	switch det := prov.(type) {
	case BatchDetailer:
		ids := make([]string, 0, len(filtered))
		for _, c := range filtered {
			if c.ID != "" {
				ids = append(ids, c.ID)
			}
		}
		if len(ids) == 0 {
			return filtered, nil
		}
		batch, err := det.GetDetailsBatch(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("%s details: %w", prov.Name(), err)
		}
		return reorderByIDs(batch, ids), nil

	case Detailer:
		results := make([]*models.Candidate, len(filtered))
		var wg conc.WaitGroup
		for i := range filtered {
			i := i
			wg.Go(func() {
				d, err := det.GetDetails(ctx, filtered[i].ID)
				if err != nil {
					log.Printf("[stream] %s details for %s failed, dropping candidate: %v", prov.Name(), filtered[i].ID, err)
					return
				}
				results[i] = d
			})
		}
		wg.Wait()
		details := make([]models.Candidate, 0, len(filtered))
		for _, d := range results {
			if d != nil {
				details = append(details, *d)
			}
		}
		return details, nil

	default:
		return filtered, nil
	}
}

// reorderByIDs restores the ranked request order on a batch detail response.
// Unknown ids keep their response order at the tail.
func reorderByIDs(batch []models.Candidate, ids []string) []models.Candidate {
	byID := make(map[string]int, len(batch))
	for i, c := range batch {
		if c.ID != "" {
			byID[strings.ToLower(c.ID)] = i
		}
	}
	ordered := make([]models.Candidate, 0, len(batch))
	used := make(map[int]bool, len(batch))
	for _, id := range ids {
		if i, ok := byID[strings.ToLower(id)]; ok && !used[i] {
			ordered = append(ordered, batch[i])
			used[i] = true
		}
	}
	for i, c := range batch {
		if !used[i] {
			ordered = append(ordered, c)
		}
	}
	return ordered
}
