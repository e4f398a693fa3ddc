package stream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"sootio/config"
	"sootio/models"
)

// hintDelimiter separates a magnet reference from its base64-encoded
// EpisodeHint payload inside a host reference.
const hintDelimiter = "||HINT||"

var (
	videoExtensions = map[string]struct{}{
		".mp4": {}, ".mkv": {}, ".avi": {}, ".mov": {}, ".wmv": {}, ".flv": {},
		".webm": {}, ".m4v": {}, ".mpg": {}, ".mpeg": {}, ".3gp": {}, ".ogv": {},
		".ts": {}, ".m2ts": {},
	}
	sampleNoisePattern = regexp.MustCompile(`(?i)\b(sample|trailer|promo|extra|featurette|behindthescenes|bonus|cd\d+)\b`)
	junkExtPattern     = regexp.MustCompile(`(?i)\.(exe|iso|dmg|pkg|msi|deb|rpm|zip|rar|7z|tar|gz|txt|nfo|sfv)$`)

	jobReadyStatuses = map[string]struct{}{
		"downloaded": {},
		"finished":   {},
	}
	jobFailureStatuses = map[string]struct{}{
		"magnet_error": {},
		"error":        {},
		"virus":        {},
		"dead":         {},
	}
)

// ParseHostReference strips a trailing episode hint from a host reference.
// The original reference string is never modified; a malformed hint segment
// yields the magnet part with no hint, not an error.
func ParseHostReference(hostRef string) (string, *models.EpisodeHint) {
	before, after, found := strings.Cut(hostRef, hintDelimiter)
	if !found {
		return hostRef, nil
	}
	payload, err := base64.StdEncoding.DecodeString(after)
	if err != nil {
		log.Printf("[resolver] discarding undecodable episode hint: %v", err)
		return before, nil
	}
	var hint models.EpisodeHint
	if err := json.Unmarshal(payload, &hint); err != nil {
		log.Printf("[resolver] discarding malformed episode hint: %v", err)
		return before, nil
	}
	return before, &hint
}

// EncodeHostReference appends an episode hint to a magnet reference for
// later consumption by the resolver.
func EncodeHostReference(magnet string, hint models.EpisodeHint) string {
	payload, err := json.Marshal(hint)
	if err != nil {
		return magnet
	}
	return magnet + hintDelimiter + base64.StdEncoding.EncodeToString(payload)
}

// isVideoFile reports whether a filename has a recognized video extension.
func isVideoFile(name string) bool {
	lowered := strings.ToLower(name)
	i := strings.LastIndex(lowered, ".")
	if i < 0 {
		return false
	}
	_, ok := videoExtensions[lowered[i:]]
	return ok
}

// isValidVideo applies the full validity filter: video extension, no
// sample/trailer naming noise, no archive or executable suffix, and at least
// minSize bytes unless the size is unknown.
func isValidVideo(name string, size, minSize int64) bool {
	if name == "" {
		return false
	}
	lowered := strings.ToLower(name)
	if !isVideoFile(lowered) {
		return false
	}
	if sampleNoisePattern.MatchString(lowered) {
		return false
	}
	if junkExtPattern.MatchString(lowered) {
		return false
	}
	if size > 0 && size < minSize {
		return false
	}
	return true
}

// Resolver owns the stateful magnet-to-URL workflow. Interval and attempt
// budget are fields so tests can drive the machine without real delay.
type Resolver struct {
	Interval    time.Duration
	MaxAttempts uint
	MinFileSize int64
}

// NewResolver builds a resolver from the configured bounds.
func NewResolver(settings config.ResolveSettings) *Resolver {
	return &Resolver{
		Interval:    settings.PollInterval(),
		MaxAttempts: uint(settings.MaxPollAttempts),
		MinFileSize: settings.MinFileSizeBytes,
	}
}

// Resolve turns a host reference into a directly playable URL, or returns an
// error describing why this candidate cannot play. Magnet references run the
// submit/select/poll/pick/unrestrict workflow; anything else is delegated to
// the provider's own exchange semantics.
func (r *Resolver) Resolve(ctx context.Context, prov Provider, itemID, hostRef, clientIP string) (string, error) {
	ref, hint := ParseHostReference(hostRef)
	if !IsPlayableReference(ref) {
		return "", fmt.Errorf("invalid host reference %q", ref)
	}
	if strings.HasPrefix(ref, "magnet:") {
		mc, ok := prov.(MagnetClient)
		if !ok {
			return "", fmt.Errorf("provider %s cannot convert magnet references", prov.Name())
		}
		return r.resolveMagnet(ctx, prov.Name(), mc, ref, hint, clientIP)
	}
	return prov.ResolveURL(ctx, itemID, ref, clientIP)
}

// resolveMagnet drives the remote conversion job:
//
//	Submitted -> FilesSelected -> Polling -> Downloaded -> Resolved
//
// with Failed/TimedOut as terminal polling outcomes. Every terminal failure
// attempts to delete the remote job before returning.
func (r *Resolver) resolveMagnet(ctx context.Context, providerName string, mc MagnetClient, magnet string, hint *models.EpisodeHint, clientIP string) (string, error) {
	trace := uuid.NewString()[:8]

	jobID, err := mc.AddMagnet(ctx, magnet)
	if err != nil {
		return "", fmt.Errorf("submit magnet: %w", err)
	}
	log.Printf("[resolver] [%s] %s job %s submitted", trace, providerName, jobID)

	cleanup := func() {
		if delErr := mc.DeleteJob(context.WithoutCancel(ctx), jobID); delErr != nil {
			log.Printf("[resolver] [%s] cleanup of job %s failed: %v", trace, jobID, delErr)
		}
	}

	if err := mc.SelectAllFiles(ctx, jobID); err != nil {
		cleanup()
		return "", fmt.Errorf("select files: %w", err)
	}

	job, err := r.pollJob(ctx, mc, jobID)
	if err != nil {
		cleanup()
		return "", err
	}
	log.Printf("[resolver] [%s] job %s downloaded: %d files, %d links", trace, jobID, len(job.Files), len(job.Links))

	chosen, reason, err := r.pickFile(job.Files, hint)
	if err != nil {
		cleanup()
		return "", err
	}
	log.Printf("[resolver] [%s] picked file id=%d path=%q (%s)", trace, chosen.ID, chosen.Path, reason)

	restricted, err := linkForFile(job, chosen)
	if err != nil {
		cleanup()
		return "", err
	}

	direct, err := mc.Unrestrict(ctx, restricted, clientIP)
	if err != nil {
		cleanup()
		return "", fmt.Errorf("unrestrict: %w", err)
	}
	if strings.TrimSpace(direct) == "" {
		cleanup()
		return "", fmt.Errorf("unrestrict returned empty URL")
	}
	log.Printf("[resolver] [%s] job %s resolved", trace, jobID)
	return direct, nil
}

// pollJob queries job status at a fixed interval up to the attempt budget.
// Known failure statuses abort immediately; exhausting the budget without a
// ready status is a timeout.
func (r *Resolver) pollJob(ctx context.Context, mc MagnetClient, jobID string) (*MagnetJob, error) {
	var job *MagnetJob
	err := retry.Do(
		func() error {
			info, err := mc.JobInfo(ctx, jobID)
			if err != nil {
				return err
			}
			job = info
			status := strings.ToLower(info.Status)
			if _, ready := jobReadyStatuses[status]; ready {
				return nil
			}
			if _, failed := jobFailureStatuses[status]; failed {
				return retry.Unrecoverable(fmt.Errorf("job failed with status %q", status))
			}
			return fmt.Errorf("job not ready (status %q)", status)
		},
		retry.Context(ctx),
		retry.Attempts(r.MaxAttempts),
		retry.Delay(r.Interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("poll job %s: %w", jobID, err)
	}
	return job, nil
}

// pickFile selects the playable file. Hint matches take priority: exact file
// id, then exact path, then episode markers across marker shapes. Without a
// usable hint the largest valid video wins.
func (r *Resolver) pickFile(files []models.FileEntry, hint *models.EpisodeHint) (models.FileEntry, string, error) {
	valid := validVideoFiles(files, r.MinFileSize)
	if len(valid) == 0 {
		return models.FileEntry{}, "", fmt.Errorf("no valid video files in job")
	}

	if hint != nil {
		if hint.FileID != nil {
			for _, f := range valid {
				if f.ID == *hint.FileID {
					return f, "hint file id", nil
				}
			}
		}
		if hint.FilePath != "" {
			for _, f := range valid {
				if f.Path == hint.FilePath {
					return f, "hint file path", nil
				}
			}
		}
		if hint.Season > 0 && hint.Episode > 0 {
			for _, f := range valid {
				if HasEpisodeMarker(firstNonEmpty(f.Path, f.Name), hint.Season, hint.Episode) {
					return f, fmt.Sprintf("hint episode marker S%02dE%02d", hint.Season, hint.Episode), nil
				}
			}
		}
	}

	largest := valid[0]
	for _, f := range valid[1:] {
		if f.Size > largest.Size {
			largest = f
		}
	}
	return largest, "largest valid video", nil
}

// validVideoFiles keeps the files worth playing. When the backend marks a
// selection, only selected files count; backends that auto-process
// everything mark nothing and all files are considered.
func validVideoFiles(files []models.FileEntry, minSize int64) []models.FileEntry {
	anySelected := false
	for _, f := range files {
		if f.Selected {
			anySelected = true
			break
		}
	}
	var valid []models.FileEntry
	for _, f := range files {
		if anySelected && !f.Selected {
			continue
		}
		if isValidVideo(firstNonEmpty(f.Path, f.Name), f.Size, minSize) {
			valid = append(valid, f)
		}
	}
	return valid
}

// linkForFile maps the chosen file to its host-side link by positional
// correspondence between the job's file and link lists.
func linkForFile(job *MagnetJob, chosen models.FileEntry) (string, error) {
	idx := -1
	for i, f := range job.Files {
		if f.ID == chosen.ID {
			idx = i
			break
		}
	}
	if idx < 0 || idx >= len(job.Links) {
		return "", fmt.Errorf("no link corresponds to file id %d", chosen.ID)
	}
	link := strings.TrimSpace(job.Links[idx])
	if link == "" || link == "undefined" {
		return "", fmt.Errorf("link for file id %d is empty", chosen.ID)
	}
	return link, nil
}
