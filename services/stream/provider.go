package stream

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"sootio/models"
)

// ErrBadRequest marks a request-level configuration failure (unknown or
// missing provider) as opposed to a provider legitimately returning nothing.
var ErrBadRequest = errors.New("unsupported or missing debrid provider")

// UserConfig is the per-request configuration the caller supplies. It is
// read-only for the duration of a request.
type UserConfig struct {
	DebridProvider   string
	DebridAPIKey     string
	DebridLinkAPIKey string
	LangPref         string
}

// ProviderName resolves the effective provider identifier, honoring the
// legacy DebridLink-specific key.
func (u UserConfig) ProviderName() string {
	if u.DebridProvider != "" {
		return strings.ToLower(strings.TrimSpace(u.DebridProvider))
	}
	if u.DebridLinkAPIKey != "" {
		return "debridlink"
	}
	return ""
}

// APIKey resolves the effective API key for the selected provider.
func (u UserConfig) APIKey() string {
	if u.DebridLinkAPIKey != "" && u.ProviderName() == "debridlink" {
		return u.DebridLinkAPIKey
	}
	return u.DebridAPIKey
}

// SearchRequest provides normalized inputs to provider adapters. Adapters
// search either by title key or by content id, whichever their backend
// supports; both are always populated.
type SearchRequest struct {
	Key      string // canonical title from metadata
	Type     models.ContentType
	ID       models.ContentID
	MinScore float64
}

// Provider is the capability contract every backend implements.
type Provider interface {
	Name() string

	// Search returns normalized candidates. "No results" is an empty slice,
	// never an error.
	Search(ctx context.Context, req SearchRequest) ([]models.Candidate, error)

	// ResolveURL exchanges a non-magnet host reference for a playable URL.
	// Providers whose references are already direct return them unchanged.
	ResolveURL(ctx context.Context, itemID, hostRef, clientIP string) (string, error)
}

// Detailer expands a lightweight search hit into a detail record, one
// candidate at a time. The pipeline runs these concurrently with per-call
// failure isolation.
type Detailer interface {
	GetDetails(ctx context.Context, id string) (*models.Candidate, error)
}

// BatchDetailer expands many hits in one call for backends with batch
// detail endpoints.
type BatchDetailer interface {
	GetDetailsBatch(ctx context.Context, ids []string) ([]models.Candidate, error)
}

// MagnetJob is the provider-agnostic view of an asynchronous magnet
// conversion job.
type MagnetJob struct {
	ID       string
	Filename string
	Status   string
	Files    []models.FileEntry
	Links    []string
}

// MagnetClient is the workflow surface the resolver drives for providers
// that convert magnets through a remote job.
type MagnetClient interface {
	AddMagnet(ctx context.Context, magnet string) (string, error)
	SelectAllFiles(ctx context.Context, jobID string) error
	JobInfo(ctx context.Context, jobID string) (*MagnetJob, error)
	DeleteJob(ctx context.Context, jobID string) error
	Unrestrict(ctx context.Context, link, clientIP string) (string, error)
}

var (
	providerMu        sync.RWMutex
	providerFactories = make(map[string]func(apiKey string) Provider)
)

// RegisterProvider makes a provider constructor available under a name.
// Called from client init functions.
func RegisterProvider(name string, factory func(apiKey string) Provider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	providerFactories[strings.ToLower(name)] = factory
}

// GetProvider resolves a provider by name. The boolean is false for
// unregistered names; callers translate that into ErrBadRequest.
func GetProvider(name, apiKey string) (Provider, bool) {
	providerMu.RLock()
	factory, ok := providerFactories[strings.ToLower(name)]
	providerMu.RUnlock()
	if !ok {
		return nil, false
	}
	return factory(apiKey), true
}

// RegisteredProviders lists the known provider names, sorted.
func RegisteredProviders() []string {
	providerMu.RLock()
	defer providerMu.RUnlock()
	names := make([]string, 0, len(providerFactories))
	for name := range providerFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
