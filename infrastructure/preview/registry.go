package preview

import (
	"strings"
	"sync"

	"upload-ai/domain/video"

	"github.com/google/uuid"
)

// DefaultPrefix is the URL path under which previews are served
const DefaultPrefix = "/preview/"

// Registry implements video.Previewer by mapping unguessable tokens to
// selected videos. A revoked URL stops resolving immediately.
type Registry struct {
	prefix string

	mu      sync.RWMutex
	entries map[string]*video.SelectedVideo
}

// NewRegistry creates a registry serving URLs under prefix
func NewRegistry(prefix string) *Registry {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Registry{
		prefix:  prefix,
		entries: make(map[string]*video.SelectedVideo),
	}
}

// Create implements video.Previewer
func (r *Registry) Create(v *video.SelectedVideo) (string, error) {
	token := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[token] = v

	return r.prefix + token, nil
}

// Revoke implements video.Previewer
func (r *Registry) Revoke(url string) {
	token := strings.TrimPrefix(url, r.prefix)

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, token)
}

// Lookup resolves a token to its video
func (r *Registry) Lookup(token string) (*video.SelectedVideo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[token]
	return v, ok
}

// Len returns the number of live previews
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Ensure Registry implements video.Previewer
var _ video.Previewer = (*Registry)(nil)
