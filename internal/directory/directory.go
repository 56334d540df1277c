// Package directory resolves user ids to display names for message threads.
package directory

import (
	"context"
	"log"
	"time"

	"github.com/patrickmn/go-cache"

	"property-workflow-backend/internal/model"
)

// UnknownName is shown for senders whose profile cannot be found.
const UnknownName = "Unknown user"

// ProfileSource loads profiles by id.
type ProfileSource interface {
	ListProfiles(ctx context.Context, ids []string) ([]model.Profile, error)
}

// Directory caches display names in memory.
type Directory struct {
	source ProfileSource
	names  *cache.Cache
}

// New creates a directory whose entries expire after ttl.
func New(source ProfileSource, ttl time.Duration) *Directory {
	return &Directory{
		source: source,
		names:  cache.New(ttl, 2*ttl),
	}
}

// DisplayNames returns a name for every id in ids. Ids without a profile map
// to UnknownName; lookup failures are logged and degrade the same way.
func (d *Directory) DisplayNames(ctx context.Context, ids []string) map[string]string {
	names := make(map[string]string, len(ids))
	var missing []string
	for _, id := range ids {
		if _, done := names[id]; done {
			continue
		}
		if v, ok := d.names.Get(id); ok {
			names[id] = v.(string)
			continue
		}
		names[id] = UnknownName
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return names
	}

	profiles, err := d.source.ListProfiles(ctx, missing)
	if err != nil {
		log.Printf("directory: failed to load %d profiles: %v", len(missing), err)
		return names
	}
	for _, p := range profiles {
		name := p.DisplayName
		if name == "" {
			name = p.Email
		}
		names[p.ID] = name
		d.names.SetDefault(p.ID, name)
	}
	return names
}
