// ABOUTME: In-memory version history with temporal lookups
// ABOUTME: Backs the embedded repository used for local runs and tests

package version

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNoVersions indicates a node without recorded versions
var ErrNoVersions = errors.New("version: no versions recorded")

// History keeps ordered version records per node
type History struct {
	mu       sync.RWMutex
	versions map[string][]*Record
}

// NewHistory creates an empty history
func NewHistory() *History {
	return &History{versions: make(map[string][]*Record)}
}

// Append records a new version as the latest for its node
func (h *History) Append(r *Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.versions[r.NodeID] = append(h.versions[r.NodeID], r)
}

// Latest returns the most recent version of a node
func (h *History) Latest(nodeID string) (*Record, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	list := h.versions[nodeID]
	if len(list) == 0 {
		return nil, ErrNoVersions
	}
	return list[len(list)-1], nil
}

// List returns a node's versions, newest first
func (h *History) List(nodeID string) []*Record {
	h.mu.RLock()
	defer h.mu.RUnlock()
	list := h.versions[nodeID]
	out := make([]*Record, len(list))
	for i, r := range list {
		out[len(list)-1-i] = r
	}
	return out
}

// AsOf returns the version that was current at the given time
func (h *History) AsOf(nodeID string, at time.Time) (*Record, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	list := h.versions[nodeID]
	idx := sort.Search(len(list), func(i int) bool {
		return list[i].CreatedAt.After(at)
	})
	if idx == 0 {
		return nil, ErrNoVersions
	}
	return list[idx-1], nil
}

// Forget drops all versions of a node
func (h *History) Forget(nodeID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.versions, nodeID)
}
