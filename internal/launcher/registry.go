package launcher

import (
	"sync"

	"github.com/rs/zerolog"
)

// Registry maps a tool name to its ordered instance slots. Indices are stable
// once assigned: removing an instance nils its slot instead of shifting the
// list, so external references (API URLs, UI tabs) stay valid for the rest of
// the session. Trailing nil slots are reclaimed.
type Registry struct {
	mu    sync.RWMutex
	slots map[string][]*Instance
	log   zerolog.Logger

	bufMaxSize       int
	displayThreshold int
}

func newRegistry(log zerolog.Logger, bufMaxSize, displayThreshold int) *Registry {
	return &Registry{
		slots:            make(map[string][]*Instance),
		log:              log,
		bufMaxSize:       bufMaxSize,
		displayThreshold: displayThreshold,
	}
}

// GetOrCreate appends a fresh instance slot for the tool. Freed mid-list
// slots are never reused while a later index is occupied, so indices handed
// out earlier keep meaning the same instance; Remove reclaims tail slots.
func (r *Registry) GetOrCreate(tool string) (*Instance, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.slots[tool]
	idx := len(list)
	ni := newInstance(tool, idx, NewOutputBuffer(r.bufMaxSize, r.displayThreshold), r.log)
	r.slots[tool] = append(list, ni)
	return ni, idx
}

// Find returns the instance at (tool, index). Unknown tools and out-of-range
// or empty slots yield a typed not-found error, never a panic: this is called
// from request-handling paths that must degrade to a user-visible message.
func (r *Registry) Find(tool string, index int) (*Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list, ok := r.slots[tool]
	if !ok {
		return nil, ErrToolNotFound(tool)
	}
	if index < 0 || index >= len(list) || list[index] == nil {
		return nil, ErrInstanceNotFound(tool, index)
	}
	return list[index], nil
}

// List returns the occupied instances of a tool in index order.
func (r *Registry) List(tool string) []*Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Instance, 0, len(r.slots[tool]))
	for _, inst := range r.slots[tool] {
		if inst != nil {
			out = append(out, inst)
		}
	}
	return out
}

// All returns every occupied instance across tools.
func (r *Registry) All() []*Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Instance
	for _, list := range r.slots {
		for _, inst := range list {
			if inst != nil {
				out = append(out, inst)
			}
		}
	}
	return out
}

// Remove clears the slot at (tool, index). A crash does not remove a slot;
// only an explicit removal does. Trailing nil slots are trimmed so the next
// create can reuse tail indices.
func (r *Registry) Remove(tool string, index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list, ok := r.slots[tool]
	if !ok {
		return ErrToolNotFound(tool)
	}
	if index < 0 || index >= len(list) || list[index] == nil {
		return ErrInstanceNotFound(tool, index)
	}
	list[index] = nil
	for len(list) > 0 && list[len(list)-1] == nil {
		list = list[:len(list)-1]
	}
	if len(list) == 0 {
		delete(r.slots, tool)
	} else {
		r.slots[tool] = list
	}
	return nil
}
