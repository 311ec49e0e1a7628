package core

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Tracker records live GPU objects so that a rebuild or shutdown that forgets
// to release something shows up in the log.
type Tracker struct {
	mu   sync.Mutex
	live map[uuid.UUID]TrackedObject
}

type TrackedObject struct {
	ID   uuid.UUID
	Kind string
	Name string
}

func NewTracker() *Tracker {
	return &Tracker{live: make(map[uuid.UUID]TrackedObject)}
}

// Track registers an object and returns the id to release it with.
func (t *Tracker) Track(kind, name string) uuid.UUID {
	id := uuid.New()
	t.mu.Lock()
	t.live[id] = TrackedObject{ID: id, Kind: kind, Name: name}
	t.mu.Unlock()
	LogDebug("created %s %q (%s)", kind, name, id)
	return id
}

func (t *Tracker) Release(id uuid.UUID) {
	t.mu.Lock()
	obj, ok := t.live[id]
	delete(t.live, id)
	t.mu.Unlock()
	if !ok {
		LogWarn("release of untracked object %s", id)
		return
	}
	LogDebug("destroyed %s %q (%s)", obj.Kind, obj.Name, id)
}

func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}

// CountKind returns the number of live objects of the given kind.
func (t *Tracker) CountKind(kind string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, obj := range t.live {
		if obj.Kind == kind {
			n++
		}
	}
	return n
}

// Live returns the live objects ordered by kind then name.
func (t *Tracker) Live() []TrackedObject {
	t.mu.Lock()
	out := make([]TrackedObject, 0, len(t.live))
	for _, obj := range t.live {
		out = append(out, obj)
	}
	t.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Report logs every object still alive and returns how many there were.
func (t *Tracker) Report() int {
	live := t.Live()
	for _, obj := range live {
		LogWarn("leaked %s %q (%s)", obj.Kind, obj.Name, obj.ID)
	}
	return len(live)
}
