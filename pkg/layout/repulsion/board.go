package repulsion

import (
	"slices"
	"strings"
	"sync"
)

// Board is the live, mutable entity collection behind an interactive canvas.
// It is safe for concurrent use: user drags and simulation iterations both
// write through it.
//
// The board's generation increases every time [Board.Replace] changes the set
// of entity IDs. Simulation results computed against an older generation are
// discarded.
type Board struct {
	mu         sync.Mutex
	entities   []Entity
	index      map[string]int
	key        string
	generation uint64
	changes    chan struct{}
}

// NewBoard creates a board holding a copy of entities at generation 1.
func NewBoard(entities []Entity) *Board {
	b := &Board{changes: make(chan struct{}, 1)}
	b.reset(entities)
	b.generation = 1
	return b
}

// Replace swaps in a new entity collection.
//
// When the set of IDs differs from the current one, the collection is
// replaced wholesale, the generation advances, a change notification is sent
// and Replace returns true. Otherwise only the non-positional attributes are
// refreshed: current positions and drag flags are kept and Replace returns
// false.
func (b *Board) Replace(entities []Entity) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if IDKey(entities) == b.key {
		for _, e := range entities {
			if i, ok := b.index[e.ID]; ok {
				b.entities[i].Type = e.Type
			}
		}
		return false
	}

	b.reset(entities)
	b.generation++
	select {
	case b.changes <- struct{}{}:
	default:
	}
	return true
}

// Changes delivers a notification after each ID-set change. Notifications
// coalesce: several changes between reads produce one signal.
func (b *Board) Changes() <-chan struct{} {
	return b.changes
}

// Snapshot returns a copy of the entities and the generation they belong to.
func (b *Board) Snapshot() ([]Entity, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entity, len(b.entities))
	copy(out, b.entities)
	return out, b.generation
}

// Generation returns the current generation.
func (b *Board) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}

// Key returns the canonical ID-set key of the current collection.
func (b *Board) Key() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.key
}

// Len returns the number of entities.
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entities)
}

// Move sets an entity's position directly, as a drag does. It never
// restarts the simulation. Returns false for unknown IDs.
func (b *Board) Move(id string, x, y float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	i, ok := b.index[id]
	if !ok {
		return false
	}
	b.entities[i].X = x
	b.entities[i].Y = y
	return true
}

// SetDragging flags or unflags an entity as under direct user control.
// Returns false for unknown IDs.
func (b *Board) SetDragging(id string, dragging bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	i, ok := b.index[id]
	if !ok {
		return false
	}
	b.entities[i].Dragging = dragging
	return true
}

// apply adds deltas computed from snapshot to the live entities. It does
// nothing and returns false when the board has moved on to another
// generation. Entities dragging right now are skipped even if they were not
// dragging when the snapshot was taken.
func (b *Board) apply(generation uint64, snapshot []Entity, deltas []Vector) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if generation != b.generation {
		return false
	}
	for i, e := range snapshot {
		if e.Dragging {
			continue
		}
		j, ok := b.index[e.ID]
		if !ok || b.entities[j].Dragging {
			continue
		}
		b.entities[j].X += deltas[i].DX
		b.entities[j].Y += deltas[i].DY
	}
	return true
}

// reset must be called with b.mu held.
func (b *Board) reset(entities []Entity) {
	b.entities = make([]Entity, len(entities))
	copy(b.entities, entities)
	b.index = make(map[string]int, len(entities))
	for i, e := range b.entities {
		b.index[e.ID] = i
	}
	b.key = IDKey(entities)
}

// IDKey returns the sorted, comma-joined entity IDs. Two collections with
// the same key hold the same set of entities.
func IDKey(entities []Entity) string {
	ids := make([]string, len(entities))
	for i, e := range entities {
		ids[i] = e.ID
	}
	slices.Sort(ids)
	return strings.Join(ids, ",")
}
