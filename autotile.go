package tilemap

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// RemoveAutoTileEvent announces that an auto tile has been (or is about to
// be) removed, so whatever computes auto tile variants can update the
// neighbours.
type RemoveAutoTileEvent struct {
	Entity Entity
	Pos    Pos
	Parent Parent
	AutoID AutoTileID
}

// removalKey identifies a single auto tile link of an entity
type removalKey struct {
	entity Entity
	auto   AutoTileID
}

// AutoTileEvents queues removal events until they're consumed, normally
// once per tick after all placement has finished.
// Each auto tile link of an entity is queued at most once between calls to
// Consume; an entity re-linked to another group is announced again.
type AutoTileEvents struct {
	lock   sync.Mutex
	events []RemoveAutoTileEvent
	seen   map[removalKey]bool
}

// NewAutoTileEvents returns an empty queue
func NewAutoTileEvents() *AutoTileEvents {
	return &AutoTileEvents{
		events: []RemoveAutoTileEvent{},
		seen:   map[removalKey]bool{},
	}
}

// Push queues an event, returning false if this entity & link is already queued
func (q *AutoTileEvents) Push(ev RemoveAutoTileEvent) bool {
	q.lock.Lock()
	defer q.lock.Unlock()

	key := removalKey{entity: ev.Entity, auto: ev.AutoID}
	if q.seen[key] {
		return false
	}
	q.seen[key] = true
	q.events = append(q.events, ev)
	return true
}

// Consume returns all queued events in the order they were pushed & empties the queue
func (q *AutoTileEvents) Consume() []RemoveAutoTileEvent {
	q.lock.Lock()
	defer q.lock.Unlock()

	if len(q.events) == 0 {
		return nil
	}

	out := q.events
	q.events = []RemoveAutoTileEvent{}
	q.seen = map[removalKey]bool{}
	return out
}

// Len returns the number of queued events
func (q *AutoTileEvents) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return len(q.events)
}

// AutoTiler keeps auto tile links on tile entities in sync as tiles are placed
// & removed. It never works out auto tile variants itself, it only announces
// removals on it's event queue.
type AutoTiler struct {
	events *AutoTileEvents
}

// NewAutoTiler returns an AutoTiler sending removal events to `events`
func NewAutoTiler(events *AutoTileEvents) *AutoTiler {
	return &AutoTiler{events: events}
}

// Events returns the queue removal events are sent to
func (a *AutoTiler) Events() *AutoTileEvents {
	return a.events
}

// Apply links `e` to the auto tile group of `id` if `data` says it's an auto
// tile. Otherwise any previous link is announced as removed & dropped.
func (a *AutoTiler) Apply(tiles TileAccess, id TileID, data TileData, e Entity) error {
	if data.IsAuto() {
		auto := AutoTileID{Group: id.Group, Tileset: id.Tileset}
		return tiles.UpdateTile(e, func(r *TileRecord) { r.Auto = &auto })
	}

	// announce before unlinking, the event needs the old link
	a.TryRemove(tiles, e)
	return tiles.UpdateTile(e, func(r *TileRecord) { r.Auto = nil })
}

// TryRemove queues a removal event for `e` if it's a linked auto tile.
// Returns true if an event was queued.
func (a *AutoTiler) TryRemove(tiles TileAccess, e Entity) bool {
	rec, ok := tiles.Tile(e)
	if !ok || rec.Auto == nil {
		return false
	}

	ev := RemoveAutoTileEvent{
		Entity: e,
		Pos:    rec.Coord.Pos,
		Parent: rec.Parent,
		AutoID: *rec.Auto,
	}
	if !a.events.Push(ev) {
		return false
	}

	log.WithFields(logrus.Fields{
		"entity": e,
		"coord":  rec.Coord,
		"group":  rec.Auto.Group,
	}).Debug("auto tile removed")
	return true
}
