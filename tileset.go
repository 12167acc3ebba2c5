package tilemap

import (
	"fmt"
	"sort"
	"sync"
)

// Tilesets looks up a tileset by it's ID.
type Tilesets interface {
	Tileset(id TilesetID) (*Tileset, bool)
}

// TileGroup is one logical tile within a tileset. A group has one or more
// variants, each with it's own render index.
type TileGroup struct {
	Group    GroupID
	Name     string
	Auto     bool
	Variants []TileIndex
}

// Tileset maps TileIDs to render data and back again.
// A tileset is read only once it has been added to a Registry.
type Tileset struct {
	id     TilesetID
	name   string
	groups map[GroupID]*TileGroup

	// texture index -> owning tile, used to identify what is already placed
	byIndex map[uint32]TileID
}

// NewTileset returns an empty tileset
func NewTileset(id TilesetID, name string) *Tileset {
	return &Tileset{
		id:      id,
		name:    name,
		groups:  map[GroupID]*TileGroup{},
		byIndex: map[uint32]TileID{},
	}
}

// ID of this tileset
func (t *Tileset) ID() TilesetID {
	return t.id
}

// Name of this tileset
func (t *Tileset) Name() string {
	return t.name
}

// AddGroup registers a tile group. Texture indexes must be unique within
// the tileset or reverse lookups would be ambiguous.
func (t *Tileset) AddGroup(g *TileGroup) error {
	if _, ok := t.groups[g.Group]; ok {
		return fmt.Errorf("group %d already exists in tileset %d", g.Group, t.id)
	}
	if len(g.Variants) == 0 {
		return fmt.Errorf("group %d (%s) has no variants", g.Group, g.Name)
	}

	ids := map[uint32]TileID{}
	for v, idx := range g.Variants {
		owner, ok := t.byIndex[idx.Base()]
		if !ok {
			owner, ok = ids[idx.Base()]
		}
		if ok {
			return fmt.Errorf("texture index %d of group %d already used by %s", idx.Base(), g.Group, owner)
		}
		ids[idx.Base()] = TileID{Tileset: t.id, Group: g.Group, Variant: v}
	}
	for i, id := range ids {
		t.byIndex[i] = id
	}

	t.groups[g.Group] = g
	return nil
}

// Groups returns all groups sorted by ID
func (t *Tileset) Groups() []*TileGroup {
	out := make([]*TileGroup, 0, len(t.groups))
	for _, g := range t.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	return out
}

// Resolve returns the render index & metadata for the given tile.
// AnyVariant resolves to the group's first variant.
func (t *Tileset) Resolve(id TileID) (TileIndex, TileData, bool) {
	if id.Tileset != t.id {
		return TileIndex{}, TileData{}, false
	}
	g, ok := t.groups[id.Group]
	if !ok {
		return TileIndex{}, TileData{}, false
	}

	v := id.Variant
	if v == AnyVariant {
		v = 0
	}
	if v < 0 || v >= len(g.Variants) {
		return TileIndex{}, TileData{}, false
	}

	return g.Variants[v], TileData{Name: g.Name, Auto: g.Auto}, true
}

// TileID returns the tile that renders with the given texture index.
func (t *Tileset) TileID(textureIndex uint32) (TileID, bool) {
	id, ok := t.byIndex[textureIndex]
	return id, ok
}

// Registry holds all known tilesets. It's safe for concurrent readers.
type Registry struct {
	lock     sync.RWMutex
	tilesets map[TilesetID]*Tileset
}

// NewRegistry returns a registry holding the given tilesets
func NewRegistry(in ...*Tileset) (*Registry, error) {
	r := &Registry{tilesets: map[TilesetID]*Tileset{}}
	for _, ts := range in {
		if err := r.Add(ts); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add a tileset to the registry
func (r *Registry) Add(ts *Tileset) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.tilesets[ts.id]; ok {
		return fmt.Errorf("tileset %d (%s) already registered", ts.id, ts.name)
	}
	r.tilesets[ts.id] = ts
	return nil
}

// Tileset returns the tileset with the given ID
func (r *Registry) Tileset(id TilesetID) (*Tileset, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	ts, ok := r.tilesets[id]
	return ts, ok
}
