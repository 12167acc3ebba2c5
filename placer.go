package tilemap

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// PlacementKind says if a placement call added or removed a tile
type PlacementKind int

const (
	// Added means a tile was placed (possibly displacing another)
	Added PlacementKind = iota
	// Removed means a tile was removed & nothing placed
	Removed
)

func (k PlacementKind) String() string {
	if k == Removed {
		return "removed"
	}
	return "added"
}

// Displaced is a tile that was removed by a placement call. The entity no
// longer exists; ID is nil if the tile couldn't be identified.
type Displaced struct {
	Entity Entity
	ID     *TileID
}

// PlacedTile is a tile that was created by a placement call
type PlacedTile struct {
	Entity Entity
	ID     TileID
}

// Placement is the result of a placement call.
// For Removed placements New is always nil.
type Placement struct {
	Kind PlacementKind
	Old  *Displaced
	New  *PlacedTile
}

// resolved is everything we need to know about a tile in order to place it
type resolved struct {
	tileset *Tileset
	index   TileIndex
	data    TileData
}

// Placer places & removes tiles, respecting tilesets & auto tiles.
//
// A Placer isn't safe for concurrent use; all calls that touch a given map
// must be serialized by the caller.
type Placer struct {
	store    Store
	tilesets Tilesets
	auto     *AutoTiler
}

// NewPlacer returns a Placer writing to `store`. Pass a nil AutoTiler to
// disable auto tile tracking.
func NewPlacer(store Store, tilesets Tilesets, auto *AutoTiler) *Placer {
	return &Placer{store: store, tilesets: tilesets, auto: auto}
}

// Place a tile, removing whatever was there before whether it matches or not.
func (p *Placer) Place(id TileID, c Coord) (*Placement, error) {
	r, err := p.resolve(id)
	if err != nil {
		return nil, err
	}
	return p.install(id, r, c, p.inspect(r.tileset, c))
}

// TryPlace places a tile only if the coordinate is empty.
// If anything is there a *TileExistsError is returned.
func (p *Placer) TryPlace(id TileID, c Coord) (*Placement, error) {
	r, err := p.resolve(id)
	if err != nil {
		return nil, err
	}

	occ := p.inspect(r.tileset, c)
	if occ != nil {
		p.refused("try_place", id, c, occ)
		return nil, &TileExistsError{New: id, Existing: occ.ID, Pos: c}
	}

	return p.install(id, r, c, nil)
}

// Replace places a tile unless the coordinate holds a tile of the same group.
// Tiles that can't be identified are always replaced.
func (p *Placer) Replace(id TileID, c Coord) (*Placement, error) {
	r, err := p.resolve(id)
	if err != nil {
		return nil, err
	}

	occ := p.inspect(r.tileset, c)
	if occ.matches(id) {
		p.refused("replace", id, c, occ)
		return nil, &TileExistsError{New: id, Existing: occ.ID, Pos: c}
	}

	return p.install(id, r, c, occ)
}

// ToggleMatching places a tile on an empty coordinate or removes a tile of
// the same group. Any other tile is left in place & a *TileExistsError returned.
func (p *Placer) ToggleMatching(id TileID, c Coord) (*Placement, error) {
	r, err := p.resolve(id)
	if err != nil {
		return nil, err
	}

	occ := p.inspect(r.tileset, c)
	if occ == nil {
		return p.install(id, r, c, nil)
	}

	if !occ.matches(id) {
		p.refused("toggle_matching", id, c, occ)
		return nil, &TileExistsError{New: id, Existing: occ.ID, Pos: c}
	}

	if err := p.Remove(c); err != nil {
		return nil, err
	}
	return &Placement{Kind: Removed, Old: occ.displaced()}, nil
}

// Toggle places a tile on an empty coordinate, otherwise removes whatever is there.
func (p *Placer) Toggle(id TileID, c Coord) (*Placement, error) {
	r, err := p.resolve(id)
	if err != nil {
		return nil, err
	}

	occ := p.inspect(r.tileset, c)
	if occ == nil {
		return p.install(id, r, c, nil)
	}

	if err := p.Remove(c); err != nil {
		return nil, err
	}
	return &Placement{Kind: Removed, Old: occ.displaced()}, nil
}

// Remove the tile at `c`, announcing auto tile removals.
// Removing from an empty coordinate succeeds.
func (p *Placer) Remove(c Coord) error {
	e, ok := p.store.EntityAt(c)
	if !ok {
		// nothing to remove, but let the store complain about bad coords
		return mapError(p.store.DespawnTile(c))
	}

	// must run before the despawn, it reads the entity
	if p.auto != nil {
		p.auto.TryRemove(p.store, e)
	}

	if err := p.store.DespawnTile(c); err != nil {
		return mapError(err)
	}
	p.store.MarkDirty(c)
	return nil
}

// AddToLayer creates a tile in a layer that's still being built (and so
// can't be queried through the store). A tile already built at `pos` is
// replaced by a new entity & reported as displaced.
func (p *Placer) AddToLayer(id TileID, pos Pos, layer LayerBuilder) (*Placement, error) {
	r, err := p.resolve(id)
	if err != nil {
		return nil, err
	}

	var old *Displaced
	if prev, ok := layer.EntityAt(pos); ok {
		old = &Displaced{Entity: prev}
		if rec, ok := layer.Tile(prev); ok {
			if tid, ok := r.tileset.TileID(rec.TextureIndex); ok {
				old.ID = &tid
			}
		}
		// nothing watches an unspawned layer, so no auto tile event
		if err := layer.DespawnTile(pos); err != nil {
			return nil, mapError(err)
		}
	}

	e, err := layer.SetTile(pos, r.index.Base())
	if err != nil {
		return nil, mapError(err)
	}
	if err := p.decorate(layer, id, r, e); err != nil {
		return nil, err
	}

	return &Placement{Kind: Added, Old: old, New: &PlacedTile{Entity: e, ID: id}}, nil
}

// Update rewrites an existing tile entity to be the given tile, without
// checking what it was before. The entity keeps it's handle & coordinate.
func (p *Placer) Update(id TileID, e Entity) error {
	r, err := p.resolve(id)
	if err != nil {
		return err
	}

	rec, ok := p.store.Tile(e)
	if !ok {
		return mapError(fmt.Errorf("%w: %v", ErrNoEntity, e))
	}

	if err := p.store.UpdateTile(e, func(t *TileRecord) { t.TextureIndex = r.index.Base() }); err != nil {
		return mapError(err)
	}
	if err := p.decorate(p.store, id, r, e); err != nil {
		return err
	}

	p.store.MarkDirty(rec.Coord)
	log.WithFields(logrus.Fields{"tile": id, "entity": e, "coord": rec.Coord}).Debug("tile updated")
	return nil
}

// Inspect returns what currently occupies `c` (or nil). The occupant is
// identified using the given tileset only.
func (p *Placer) Inspect(c Coord, scope TilesetID) *Occupant {
	ts, _ := p.tilesets.Tileset(scope)
	return p.inspect(ts, c)
}

// install is the actual placement; the caller has already decided the
// tile should go in. `occ` is whatever is at `c` right now.
func (p *Placer) install(id TileID, r *resolved, c Coord, occ *Occupant) (*Placement, error) {
	var old *Displaced
	if occ != nil {
		if err := p.Remove(c); err != nil {
			return nil, err
		}
		old = occ.displaced()
	}

	e, err := p.store.SetTile(c, r.index.Base())
	if err != nil {
		return nil, mapError(err)
	}
	if err := p.decorate(p.store, id, r, e); err != nil {
		return nil, err
	}

	p.store.MarkDirty(c)

	log.WithFields(logrus.Fields{
		"tile":      id,
		"entity":    e,
		"coord":     c,
		"displaced": old != nil,
	}).Debug("tile placed")

	return &Placement{Kind: Added, Old: old, New: &PlacedTile{Entity: e, ID: id}}, nil
}

// decorate sets animation, tileset & auto tile state on a freshly written entity
func (p *Placer) decorate(tiles TileAccess, id TileID, r *resolved, e Entity) error {
	tilesetID := r.tileset.ID()
	err := tiles.UpdateTile(e, func(t *TileRecord) {
		t.Animation = r.index.Animation()
		t.Tileset = &tilesetID
	})
	if err != nil {
		return mapError(err)
	}

	if p.auto == nil {
		return nil
	}
	return mapError(p.auto.Apply(tiles, id, r.data, e))
}

func (p *Placer) resolve(id TileID) (*resolved, error) {
	ts, err := p.tileset(id)
	if err != nil {
		return nil, err
	}

	idx, data, ok := ts.Resolve(id)
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrInvalidTile, id)
	}

	return &resolved{tileset: ts, index: idx, data: data}, nil
}

func (p *Placer) tileset(id TileID) (*Tileset, error) {
	ts, ok := p.tilesets.Tileset(id.Tileset)
	if !ok {
		return nil, fmt.Errorf("%w %d", ErrInvalidTileset, id.Tileset)
	}
	return ts, nil
}

func (p *Placer) refused(policy string, id TileID, c Coord, occ *Occupant) {
	log.WithFields(logrus.Fields{
		"policy":   policy,
		"tile":     id,
		"coord":    c,
		"existing": occ.ID,
	}).Debug("placement refused")
}
