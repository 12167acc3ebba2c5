package tilemap

import (
	"errors"
	"fmt"
)

var (
	// ErrNoLayer is returned by a store when the requested map/layer doesn't exist
	ErrNoLayer = errors.New("layer does not exist")

	// ErrLayerExists is returned when creating a layer that already exists
	ErrLayerExists = errors.New("layer already exists")

	// ErrOutOfBounds is returned for positions outside of a layer
	ErrOutOfBounds = errors.New("position out of bounds")

	// ErrNoEntity is returned for unknown (or stale) entity handles
	ErrNoEntity = errors.New("no such entity")
)

// Entity is a handle to a tile record owned by a store.
// The low 32 bits are the record index, the high 32 bits it's generation,
// so handles to removed tiles never alias newer tiles.
type Entity uint64

// NilEntity is never handed out by a store
const NilEntity Entity = 0

func packEntity(index, gen uint32) Entity {
	return Entity(uint64(gen)<<32 | uint64(index))
}

func (e Entity) index() uint32 {
	return uint32(e)
}

func (e Entity) generation() uint32 {
	return uint32(e >> 32)
}

func (e Entity) String() string {
	return fmt.Sprintf("%dv%d", e.index(), e.generation())
}

// Parent is the map, layer & chunk a tile belongs to.
type Parent struct {
	MapID   uint16
	LayerID uint16
	Chunk   ChunkPos
}

// AutoTileID links a tile to an auto tiling group.
type AutoTileID struct {
	Group   GroupID
	Tileset TilesetID
}

// TileRecord is everything a store holds about a single tile entity.
// Optional parts are nil when absent.
type TileRecord struct {
	Coord        Coord
	Parent       Parent
	TextureIndex uint32
	Animation    *Animation
	Tileset      *TilesetID
	Auto         *AutoTileID
}

// TileAccess reads & writes the records of existing tile entities.
type TileAccess interface {
	// Tile returns the record of entity `e`
	Tile(e Entity) (TileRecord, bool)

	// UpdateTile applies `fn` to the record of `e`. The record's Coord &
	// Parent are owned by the store and changes to them are ignored.
	UpdateTile(e Entity, fn func(*TileRecord)) error
}

// Store is a spatial store of tile entities: at most one entity per coordinate.
// It has no knowledge of tilesets or placement rules.
type Store interface {
	TileAccess

	// EntityAt returns the entity occupying `c`, if any
	EntityAt(c Coord) (Entity, bool)

	// SetTile sets the texture index at `c`, creating an entity if the
	// coordinate is empty
	SetTile(c Coord, textureIndex uint32) (Entity, error)

	// DespawnTile removes whatever occupies `c`. Removing from an empty
	// coordinate is not an error.
	DespawnTile(c Coord) error

	// MarkDirty flags the chunk holding `c` as needing a redraw
	MarkDirty(c Coord)
}

// LayerBuilder creates tiles in a layer that isn't yet visible through a Store.
type LayerBuilder interface {
	TileAccess

	// EntityAt returns the entity already built at `p`, if any
	EntityAt(p Pos) (Entity, bool)

	// SetTile sets the texture index at `p`, creating an entity if needed
	SetTile(p Pos, textureIndex uint32) (Entity, error)

	// DespawnTile removes the entity built at `p` (if any)
	DespawnTile(p Pos) error
}

// LayerReader lists the tiles of a single layer.
type LayerReader interface {
	// LayerSize returns the width & height (in tiles) of a layer
	LayerSize(mapID, layerID uint16) (uint32, uint32, error)

	// EachTile calls `fn` for every tile in a layer
	EachTile(mapID, layerID uint16, fn func(Entity, TileRecord)) error
}

// applyUpdate runs fn over a copy of rec, keeping store owned fields.
func applyUpdate(rec TileRecord, fn func(*TileRecord)) TileRecord {
	out := rec
	fn(&out)
	out.Coord = rec.Coord
	out.Parent = rec.Parent
	return out
}
