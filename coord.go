package tilemap

import (
	"encoding/json"
	"fmt"
)

// Pos is a tile position within a layer, in tiles.
type Pos struct {
	X uint32
	Y uint32
}

// Coord identifies a single grid cell: a position on a given map & layer.
// It's a plain value & safe to use as a map key.
type Coord struct {
	Pos     Pos    `yaml:"pos" json:"pos"`
	MapID   uint16 `yaml:"map_id" json:"map_id"`
	LayerID uint16 `yaml:"layer_id" json:"layer_id"`
}

// At is shorthand for building a Coord
func At(x, y uint32, mapID, layerID uint16) Coord {
	return Coord{Pos: Pos{X: x, Y: y}, MapID: mapID, LayerID: layerID}
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)@%d/%d", c.Pos.X, c.Pos.Y, c.MapID, c.LayerID)
}

// Pos serializes as a bare [x, y] pair.
func (p Pos) MarshalYAML() (interface{}, error) {
	return []uint32{p.X, p.Y}, nil
}

func (p *Pos) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var xy []uint32
	if err := unmarshal(&xy); err != nil {
		return err
	}
	return p.fromPair(xy)
}

func (p Pos) MarshalJSON() ([]byte, error) {
	return json.Marshal([]uint32{p.X, p.Y})
}

func (p *Pos) UnmarshalJSON(data []byte) error {
	var xy []uint32
	if err := json.Unmarshal(data, &xy); err != nil {
		return err
	}
	return p.fromPair(xy)
}

func (p *Pos) fromPair(xy []uint32) error {
	if len(xy) != 2 {
		return fmt.Errorf("expected [x, y] position, got %d values", len(xy))
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

// ChunkPos is the position of a render chunk within a layer, in chunks.
type ChunkPos struct {
	X uint32
	Y uint32
}

// ChunkKey identifies a render chunk on a specific map & layer. Stores mark
// these dirty whenever a tile inside changes.
type ChunkKey struct {
	MapID   uint16
	LayerID uint16
	Chunk   ChunkPos
}

// ChunkOf returns the chunk containing `p` for the given chunk size (in tiles).
func ChunkOf(p Pos, chunkWidth, chunkHeight uint32) ChunkPos {
	if chunkWidth == 0 {
		chunkWidth = 1
	}
	if chunkHeight == 0 {
		chunkHeight = 1
	}
	return ChunkPos{X: p.X / chunkWidth, Y: p.Y / chunkHeight}
}
