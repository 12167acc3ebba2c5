package tilemap

import "fmt"

// TilesetID names a tileset within a Registry
type TilesetID uint16

// GroupID names a logical tile (eg. "grass") within a tileset
type GroupID uint32

// AnyVariant is used as TileID.Variant when the caller doesn't care which
// variant of a group is used.
const AnyVariant = -1

// TileID is the logical identifier of a kind of tile.
type TileID struct {
	Tileset TilesetID `yaml:"tileset" json:"tileset"`
	Group   GroupID   `yaml:"group" json:"group"`
	Variant int       `yaml:"variant" json:"variant"`
}

// NewTileID returns the ID for a group, with no particular variant.
func NewTileID(tileset TilesetID, group GroupID) TileID {
	return TileID{Tileset: tileset, Group: group, Variant: AnyVariant}
}

// WithVariant returns a copy of this ID pinned to the given variant
func (t TileID) WithVariant(v int) TileID {
	t.Variant = v
	return t
}

// EqGroup reports if both IDs name the same group in the same tileset.
// Variants are ignored.
func (t TileID) EqGroup(o TileID) bool {
	return t.Tileset == o.Tileset && t.Group == o.Group
}

func (t TileID) String() string {
	if t.Variant == AnyVariant {
		return fmt.Sprintf("%d:%d", t.Tileset, t.Group)
	}
	return fmt.Sprintf("%d:%d:%d", t.Tileset, t.Group, t.Variant)
}
