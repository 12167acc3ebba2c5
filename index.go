package tilemap

import "fmt"

// Animation describes a GPU animated tile; texture indexes Start through End
// inclusive played at Speed.
type Animation struct {
	Start uint32  `yaml:"start"`
	End   uint32  `yaml:"end"`
	Speed float32 `yaml:"speed"`
}

// TileIndex is the render data resolved for a TileID. It is either a single
// (standard) texture index or an animation.
type TileIndex struct {
	index     uint32
	animation *Animation
}

// StandardIndex returns a static TileIndex
func StandardIndex(i uint32) TileIndex {
	return TileIndex{index: i}
}

// AnimatedIndex returns an animated TileIndex
func AnimatedIndex(start, end uint32, speed float32) TileIndex {
	return TileIndex{index: start, animation: &Animation{Start: start, End: end, Speed: speed}}
}

// Base returns the texture index a tile shows initially; the start index
// for animations.
func (i TileIndex) Base() uint32 {
	return i.index
}

// IsAnimated reports if this is an animated index
func (i TileIndex) IsAnimated() bool {
	return i.animation != nil
}

// Animation returns a copy of the animation parameters, or nil if standard.
func (i TileIndex) Animation() *Animation {
	if i.animation == nil {
		return nil
	}
	a := *i.animation
	return &a
}

func (i TileIndex) String() string {
	if i.animation != nil {
		return fmt.Sprintf("animated(%d-%d @%.2f)", i.animation.Start, i.animation.End, i.animation.Speed)
	}
	return fmt.Sprintf("standard(%d)", i.index)
}

// TileData is metadata about a tile group.
type TileData struct {
	Name string
	Auto bool
}

// IsAuto reports if tiles of this group take part in auto tiling
func (d TileData) IsAuto() bool {
	return d.Auto
}
