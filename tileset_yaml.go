package tilemap

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/go-yaml/yaml"
	"github.com/mitchellh/go-homedir"
)

// yamlTileset is the on disk form of a tileset, eg.
//
//	id: 1
//	name: terrain
//	tiles:
//	  - group: 0
//	    name: grass
//	    variants:
//	      - index: 0
//	      - index: 1
//	  - group: 1
//	    name: water
//	    auto: true
//	    variants:
//	      - animated: {start: 10, end: 13, speed: 2}
type yamlTileset struct {
	ID    TilesetID   `yaml:"id"`
	Name  string      `yaml:"name"`
	Tiles []*yamlTile `yaml:"tiles"`
}

type yamlTile struct {
	Group    GroupID        `yaml:"group"`
	Name     string         `yaml:"name"`
	Auto     bool           `yaml:"auto"`
	Index    *uint32        `yaml:"index"` // shorthand for a single standard variant
	Variants []*yamlVariant `yaml:"variants"`
}

type yamlVariant struct {
	Index    *uint32    `yaml:"index"`
	Animated *Animation `yaml:"animated"`
}

func (v *yamlVariant) toIndex() (TileIndex, error) {
	switch {
	case v.Index != nil && v.Animated != nil:
		return TileIndex{}, fmt.Errorf("variant sets both index & animated")
	case v.Index != nil:
		return StandardIndex(*v.Index), nil
	case v.Animated != nil:
		if v.Animated.End < v.Animated.Start {
			return TileIndex{}, fmt.Errorf("animation ends (%d) before it starts (%d)", v.Animated.End, v.Animated.Start)
		}
		return AnimatedIndex(v.Animated.Start, v.Animated.End, v.Animated.Speed), nil
	}
	return TileIndex{}, fmt.Errorf("variant sets neither index nor animated")
}

// DecodeTileset reads a YAML tileset definition
func DecodeTileset(r io.Reader) (*Tileset, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}

	in := &yamlTileset{}
	if err := yaml.Unmarshal(data, in); err != nil {
		return nil, err
	}

	ts := NewTileset(in.ID, in.Name)
	for _, t := range in.Tiles {
		g := &TileGroup{Group: t.Group, Name: t.Name, Auto: t.Auto}
		if t.Index != nil {
			g.Variants = append(g.Variants, StandardIndex(*t.Index))
		}
		for _, v := range t.Variants {
			idx, err := v.toIndex()
			if err != nil {
				return nil, fmt.Errorf("tileset %s group %d: %w", in.Name, t.Group, err)
			}
			g.Variants = append(g.Variants, idx)
		}

		if err := ts.AddGroup(g); err != nil {
			return nil, err
		}
	}

	return ts, nil
}

// LoadTileset reads a YAML tileset definition from disk
func LoadTileset(fname string) (*Tileset, error) {
	fname, err := homedir.Expand(fname)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return DecodeTileset(f)
}
