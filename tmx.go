/* this file writes a single map layer out as a TMX (Tiled) map so it can be
inspected / edited by hand.

We only write the subset of TMX that we need:
- one tileset per tileset referenced by the layer (gid = firstgid + texture index)
- CSV tile data, no compression
- the 'orthogonal' orientation
*/
package tilemap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"io/ioutil"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// untaggedTileset names tiles that don't record a tileset
const untaggedTileset = "untagged"

// tmxMap is the TMX structure representing the map as a whole.
type tmxMap struct {
	XMLName        xml.Name      `xml:"map"`
	Version        string        `xml:"version,attr"`
	Orientation    string        `xml:"orientation,attr"`
	Width          int           `xml:"width,attr"`      // in tiles
	Height         int           `xml:"height,attr"`     // in tiles
	TileWidth      int           `xml:"tilewidth,attr"`  // in pixels
	TileHeight     int           `xml:"tileheight,attr"` // in pixels
	RootProperties []*Property   `xml:"properties>property"`
	Tilesets       []*tmxTileset `xml:"tileset"`
	TileLayers     []*tmxLayer   `xml:"layer"`
}

// tmxTileset is a TMX tileset
type tmxTileset struct {
	FirstGID   uint32     `xml:"firstgid,attr"`
	Name       string     `xml:"name,attr"`
	TileWidth  int        `xml:"tilewidth,attr"`
	TileHeight int        `xml:"tileheight,attr"`
	TileCount  int        `xml:"tilecount,attr"`
	Tiles      []*tmxTile `xml:"tile"`

	// the largest texture index this tileset needs a gid for
	maxIndex uint32
}

// Property is a TMX property
type Property struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
	Type  string `xml:"type,attr"`
}

// tmxTile is a TMX tile (from a tileset)
type tmxTile struct {
	ID         uint32        `xml:"id,attr"`
	Properties []*Property   `xml:"properties>property"`
	Animation  *tmxAnimation `xml:"animation,omitempty"`
}

type tmxAnimation struct {
	Frames []*tmxFrame `xml:"frame"`
}

type tmxFrame struct {
	TileID   uint32 `xml:"tileid,attr"`
	Duration int    `xml:"duration,attr"` // milliseconds
}

// tmxLayer is a TMX tile layer
type tmxLayer struct {
	ID     uint   `xml:"id,attr"`
	Name   string `xml:"name,attr"`
	Width  int    `xml:"width,attr"`
	Height int    `xml:"height,attr"`
	Data   Data   `xml:"data"`
}

// Data is a TMX file structure holding data.
type Data struct {
	Encoding    string `xml:"encoding,attr"`
	Compression string `xml:"compression,attr,omitempty"`
	RawData     []byte `xml:",innerxml"`
}

// encodeCSV turns our list of tile ids into csv format
func (d *Data) encodeCSV(width, height int, in []uint32) ([]byte, error) {
	if len(in) != width*height {
		return nil, fmt.Errorf("expected %d tiles, got %d", width*height, len(in))
	}

	values := make([]string, height)
	for row := 0; row < height; row++ {
		csvrow := make([]string, width)
		for col := 0; col < width; col++ {
			csvrow[col] = strconv.Itoa(int(in[row*width+col]))
		}
		values[row] = strings.Join(csvrow, ",")
	}

	return []byte("\n" + strings.Join(values, ",\n") + "\n"), nil
}

// frameDuration converts an animation speed (frames per second) to a TMX
// frame duration
func frameDuration(speed float32) int {
	if speed <= 0 {
		return 100
	}
	ms := int(1000 / speed)
	if ms < 1 {
		ms = 1
	}
	return ms
}

// newTMXTileset describes a registered tileset, including properties &
// animations of every variant
func newTMXTileset(ts *Tileset, cfg *Config) *tmxTileset {
	out := &tmxTileset{
		Name:       ts.Name(),
		TileWidth:  int(cfg.TileWidth),
		TileHeight: int(cfg.TileHeight),
		Tiles:      []*tmxTile{},
	}

	for _, g := range ts.Groups() {
		for v, idx := range g.Variants {
			t := &tmxTile{ID: idx.Base(), Properties: tileProperties(g, v).toList()}
			if anim := idx.Animation(); anim != nil {
				t.Animation = &tmxAnimation{}
				for f := anim.Start; f <= anim.End; f++ {
					t.Animation.Frames = append(t.Animation.Frames, &tmxFrame{TileID: f, Duration: frameDuration(anim.Speed)})
				}
				if anim.End > out.maxIndex {
					out.maxIndex = anim.End
				}
			}
			if idx.Base() > out.maxIndex {
				out.maxIndex = idx.Base()
			}
			out.Tiles = append(out.Tiles, t)
		}
	}

	sort.Slice(out.Tiles, func(i, j int) bool { return out.Tiles[i].ID < out.Tiles[j].ID })
	return out
}

// EncodeTMX writes a single layer as a TMX map.
func EncodeTMX(w io.Writer, src LayerReader, tilesets Tilesets, mapID, layerID uint16, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	width, height, err := src.LayerSize(mapID, layerID)
	if err != nil {
		return err
	}

	type placed struct {
		index   int
		texture uint32
		tileset string
	}
	tiles := []placed{}
	used := map[string]*tmxTileset{}

	err = src.EachTile(mapID, layerID, func(_ Entity, rec TileRecord) {
		name := untaggedTileset
		if rec.Tileset != nil {
			name = fmt.Sprintf("tileset-%d", *rec.Tileset)
			ts, ok := tilesets.Tileset(*rec.Tileset)
			if ok {
				name = ts.Name()
			}
			if _, ok := used[name]; !ok && ts != nil {
				used[name] = newTMXTileset(ts, cfg)
			}
		}
		if _, ok := used[name]; !ok {
			used[name] = &tmxTileset{Name: name, TileWidth: int(cfg.TileWidth), TileHeight: int(cfg.TileHeight), Tiles: []*tmxTile{}}
		}
		if rec.TextureIndex > used[name].maxIndex {
			used[name].maxIndex = rec.TextureIndex
		}
		tiles = append(tiles, placed{
			index:   int(rec.Coord.Pos.Y*width + rec.Coord.Pos.X),
			texture: rec.TextureIndex,
			tileset: name,
		})
	})
	if err != nil {
		return err
	}

	// tiled requires tilesets in firstgid order, we hand them out by name
	names := make([]string, 0, len(used))
	for name := range used {
		names = append(names, name)
	}
	sort.Strings(names)

	m := &tmxMap{
		Version:     "1.4",
		Orientation: "orthogonal",
		Width:       int(width),
		Height:      int(height),
		TileWidth:   int(cfg.TileWidth),
		TileHeight:  int(cfg.TileHeight),
		Tilesets:    []*tmxTileset{},
	}

	props := NewProperties()
	props.SetInt("map_id", int(mapID))
	props.SetInt("layer_id", int(layerID))
	m.RootProperties = props.toList()

	gid := uint32(1)
	for _, name := range names {
		ts := used[name]
		ts.FirstGID = gid
		ts.TileCount = int(ts.maxIndex) + 1
		gid += ts.maxIndex + 1
		m.Tilesets = append(m.Tilesets, ts)
	}

	gids := make([]uint32, int(width)*int(height))
	for _, t := range tiles {
		gids[t.index] = used[t.tileset].FirstGID + t.texture
	}

	l := &tmxLayer{
		ID:     1,
		Name:   fmt.Sprintf("%d", layerID),
		Width:  int(width),
		Height: int(height),
		Data:   Data{Encoding: "csv"},
	}
	l.Data.RawData, err = l.Data.encodeCSV(l.Width, l.Height, gids)
	if err != nil {
		return err
	}
	m.TileLayers = []*tmxLayer{l}

	enc := xml.NewEncoder(w)
	enc.Indent("", " ")
	return enc.Encode(m)
}

// WriteTMXFile writes a single layer as a TMX map file
func WriteTMXFile(fname string, src LayerReader, tilesets Tilesets, mapID, layerID uint16, cfg *Config) error {
	fname, err := homedir.Expand(fname)
	if err != nil {
		return err
	}

	buff := bytes.Buffer{}
	err = EncodeTMX(&buff, src, tilesets, mapID, layerID, cfg)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(fname, buff.Bytes(), 0644)
}
