package tilemap

import (
	"bytes"
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tmxFixture is a 3x2 layer holding tiles from both tilesets plus one tile
// with no tileset at all
func tmxFixture(t *testing.T) (*MemStore, *Registry) {
	store := NewMemStore(nil)
	require.NoError(t, store.CreateLayer(0, 0, 3, 2))
	reg := testRegistry(t)
	p := NewPlacer(store, reg, nil)

	_, err := p.Place(grass, At(0, 0, 0, 0))
	require.NoError(t, err)
	_, err = p.Place(water, At(1, 0, 0, 0))
	require.NoError(t, err)
	_, err = p.Place(rock, At(2, 1, 0, 0))
	require.NoError(t, err)
	_, err = store.SetTile(At(0, 1, 0, 0), 5)
	require.NoError(t, err)

	return store, reg
}

func TestEncodeTMX(t *testing.T) {
	store, reg := tmxFixture(t)
	buf := bytes.Buffer{}

	err := EncodeTMX(&buf, store, reg, 0, 0, nil)
	require.NoError(t, err)

	m := &tmxMap{}
	require.NoError(t, xml.Unmarshal(buf.Bytes(), m))

	assert.Equal(t, 3, m.Width)
	assert.Equal(t, 2, m.Height)
	assert.Equal(t, 32, m.TileWidth)
	require.Len(t, m.RootProperties, 2)
	assert.Equal(t, "layer_id", m.RootProperties[0].Name)
	assert.Equal(t, "map_id", m.RootProperties[1].Name)

	// tilesets are ordered by name & given consecutive gid ranges
	require.Len(t, m.Tilesets, 3)
	assert.Equal(t, "props", m.Tilesets[0].Name)
	assert.Equal(t, uint32(1), m.Tilesets[0].FirstGID)
	assert.Equal(t, "terrain", m.Tilesets[1].Name)
	assert.Equal(t, uint32(2), m.Tilesets[1].FirstGID)
	assert.Equal(t, 21, m.Tilesets[1].TileCount)
	assert.Equal(t, untaggedTileset, m.Tilesets[2].Name)
	assert.Equal(t, uint32(23), m.Tilesets[2].FirstGID)

	require.Len(t, m.TileLayers, 1)
	assert.Equal(t, "csv", m.TileLayers[0].Data.Encoding)
	assert.Equal(t, "\n2,12,0,\n28,0,1\n", string(m.TileLayers[0].Data.RawData))
}

func TestEncodeTMXTileDetails(t *testing.T) {
	store, reg := tmxFixture(t)
	buf := bytes.Buffer{}
	require.NoError(t, EncodeTMX(&buf, store, reg, 0, 0, nil))

	m := &tmxMap{}
	require.NoError(t, xml.Unmarshal(buf.Bytes(), m))

	terrainSet := m.Tilesets[1]
	ids := []uint32{}
	var waterTile *tmxTile
	for _, tile := range terrainSet.Tiles {
		ids = append(ids, tile.ID)
		if tile.ID == 10 {
			waterTile = tile
		}
	}
	assert.Equal(t, []uint32{0, 1, 2, 10, 20}, ids)

	require.NotNil(t, waterTile)
	require.NotNil(t, waterTile.Animation)
	require.Len(t, waterTile.Animation.Frames, 4)
	assert.Equal(t, uint32(13), waterTile.Animation.Frames[3].TileID)
	assert.Equal(t, 500, waterTile.Animation.Frames[0].Duration)

	props := map[string]string{}
	for _, p := range waterTile.Properties {
		props[p.Name] = p.Value
	}
	assert.Equal(t, map[string]string{"auto": "true", "group": "2", "name": "water", "variant": "0"}, props)

	assert.Empty(t, m.Tilesets[2].Tiles)
}

func TestEncodeTMXMissingLayer(t *testing.T) {
	store, reg := tmxFixture(t)
	err := EncodeTMX(&bytes.Buffer{}, store, reg, 0, 9, nil)
	assert.ErrorIs(t, err, ErrNoLayer)
}

func TestWriteTMXFile(t *testing.T) {
	store, reg := tmxFixture(t)
	fname := filepath.Join(t.TempDir(), "out.tmx")

	require.NoError(t, WriteTMXFile(fname, store, reg, 0, 0, nil))

	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("<map ")))
}

func TestFrameDuration(t *testing.T) {
	assert.Equal(t, 500, frameDuration(2))
	assert.Equal(t, 100, frameDuration(0))
	assert.Equal(t, 100, frameDuration(-1))
	assert.Equal(t, 1, frameDuration(5000))
}

func TestEncodeCSV(t *testing.T) {
	d := &Data{}

	out, err := d.encodeCSV(2, 2, []uint32{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, "\n1,2,\n3,4\n", string(out))

	_, err = d.encodeCSV(2, 2, []uint32{1})
	assert.Error(t, err)
}
