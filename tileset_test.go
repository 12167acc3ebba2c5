package tilemap

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tilesetYAML = `
id: 1
name: terrain
tiles:
  - group: 0
    name: grass
    variants:
      - index: 0
      - index: 1
  - group: 1
    name: dirt
    index: 2
  - group: 2
    name: water
    auto: true
    variants:
      - animated: {start: 10, end: 13, speed: 2}
`

func TestDecodeTileset(t *testing.T) {
	ts, err := DecodeTileset(bytes.NewBufferString(tilesetYAML))

	require.NoError(t, err)
	assert.Equal(t, terrain, ts.ID())
	assert.Equal(t, "terrain", ts.Name())
	assert.Len(t, ts.Groups(), 3)

	idx, data, ok := ts.Resolve(grass1)
	require.True(t, ok)
	assert.Equal(t, uint32(1), idx.Base())
	assert.False(t, idx.IsAnimated())
	assert.Equal(t, "grass", data.Name)

	idx, data, ok = ts.Resolve(dirt)
	require.True(t, ok)
	assert.Equal(t, uint32(2), idx.Base())

	idx, data, ok = ts.Resolve(water)
	require.True(t, ok)
	assert.True(t, idx.IsAnimated())
	assert.Equal(t, &Animation{Start: 10, End: 13, Speed: 2}, idx.Animation())
	assert.True(t, data.IsAuto())
}

func TestDecodeTilesetErrors(t *testing.T) {
	cases := map[string]string{
		"no variants": `
id: 1
tiles:
  - group: 0
`,
		"both index kinds": `
id: 1
tiles:
  - group: 0
    variants:
      - index: 1
        animated: {start: 1, end: 2, speed: 1}
`,
		"backwards animation": `
id: 1
tiles:
  - group: 0
    variants:
      - animated: {start: 5, end: 2, speed: 1}
`,
		"duplicate index": `
id: 1
tiles:
  - group: 0
    index: 1
  - group: 1
    index: 1
`,
		"duplicate group": `
id: 1
tiles:
  - group: 0
    index: 1
  - group: 0
    index: 2
`,
		"not yaml": `id: [`,
	}

	for name, in := range cases {
		_, err := DecodeTileset(bytes.NewBufferString(in))
		assert.Error(t, err, name)
	}
}

func TestLoadTileset(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "terrain.yaml")
	require.NoError(t, os.WriteFile(fname, []byte(tilesetYAML), 0644))

	ts, err := LoadTileset(fname)

	require.NoError(t, err)
	assert.Equal(t, "terrain", ts.Name())

	_, err = LoadTileset(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestTilesetReverseLookup(t *testing.T) {
	reg := testRegistry(t)
	ts, ok := reg.Tileset(terrain)
	require.True(t, ok)

	id, ok := ts.TileID(1)
	require.True(t, ok)
	assert.Equal(t, grass1, id)

	// animations are found by their start index
	id, ok = ts.TileID(10)
	require.True(t, ok)
	assert.True(t, id.EqGroup(water))

	_, ok = ts.TileID(11)
	assert.False(t, ok)
}

func TestTilesetResolveWrongTileset(t *testing.T) {
	reg := testRegistry(t)
	ts, _ := reg.Tileset(terrain)

	_, _, ok := ts.Resolve(rock)
	assert.False(t, ok)
}

func TestRegistry(t *testing.T) {
	reg := testRegistry(t)

	_, ok := reg.Tileset(props)
	assert.True(t, ok)
	_, ok = reg.Tileset(99)
	assert.False(t, ok)

	assert.Error(t, reg.Add(NewTileset(terrain, "again")))
}

func TestTileIDEqGroup(t *testing.T) {
	assert.True(t, grass.EqGroup(grass1))
	assert.True(t, grass1.EqGroup(grass.WithVariant(0)))
	assert.False(t, grass.EqGroup(dirt))
	assert.False(t, grass.EqGroup(rock)) // same group id, other tileset
	assert.NotEqual(t, grass, grass1)
}
