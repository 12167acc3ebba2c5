package tilemap

import (
	"encoding/json"
	"testing"

	"github.com/go-yaml/yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordYAML(t *testing.T) {
	in := At(4, 7, 2, 1)

	data, err := yaml.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), "map_id: 2")

	out := Coord{}
	require.NoError(t, yaml.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	err = yaml.Unmarshal([]byte("pos: [1, 2]\nmap_id: 3\nlayer_id: 4\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, At(1, 2, 3, 4), out)

	assert.Error(t, yaml.Unmarshal([]byte("pos: [1, 2, 3]\n"), &out))
}

func TestCoordJSON(t *testing.T) {
	data, err := json.Marshal(At(4, 7, 2, 1))
	require.NoError(t, err)
	assert.JSONEq(t, `{"pos": [4, 7], "map_id": 2, "layer_id": 1}`, string(data))

	out := Coord{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, At(4, 7, 2, 1), out)

	assert.Error(t, json.Unmarshal([]byte(`{"pos": [1]}`), &out))
}

func TestChunkOf(t *testing.T) {
	cases := []struct {
		pos    Pos
		w, h   uint32
		expect ChunkPos
	}{
		{Pos{0, 0}, 16, 16, ChunkPos{0, 0}},
		{Pos{15, 16}, 16, 16, ChunkPos{0, 1}},
		{Pos{33, 5}, 16, 4, ChunkPos{2, 1}},
		{Pos{3, 2}, 0, 0, ChunkPos{3, 2}},
	}

	for _, tt := range cases {
		assert.Equal(t, tt.expect, ChunkOf(tt.pos, tt.w, tt.h), "%v", tt.pos)
	}
}

func TestCoordIsKey(t *testing.T) {
	seen := map[Coord]int{}
	seen[At(1, 1, 0, 0)]++
	seen[At(1, 1, 0, 0)]++
	seen[At(1, 1, 0, 1)]++

	assert.Len(t, seen, 2)
	assert.Equal(t, "(1,1)@0/1", At(1, 1, 0, 1).String())
}
