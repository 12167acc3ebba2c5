package tilemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoTileEventsDedupe(t *testing.T) {
	q := NewAutoTileEvents()

	assert.Nil(t, q.Consume())

	assert.True(t, q.Push(RemoveAutoTileEvent{Entity: 3, Pos: Pos{1, 1}}))
	assert.True(t, q.Push(RemoveAutoTileEvent{Entity: 1}))
	assert.False(t, q.Push(RemoveAutoTileEvent{Entity: 3, Pos: Pos{9, 9}}))
	assert.Equal(t, 2, q.Len())

	evs := q.Consume()
	require.Len(t, evs, 2)
	assert.Equal(t, Entity(3), evs[0].Entity)
	assert.Equal(t, Pos{1, 1}, evs[0].Pos)
	assert.Equal(t, Entity(1), evs[1].Entity)
	assert.Equal(t, 0, q.Len())

	// consumed entities can be queued again
	assert.True(t, q.Push(RemoveAutoTileEvent{Entity: 3}))

	// as can the same entity once linked to another group
	assert.True(t, q.Push(RemoveAutoTileEvent{Entity: 3, AutoID: AutoTileID{Group: 2}}))
	assert.Equal(t, 2, q.Len())
}

func TestAutoTilerApply(t *testing.T) {
	s := NewMemStore(nil)
	require.NoError(t, s.CreateLayer(0, 0, 4, 4))
	e, err := s.SetTile(At(1, 3, 0, 0), 20)
	require.NoError(t, err)

	a := NewAutoTiler(NewAutoTileEvents())

	require.NoError(t, a.Apply(s, wall, TileData{Name: "wall", Auto: true}, e))
	rec, _ := s.Tile(e)
	require.NotNil(t, rec.Auto)
	assert.Equal(t, AutoTileID{Group: wall.Group, Tileset: terrain}, *rec.Auto)
	assert.Equal(t, 0, a.Events().Len())

	// changing to a plain tile drops the link & announces it
	require.NoError(t, a.Apply(s, dirt, TileData{Name: "dirt"}, e))
	rec, _ = s.Tile(e)
	assert.Nil(t, rec.Auto)

	evs := a.Events().Consume()
	require.Len(t, evs, 1)
	assert.Equal(t, RemoveAutoTileEvent{
		Entity: e,
		Pos:    Pos{1, 3},
		Parent: rec.Parent,
		AutoID: AutoTileID{Group: wall.Group, Tileset: terrain},
	}, evs[0])

	// a plain tile stays plain & silent
	require.NoError(t, a.Apply(s, dirt, TileData{Name: "dirt"}, e))
	assert.Equal(t, 0, a.Events().Len())
}

func TestAutoTilerTryRemove(t *testing.T) {
	s := NewMemStore(nil)
	require.NoError(t, s.CreateLayer(0, 0, 4, 4))
	e, err := s.SetTile(At(0, 0, 0, 0), 20)
	require.NoError(t, err)

	a := NewAutoTiler(NewAutoTileEvents())

	assert.False(t, a.TryRemove(s, e))
	assert.False(t, a.TryRemove(s, NilEntity))

	require.NoError(t, a.Apply(s, wall, TileData{Auto: true}, e))
	assert.True(t, a.TryRemove(s, e))
	assert.False(t, a.TryRemove(s, e))
	assert.Equal(t, 1, a.Events().Len())
}
