package tilemap

import (
	"fmt"
	"sort"
)

type layerKey struct {
	mapID   uint16
	layerID uint16
}

// memRecord is a slot in the MemStore arena
type memRecord struct {
	gen   uint32
	alive bool
	rec   TileRecord
}

type memLayer struct {
	width  uint32
	height uint32
	tiles  map[Pos]Entity
}

func (l *memLayer) inBounds(p Pos) bool {
	return p.X < l.width && p.Y < l.height
}

// MemStore is an in memory Store. Tile records live in an arena; everything
// else (including the coordinate index) refers to them by Entity.
type MemStore struct {
	cfg     *Config
	records []memRecord
	free    []uint32
	layers  map[layerKey]*memLayer
	dirty   map[ChunkKey]bool
}

// NewMemStore returns an empty store
func NewMemStore(cfg *Config) *MemStore {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &MemStore{
		cfg: cfg,
		// slot 0 is reserved so NilEntity is never valid
		records: []memRecord{{}},
		free:    []uint32{},
		layers:  map[layerKey]*memLayer{},
		dirty:   map[ChunkKey]bool{},
	}
}

// CreateLayer adds an empty layer of the given size.
func (s *MemStore) CreateLayer(mapID, layerID uint16, width, height uint32) error {
	key := layerKey{mapID, layerID}
	if _, ok := s.layers[key]; ok {
		return fmt.Errorf("%w: map %d layer %d", ErrLayerExists, mapID, layerID)
	}
	s.layers[key] = &memLayer{width: width, height: height, tiles: map[Pos]Entity{}}
	return nil
}

// alloc reserves an arena slot for a new record
func (s *MemStore) alloc(rec TileRecord) Entity {
	var idx uint32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		s.records = append(s.records, memRecord{})
		idx = uint32(len(s.records) - 1)
	}

	slot := &s.records[idx]
	slot.gen++
	slot.alive = true
	slot.rec = rec
	return packEntity(idx, slot.gen)
}

func (s *MemStore) release(e Entity) {
	slot := s.slot(e)
	if slot == nil {
		return
	}
	slot.alive = false
	slot.rec = TileRecord{}
	s.free = append(s.free, e.index())
}

func (s *MemStore) slot(e Entity) *memRecord {
	idx := e.index()
	if idx == 0 || int(idx) >= len(s.records) {
		return nil
	}
	slot := &s.records[idx]
	if !slot.alive || slot.gen != e.generation() {
		return nil
	}
	return slot
}

func (s *MemStore) layer(c Coord) (*memLayer, error) {
	l, ok := s.layers[layerKey{c.MapID, c.LayerID}]
	if !ok {
		return nil, fmt.Errorf("%w: map %d layer %d", ErrNoLayer, c.MapID, c.LayerID)
	}
	if !l.inBounds(c.Pos) {
		return nil, fmt.Errorf("%w: %v (layer is %dx%d)", ErrOutOfBounds, c, l.width, l.height)
	}
	return l, nil
}

func (s *MemStore) newRecord(c Coord, textureIndex uint32) TileRecord {
	return TileRecord{
		Coord:        c,
		Parent:       Parent{MapID: c.MapID, LayerID: c.LayerID, Chunk: s.cfg.chunkOf(c.Pos)},
		TextureIndex: textureIndex,
	}
}

// EntityAt returns the entity at `c`
func (s *MemStore) EntityAt(c Coord) (Entity, bool) {
	l, err := s.layer(c)
	if err != nil {
		return NilEntity, false
	}
	e, ok := l.tiles[c.Pos]
	return e, ok
}

// SetTile sets the texture index at `c`. An existing entity keeps it's
// other components.
func (s *MemStore) SetTile(c Coord, textureIndex uint32) (Entity, error) {
	l, err := s.layer(c)
	if err != nil {
		return NilEntity, err
	}

	if e, ok := l.tiles[c.Pos]; ok {
		s.slot(e).rec.TextureIndex = textureIndex
		return e, nil
	}

	e := s.alloc(s.newRecord(c, textureIndex))
	l.tiles[c.Pos] = e
	return e, nil
}

// DespawnTile removes the entity at `c` (if any)
func (s *MemStore) DespawnTile(c Coord) error {
	l, err := s.layer(c)
	if err != nil {
		return err
	}

	e, ok := l.tiles[c.Pos]
	if !ok {
		return nil
	}
	delete(l.tiles, c.Pos)
	s.release(e)
	return nil
}

// MarkDirty flags the chunk holding `c`
func (s *MemStore) MarkDirty(c Coord) {
	s.dirty[ChunkKey{MapID: c.MapID, LayerID: c.LayerID, Chunk: s.cfg.chunkOf(c.Pos)}] = true
}

// DirtyChunks returns & clears all chunks marked dirty.
func (s *MemStore) DirtyChunks() []ChunkKey {
	return drainDirty(s.dirty)
}

// Tile returns the record of `e`
func (s *MemStore) Tile(e Entity) (TileRecord, bool) {
	slot := s.slot(e)
	if slot == nil {
		return TileRecord{}, false
	}
	return slot.rec, true
}

// UpdateTile modifies the record of `e`
func (s *MemStore) UpdateTile(e Entity, fn func(*TileRecord)) error {
	slot := s.slot(e)
	if slot == nil {
		return fmt.Errorf("%w: %v", ErrNoEntity, e)
	}
	slot.rec = applyUpdate(slot.rec, fn)
	return nil
}

// LayerSize returns the size of a layer
func (s *MemStore) LayerSize(mapID, layerID uint16) (uint32, uint32, error) {
	l, ok := s.layers[layerKey{mapID, layerID}]
	if !ok {
		return 0, 0, fmt.Errorf("%w: map %d layer %d", ErrNoLayer, mapID, layerID)
	}
	return l.width, l.height, nil
}

// EachTile calls `fn` for each tile in a layer, in row major order
func (s *MemStore) EachTile(mapID, layerID uint16, fn func(Entity, TileRecord)) error {
	l, ok := s.layers[layerKey{mapID, layerID}]
	if !ok {
		return fmt.Errorf("%w: map %d layer %d", ErrNoLayer, mapID, layerID)
	}

	positions := make([]Pos, 0, len(l.tiles))
	for p := range l.tiles {
		positions = append(positions, p)
	}
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].Y != positions[j].Y {
			return positions[i].Y < positions[j].Y
		}
		return positions[i].X < positions[j].X
	})

	for _, p := range positions {
		e := l.tiles[p]
		fn(e, s.records[e.index()].rec)
	}
	return nil
}

// NewLayer starts building a layer. Tiles set on the builder exist as
// entities straight away but can't be found by coordinate until the layer
// is spawned.
func (s *MemStore) NewLayer(mapID, layerID uint16, width, height uint32) *MemLayerBuilder {
	return &MemLayerBuilder{
		store:   s,
		mapID:   mapID,
		layerID: layerID,
		layer:   &memLayer{width: width, height: height, tiles: map[Pos]Entity{}},
	}
}

// SpawnLayer makes a built layer visible through the store.
// If the layer already exists the builder is discarded.
func (s *MemStore) SpawnLayer(b *MemLayerBuilder) error {
	if b.store != s {
		return fmt.Errorf("layer builder belongs to another store")
	}
	if b.done {
		return b.closedErr()
	}

	key := layerKey{b.mapID, b.layerID}
	if _, ok := s.layers[key]; ok {
		b.Discard()
		return fmt.Errorf("%w: map %d layer %d", ErrLayerExists, b.mapID, b.layerID)
	}

	s.layers[key] = b.layer
	b.done = true
	for p := range b.layer.tiles {
		s.MarkDirty(Coord{Pos: p, MapID: b.mapID, LayerID: b.layerID})
	}
	return nil
}

// MemLayerBuilder builds a layer for a MemStore
type MemLayerBuilder struct {
	store   *MemStore
	mapID   uint16
	layerID uint16
	layer   *memLayer

	// spawned or discarded
	done bool
}

func (b *MemLayerBuilder) closedErr() error {
	return fmt.Errorf("layer %d/%d already spawned or discarded", b.mapID, b.layerID)
}

// check returns an error if `p` can't be written to
func (b *MemLayerBuilder) check(p Pos) error {
	if b.done {
		return b.closedErr()
	}
	if !b.layer.inBounds(p) {
		c := Coord{Pos: p, MapID: b.mapID, LayerID: b.layerID}
		return fmt.Errorf("%w: %v (layer is %dx%d)", ErrOutOfBounds, c, b.layer.width, b.layer.height)
	}
	return nil
}

// EntityAt returns the entity built at `p`
func (b *MemLayerBuilder) EntityAt(p Pos) (Entity, bool) {
	if b.done {
		return NilEntity, false
	}
	e, ok := b.layer.tiles[p]
	return e, ok
}

// SetTile sets the texture index at `p`
func (b *MemLayerBuilder) SetTile(p Pos, textureIndex uint32) (Entity, error) {
	if err := b.check(p); err != nil {
		return NilEntity, err
	}
	c := Coord{Pos: p, MapID: b.mapID, LayerID: b.layerID}

	if e, ok := b.layer.tiles[p]; ok {
		b.store.slot(e).rec.TextureIndex = textureIndex
		return e, nil
	}

	e := b.store.alloc(b.store.newRecord(c, textureIndex))
	b.layer.tiles[p] = e
	return e, nil
}

// DespawnTile removes the entity built at `p` (if any)
func (b *MemLayerBuilder) DespawnTile(p Pos) error {
	if err := b.check(p); err != nil {
		return err
	}
	e, ok := b.layer.tiles[p]
	if !ok {
		return nil
	}
	delete(b.layer.tiles, p)
	b.store.release(e)
	return nil
}

// Discard drops an unspawned layer, releasing every entity built so far.
// Does nothing once the layer is spawned.
func (b *MemLayerBuilder) Discard() {
	if b.done {
		return
	}
	for p, e := range b.layer.tiles {
		delete(b.layer.tiles, p)
		b.store.release(e)
	}
	b.done = true
}

// Tile returns the record of `e`
func (b *MemLayerBuilder) Tile(e Entity) (TileRecord, bool) {
	return b.store.Tile(e)
}

// UpdateTile modifies the record of `e`
func (b *MemLayerBuilder) UpdateTile(e Entity, fn func(*TileRecord)) error {
	return b.store.UpdateTile(e, fn)
}

func drainDirty(dirty map[ChunkKey]bool) []ChunkKey {
	out := make([]ChunkKey, 0, len(dirty))
	for k := range dirty {
		out = append(out, k)
		delete(dirty, k)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.MapID != b.MapID {
			return a.MapID < b.MapID
		}
		if a.LayerID != b.LayerID {
			return a.LayerID < b.LayerID
		}
		if a.Chunk.Y != b.Chunk.Y {
			return a.Chunk.Y < b.Chunk.Y
		}
		return a.Chunk.X < b.Chunk.X
	})
	return out
}
