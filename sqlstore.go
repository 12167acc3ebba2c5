package tilemap

import (
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mitchellh/go-homedir"
)

const (
	sqlCreateLayers = `CREATE TABLE IF NOT EXISTS layers(
		map_id INTEGER NOT NULL,
		layer_id INTEGER NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		built INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (map_id, layer_id)
	    );`
	sqlCreateTiles = `CREATE TABLE IF NOT EXISTS tiles(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		map_id INTEGER NOT NULL,
		layer_id INTEGER NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		texture INTEGER NOT NULL,
		animated INTEGER NOT NULL DEFAULT 0,
		anim_start INTEGER NOT NULL DEFAULT 0,
		anim_end INTEGER NOT NULL DEFAULT 0,
		anim_speed REAL NOT NULL DEFAULT 0,
		has_tileset INTEGER NOT NULL DEFAULT 0,
		tileset INTEGER NOT NULL DEFAULT 0,
		is_auto INTEGER NOT NULL DEFAULT 0,
		auto_group INTEGER NOT NULL DEFAULT 0,
		auto_tileset INTEGER NOT NULL DEFAULT 0
	    );`
	sqlCreateTilesIndex = `CREATE UNIQUE INDEX IF NOT EXISTS tiles_coord ON tiles (map_id, layer_id, x, y);`

	sqlInsertTile = `INSERT INTO tiles (map_id, layer_id, x, y, texture) VALUES (:map_id, :layer_id, :x, :y, :texture);`
	sqlUpdateTile = `UPDATE tiles SET texture=:texture,
		animated=:animated, anim_start=:anim_start, anim_end=:anim_end, anim_speed=:anim_speed,
		has_tileset=:has_tileset, tileset=:tileset,
		is_auto=:is_auto, auto_group=:auto_group, auto_tileset=:auto_tileset
		WHERE id=:id;`
	sqlSelectTile = `SELECT * FROM tiles WHERE id=? LIMIT 1;`
	sqlTileAt     = `SELECT id FROM tiles WHERE map_id=? AND layer_id=? AND x=? AND y=? LIMIT 1;`
	sqlLayer      = `SELECT * FROM layers WHERE map_id=? AND layer_id=? LIMIT 1;`
)

// NewSQLStore creates a store in a randomly named database in the os tempdir.
func NewSQLStore(cfg *Config) (*SQLStore, error) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	fname := filepath.Join(os.TempDir(), fmt.Sprintf("tilemap.%d.sqlite", rng.Intn(1000000)))
	return OpenSQLStore(fname, cfg)
}

// OpenSQLStore given it's filename (database file) on disk.
// Will create if it doesn't exist.
func OpenSQLStore(fname string, cfg *Config) (*SQLStore, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	fname, err := homedir.Expand(fname)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite3", fname)
	if err != nil {
		return nil, err
	}
	// sqlite only allows one writer anyway
	db.SetMaxOpenConns(1)

	size := cfg.CacheSize
	if size < 1 {
		size = 1
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, Entity]{
		NumCounters: size * 10,
		MaxCost:     size,
		BufferItems: 64,
		// cost is the number of entries
		IgnoreInternalCost: true,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLStore{filename: fname, db: db, cfg: cfg, cache: cache, dirty: map[ChunkKey]bool{}}
	if err := s.init(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// SQLStore is a Store kept in an sqlite database, so maps can be larger than
// memory & outlive the process.
// Coordinate lookups are cached in memory.
type SQLStore struct {
	filename string
	db       *sqlx.DB
	cfg      *Config
	cache    *ristretto.Cache[string, Entity]
	dirty    map[ChunkKey]bool
}

// Filename returns the path to the database on disk
func (s *SQLStore) Filename() string {
	return s.filename
}

// Close the database
func (s *SQLStore) Close() error {
	s.cache.Close()
	return s.db.Close()
}

// CreateLayer adds an empty layer of the given size.
func (s *SQLStore) CreateLayer(mapID, layerID uint16, width, height uint32) error {
	return s.insertLayer(mapID, layerID, width, height, true)
}

func (s *SQLStore) insertLayer(mapID, layerID uint16, width, height uint32, built bool) error {
	_, ok, err := s.layer(mapID, layerID)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: map %d layer %d", ErrLayerExists, mapID, layerID)
	}

	_, err = s.db.NamedExec(
		`INSERT INTO layers (map_id, layer_id, width, height, built) VALUES (:map_id, :layer_id, :width, :height, :built);`,
		dbLayer{MapID: mapID, LayerID: layerID, Width: width, Height: height, Built: built},
	)
	return err
}

// layer returns the layer row (whether built or not)
func (s *SQLStore) layer(mapID, layerID uint16) (*dbLayer, bool, error) {
	l := &dbLayer{}
	err := s.db.Get(l, sqlLayer, mapID, layerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return l, true, nil
}

// checkCoord returns an error if `c` isn't within a built layer
func (s *SQLStore) checkCoord(c Coord) error {
	l, ok, err := s.layer(c.MapID, c.LayerID)
	if err != nil {
		return err
	}
	if !ok || !l.Built {
		return fmt.Errorf("%w: map %d layer %d", ErrNoLayer, c.MapID, c.LayerID)
	}
	if c.Pos.X >= l.Width || c.Pos.Y >= l.Height {
		return fmt.Errorf("%w: %v (layer is %dx%d)", ErrOutOfBounds, c, l.Width, l.Height)
	}
	return nil
}

// EntityAt returns the entity at `c`
func (s *SQLStore) EntityAt(c Coord) (Entity, bool) {
	key := cacheKey(c)
	if e, ok := s.cache.Get(key); ok {
		return e, true
	}

	if err := s.checkCoord(c); err != nil {
		return NilEntity, false
	}

	e, ok, err := s.tileAt(c)
	if err != nil {
		log.WithError(err).WithField("coord", c).Error("failed to look up tile")
		return NilEntity, false
	}
	if ok {
		s.cache.Set(key, e, 1)
		s.cache.Wait()
	}
	return e, ok
}

func (s *SQLStore) tileAt(c Coord) (Entity, bool, error) {
	var id int64
	err := s.db.Get(&id, sqlTileAt, c.MapID, c.LayerID, c.Pos.X, c.Pos.Y)
	if errors.Is(err, sql.ErrNoRows) {
		return NilEntity, false, nil
	}
	if err != nil {
		return NilEntity, false, err
	}
	return Entity(id), true, nil
}

// SetTile sets the texture index at `c`. An existing entity keeps it's
// other components.
func (s *SQLStore) SetTile(c Coord, textureIndex uint32) (Entity, error) {
	if err := s.checkCoord(c); err != nil {
		return NilEntity, err
	}

	e, err := s.setTile(c, textureIndex)
	if err != nil {
		return NilEntity, err
	}
	s.cache.Set(cacheKey(c), e, 1)
	s.cache.Wait()
	return e, nil
}

// setTile upserts a tile without checking the layer or touching the cache
func (s *SQLStore) setTile(c Coord, textureIndex uint32) (Entity, error) {
	e, ok, err := s.tileAt(c)
	if err != nil {
		return NilEntity, err
	}
	if ok {
		_, err = s.db.Exec(`UPDATE tiles SET texture=? WHERE id=?;`, textureIndex, int64(e))
		return e, err
	}

	res, err := s.db.NamedExec(sqlInsertTile, newDBTile(e, TileRecord{Coord: c, TextureIndex: textureIndex}))
	if err != nil {
		return NilEntity, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return NilEntity, err
	}

	return Entity(id), nil
}

// DespawnTile removes the entity at `c` (if any)
func (s *SQLStore) DespawnTile(c Coord) error {
	if err := s.checkCoord(c); err != nil {
		return err
	}
	s.cache.Del(cacheKey(c))
	_, err := s.db.Exec(`DELETE FROM tiles WHERE map_id=? AND layer_id=? AND x=? AND y=?;`, c.MapID, c.LayerID, c.Pos.X, c.Pos.Y)
	return err
}

// MarkDirty flags the chunk holding `c`
func (s *SQLStore) MarkDirty(c Coord) {
	s.dirty[ChunkKey{MapID: c.MapID, LayerID: c.LayerID, Chunk: s.cfg.chunkOf(c.Pos)}] = true
}

// DirtyChunks returns & clears all chunks marked dirty.
func (s *SQLStore) DirtyChunks() []ChunkKey {
	return drainDirty(s.dirty)
}

// Tile returns the record of `e`
func (s *SQLStore) Tile(e Entity) (TileRecord, bool) {
	t := dbTile{}
	err := s.db.Get(&t, sqlSelectTile, int64(e))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.WithError(err).WithField("entity", e).Error("failed to read tile")
		}
		return TileRecord{}, false
	}
	return t.record(s.cfg), true
}

// UpdateTile modifies the record of `e`
func (s *SQLStore) UpdateTile(e Entity, fn func(*TileRecord)) error {
	rec, ok := s.Tile(e)
	if !ok {
		return fmt.Errorf("%w: %v", ErrNoEntity, e)
	}
	_, err := s.db.NamedExec(sqlUpdateTile, newDBTile(e, applyUpdate(rec, fn)))
	return err
}

// LayerSize returns the size of a layer
func (s *SQLStore) LayerSize(mapID, layerID uint16) (uint32, uint32, error) {
	l, ok, err := s.layer(mapID, layerID)
	if err != nil {
		return 0, 0, err
	}
	if !ok || !l.Built {
		return 0, 0, fmt.Errorf("%w: map %d layer %d", ErrNoLayer, mapID, layerID)
	}
	return l.Width, l.Height, nil
}

// EachTile calls `fn` for each tile in a layer, in row major order
func (s *SQLStore) EachTile(mapID, layerID uint16, fn func(Entity, TileRecord)) error {
	if _, _, err := s.LayerSize(mapID, layerID); err != nil {
		return err
	}

	rows, err := s.db.Queryx(`SELECT * FROM tiles WHERE map_id=? AND layer_id=? ORDER BY y, x;`, mapID, layerID)
	if err != nil {
		return err
	}
	defer rows.Close()

	t := dbTile{}
	for rows.Next() {
		if err := rows.StructScan(&t); err != nil {
			return err
		}
		fn(Entity(t.ID), t.record(s.cfg))
	}
	return rows.Err()
}

// NewLayer starts building a layer. Tiles set on the builder exist as
// entities straight away but can't be found by coordinate until the layer
// is spawned.
func (s *SQLStore) NewLayer(mapID, layerID uint16, width, height uint32) (*SQLLayerBuilder, error) {
	if err := s.insertLayer(mapID, layerID, width, height, false); err != nil {
		return nil, err
	}
	return &SQLLayerBuilder{store: s, mapID: mapID, layerID: layerID, width: width, height: height}, nil
}

// SpawnLayer makes a built layer visible through the store.
func (s *SQLStore) SpawnLayer(b *SQLLayerBuilder) error {
	if b.store != s {
		return fmt.Errorf("layer builder belongs to another store")
	}

	res, err := s.db.Exec(`UPDATE layers SET built=1 WHERE map_id=? AND layer_id=? AND built=0;`, b.mapID, b.layerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("layer %d/%d already spawned", b.mapID, b.layerID)
	}

	return s.EachTile(b.mapID, b.layerID, func(_ Entity, rec TileRecord) {
		s.MarkDirty(rec.Coord)
	})
}

// SQLLayerBuilder builds a layer for an SQLStore
type SQLLayerBuilder struct {
	store   *SQLStore
	mapID   uint16
	layerID uint16
	width   uint32
	height  uint32
}

func (b *SQLLayerBuilder) coord(p Pos) (Coord, error) {
	c := Coord{Pos: p, MapID: b.mapID, LayerID: b.layerID}
	if p.X >= b.width || p.Y >= b.height {
		return c, fmt.Errorf("%w: %v (layer is %dx%d)", ErrOutOfBounds, c, b.width, b.height)
	}
	return c, nil
}

// EntityAt returns the entity built at `p`
func (b *SQLLayerBuilder) EntityAt(p Pos) (Entity, bool) {
	c, err := b.coord(p)
	if err != nil {
		return NilEntity, false
	}
	e, ok, err := b.store.tileAt(c)
	if err != nil {
		log.WithError(err).WithField("coord", c).Error("failed to look up tile")
		return NilEntity, false
	}
	return e, ok
}

// SetTile sets the texture index at `p`
func (b *SQLLayerBuilder) SetTile(p Pos, textureIndex uint32) (Entity, error) {
	c, err := b.coord(p)
	if err != nil {
		return NilEntity, err
	}
	return b.store.setTile(c, textureIndex)
}

// DespawnTile removes the entity built at `p` (if any)
func (b *SQLLayerBuilder) DespawnTile(p Pos) error {
	c, err := b.coord(p)
	if err != nil {
		return err
	}
	_, err = b.store.db.Exec(`DELETE FROM tiles WHERE map_id=? AND layer_id=? AND x=? AND y=?;`, c.MapID, c.LayerID, c.Pos.X, c.Pos.Y)
	return err
}

// Discard drops an unspawned layer & every tile built in it.
func (b *SQLLayerBuilder) Discard() error {
	tx, err := b.store.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM layers WHERE map_id=? AND layer_id=? AND built=0;`, b.mapID, b.layerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("layer %d/%d already spawned or discarded", b.mapID, b.layerID)
	}

	_, err = tx.Exec(`DELETE FROM tiles WHERE map_id=? AND layer_id=?;`, b.mapID, b.layerID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Tile returns the record of `e`
func (b *SQLLayerBuilder) Tile(e Entity) (TileRecord, bool) {
	return b.store.Tile(e)
}

// UpdateTile modifies the record of `e`
func (b *SQLLayerBuilder) UpdateTile(e Entity, fn func(*TileRecord)) error {
	return b.store.UpdateTile(e, fn)
}

// init creates some DB tables for us if they don't exist
func (s *SQLStore) init() error {
	for _, stmt := range []string{sqlCreateLayers, sqlCreateTiles, sqlCreateTilesIndex} {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func cacheKey(c Coord) string {
	return fmt.Sprintf("%d/%d/%d/%d", c.MapID, c.LayerID, c.Pos.X, c.Pos.Y)
}

// dbLayer is a row of the layers table
type dbLayer struct {
	MapID   uint16 `db:"map_id"`
	LayerID uint16 `db:"layer_id"`
	Width   uint32 `db:"width"`
	Height  uint32 `db:"height"`
	Built   bool   `db:"built"`
}

// dbTile is a row of the tiles table. Optional record fields are flattened
// into a flag column plus value columns.
type dbTile struct {
	ID          int64   `db:"id"`
	MapID       uint16  `db:"map_id"`
	LayerID     uint16  `db:"layer_id"`
	X           uint32  `db:"x"`
	Y           uint32  `db:"y"`
	Texture     uint32  `db:"texture"`
	Animated    bool    `db:"animated"`
	AnimStart   uint32  `db:"anim_start"`
	AnimEnd     uint32  `db:"anim_end"`
	AnimSpeed   float32 `db:"anim_speed"`
	HasTileset  bool    `db:"has_tileset"`
	Tileset     uint16  `db:"tileset"`
	IsAuto      bool    `db:"is_auto"`
	AutoGroup   uint32  `db:"auto_group"`
	AutoTileset uint16  `db:"auto_tileset"`
}

// newDBTile flattens a record into a row
func newDBTile(e Entity, rec TileRecord) dbTile {
	t := dbTile{
		ID:      int64(e),
		MapID:   rec.Coord.MapID,
		LayerID: rec.Coord.LayerID,
		X:       rec.Coord.Pos.X,
		Y:       rec.Coord.Pos.Y,
		Texture: rec.TextureIndex,
	}
	if rec.Animation != nil {
		t.Animated = true
		t.AnimStart = rec.Animation.Start
		t.AnimEnd = rec.Animation.End
		t.AnimSpeed = rec.Animation.Speed
	}
	if rec.Tileset != nil {
		t.HasTileset = true
		t.Tileset = uint16(*rec.Tileset)
	}
	if rec.Auto != nil {
		t.IsAuto = true
		t.AutoGroup = uint32(rec.Auto.Group)
		t.AutoTileset = uint16(rec.Auto.Tileset)
	}
	return t
}

// record rebuilds the record from a row
func (t dbTile) record(cfg *Config) TileRecord {
	c := Coord{Pos: Pos{X: t.X, Y: t.Y}, MapID: t.MapID, LayerID: t.LayerID}
	rec := TileRecord{
		Coord:        c,
		Parent:       Parent{MapID: t.MapID, LayerID: t.LayerID, Chunk: cfg.chunkOf(c.Pos)},
		TextureIndex: t.Texture,
	}
	if t.Animated {
		rec.Animation = &Animation{Start: t.AnimStart, End: t.AnimEnd, Speed: t.AnimSpeed}
	}
	if t.HasTileset {
		ts := TilesetID(t.Tileset)
		rec.Tileset = &ts
	}
	if t.IsAuto {
		rec.Auto = &AutoTileID{Group: GroupID(t.AutoGroup), Tileset: TilesetID(t.AutoTileset)}
	}
	return rec
}
