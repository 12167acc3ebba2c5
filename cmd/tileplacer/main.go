package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/voidshard/tilemap"
)

const desc = `Places & removes tiles in a map database.

Tiles are named by their tileset, group & (optionally) variant, as defined in the given tileset
yaml file(s). Each placement command applies a different rule when the coordinate is already taken:

  place            always overwrite
  try-place        fail if anything is there
  replace          fail if a tile of the same group is there, otherwise overwrite
  toggle           remove whatever is there, or place if empty
  toggle-matching  remove a tile of the same group, fail on any other, place if empty`

// placeCmd is shared by all placement commands
type placeCmd struct {
	Tileset uint16 `short:"t" required:"" help:"tileset id"`
	Group   uint32 `short:"g" required:"" help:"tile group id"`
	Variant int    `default:"-1" help:"tile variant (-1 for any)"`

	X     uint32 `short:"x" help:"x coord"`
	Y     uint32 `short:"y" help:"y coord"`
	Map   uint16 `short:"m" help:"map id"`
	Layer uint16 `short:"l" help:"layer id"`
}

func (p *placeCmd) tile() tilemap.TileID {
	return tilemap.NewTileID(tilemap.TilesetID(p.Tileset), tilemap.GroupID(p.Group)).WithVariant(p.Variant)
}

func (p *placeCmd) coord() tilemap.Coord {
	return tilemap.At(p.X, p.Y, p.Map, p.Layer)
}

var cli struct {
	DB       string   `short:"d" required:"" help:"map database file (created if needed)"`
	Tilesets []string `short:"s" help:"tileset yaml file(s)"`
	Config   string   `short:"c" help:"config file"`
	LogFile  string   `help:"log to this file (rotated) rather than stderr"`
	Verbose  bool     `short:"v" help:"debug logging"`

	CreateLayer struct {
		Map    uint16 `short:"m" help:"map id"`
		Layer  uint16 `short:"l" help:"layer id"`
		Width  uint32 `help:"layer width in tiles (defaults to config map_width)"`
		Height uint32 `help:"layer height in tiles (defaults to config map_height)"`
	} `cmd:"" help:"create an empty layer"`

	Place          placeCmd `cmd:"" help:"place a tile, overwriting anything there"`
	TryPlace       placeCmd `cmd:"" help:"place a tile if the coordinate is empty"`
	Replace        placeCmd `cmd:"" help:"place a tile unless one of the same group is there"`
	Toggle         placeCmd `cmd:"" help:"remove whatever is there, or place if empty"`
	ToggleMatching placeCmd `cmd:"" help:"remove a matching tile, or place if empty"`

	Remove struct {
		X     uint32 `short:"x" help:"x coord"`
		Y     uint32 `short:"y" help:"y coord"`
		Map   uint16 `short:"m" help:"map id"`
		Layer uint16 `short:"l" help:"layer id"`
	} `cmd:"" help:"remove the tile at a coordinate"`

	Inspect struct {
		X       uint32 `short:"x" help:"x coord"`
		Y       uint32 `short:"y" help:"y coord"`
		Map     uint16 `short:"m" help:"map id"`
		Layer   uint16 `short:"l" help:"layer id"`
		Tileset uint16 `short:"t" help:"tileset used to identify the tile"`
	} `cmd:"" help:"show what occupies a coordinate"`
}

// setupLogging configures logrus for us & the tilemap lib
func setupLogging(cfg *tilemap.Config) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if cli.LogFile != "" {
		l.SetOutput(&lumberjack.Logger{
			Filename:   cli.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	if cli.Verbose {
		level = logrus.DebugLevel
	}
	l.SetLevel(level)

	tilemap.SetLogger(l)
	return l
}

// loadTilesets reads all given tileset files into a registry
func loadTilesets(fnames []string) (*tilemap.Registry, error) {
	reg, err := tilemap.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, fname := range fnames {
		ts, err := tilemap.LoadTileset(fname)
		if err != nil {
			return nil, fmt.Errorf("tileset %s: %w", fname, err)
		}
		if err := reg.Add(ts); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func describe(p *tilemap.Placement) string {
	old := "nothing"
	if p.Old != nil {
		old = fmt.Sprintf("entity %v", p.Old.Entity)
		if p.Old.ID != nil {
			old = fmt.Sprintf("%s (entity %v)", p.Old.ID, p.Old.Entity)
		}
	}
	if p.Kind == tilemap.Removed {
		return fmt.Sprintf("removed %s", old)
	}
	return fmt.Sprintf("placed %s (entity %v), displaced %s", p.New.ID, p.New.Entity, old)
}

func main() {
	ctx := kong.Parse(
		&cli,
		kong.Name("tileplacer"),
		kong.Description(desc),
	)

	cfg, err := tilemap.LoadConfig(cli.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := setupLogging(cfg)

	store, err := tilemap.OpenSQLStore(cli.DB, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to open map database")
	}
	defer store.Close()

	registry, err := loadTilesets(cli.Tilesets)
	if err != nil {
		log.WithError(err).Fatal("failed to load tilesets")
	}

	events := tilemap.NewAutoTileEvents()
	var auto *tilemap.AutoTiler
	if cfg.AutoTile {
		auto = tilemap.NewAutoTiler(events)
	}
	placer := tilemap.NewPlacer(store, registry, auto)

	var result *tilemap.Placement
	switch ctx.Command() {
	case "create-layer":
		w, h := cli.CreateLayer.Width, cli.CreateLayer.Height
		if w == 0 {
			w = cfg.MapWidth
		}
		if h == 0 {
			h = cfg.MapHeight
		}
		err = store.CreateLayer(cli.CreateLayer.Map, cli.CreateLayer.Layer, w, h)
		if err == nil {
			fmt.Printf("created layer %d/%d (%dx%d)\n", cli.CreateLayer.Map, cli.CreateLayer.Layer, w, h)
		}
	case "place":
		result, err = placer.Place(cli.Place.tile(), cli.Place.coord())
	case "try-place":
		result, err = placer.TryPlace(cli.TryPlace.tile(), cli.TryPlace.coord())
	case "replace":
		result, err = placer.Replace(cli.Replace.tile(), cli.Replace.coord())
	case "toggle":
		result, err = placer.Toggle(cli.Toggle.tile(), cli.Toggle.coord())
	case "toggle-matching":
		result, err = placer.ToggleMatching(cli.ToggleMatching.tile(), cli.ToggleMatching.coord())
	case "remove":
		c := tilemap.At(cli.Remove.X, cli.Remove.Y, cli.Remove.Map, cli.Remove.Layer)
		err = placer.Remove(c)
		if err == nil {
			fmt.Printf("removed %v\n", c)
		}
	case "inspect":
		c := tilemap.At(cli.Inspect.X, cli.Inspect.Y, cli.Inspect.Map, cli.Inspect.Layer)
		occ := placer.Inspect(c, tilemap.TilesetID(cli.Inspect.Tileset))
		switch {
		case occ == nil:
			fmt.Printf("%v is empty\n", c)
		case occ.ID == nil:
			fmt.Printf("%v: entity %v texture %d (unidentified) animated=%v auto=%v\n", c, occ.Entity, occ.TextureIndex, occ.Animated, occ.Auto)
		default:
			fmt.Printf("%v: %s entity %v texture %d animated=%v auto=%v\n", c, occ.ID, occ.Entity, occ.TextureIndex, occ.Animated, occ.Auto)
		}
	default:
		log.Fatalf("unknown command %s", ctx.Command())
	}
	if err != nil {
		log.WithError(err).Fatal(ctx.Command())
	}

	if result != nil {
		fmt.Println(describe(result))
	}
	for _, ev := range events.Consume() {
		fmt.Printf("auto tile removed: entity %v at (%d,%d) group %d\n", ev.Entity, ev.Pos.X, ev.Pos.Y, ev.AutoID.Group)
	}
	for _, ch := range store.DirtyChunks() {
		log.WithField("chunk", ch).Debug("chunk dirty")
	}
}
