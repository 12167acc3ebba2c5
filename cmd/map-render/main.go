package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"github.com/voidshard/tilemap"
)

const desc = `Generates a tmx map from one layer of a map database file.`

var cli struct {
	// where to find input database file
	Input  string `short:"i" required:"" help:"input map database file (required)"`
	Output string `short:"o" help:"where to write output .tmx map. Defaults to input + map + layer + .tmx. Overwrites output file if it exists."`

	Tilesets []string `short:"s" help:"tileset yaml file(s), used to name tilesets & describe tiles"`
	Config   string   `short:"c" help:"config file"`

	Map   uint16 `short:"m" default:"0" help:"map id"`
	Layer uint16 `short:"l" default:"0" help:"layer id"`

	// how wide/high each tile image should be in pixels
	TileWidth  uint `help:"width of each tile in px (overrides config)"`
	TileHeight uint `help:"height of each tile in px (overrides config)"`
}

func main() {
	kong.Parse(&cli, kong.Name("map-render"), kong.Description(desc))

	log := logrus.New()
	tilemap.SetLogger(log)

	if cli.Output == "" {
		cli.Output = fmt.Sprintf("%s_%d.%d.tmx", cli.Input, cli.Map, cli.Layer)
	}

	if !fileExists(cli.Input) {
		log.Fatalf("input file not found: %s", cli.Input)
	}

	cfg, err := tilemap.LoadConfig(cli.Config)
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	if cli.TileWidth > 0 {
		cfg.TileWidth = cli.TileWidth
	}
	if cli.TileHeight > 0 {
		cfg.TileHeight = cli.TileHeight
	}

	registry, err := tilemap.NewRegistry()
	if err != nil {
		log.WithError(err).Fatal("failed to create registry")
	}
	for _, fname := range cli.Tilesets {
		ts, err := tilemap.LoadTileset(fname)
		if err != nil {
			log.WithError(err).Fatalf("failed to read tileset %s", fname)
		}
		if err := registry.Add(ts); err != nil {
			log.WithError(err).Fatal("failed to register tileset")
		}
	}

	store, err := tilemap.OpenSQLStore(cli.Input, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to open map database")
	}
	defer store.Close()

	err = tilemap.WriteTMXFile(cli.Output, store, registry, cli.Map, cli.Layer, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to write map")
	}

	fmt.Printf("wrote %s\n", cli.Output)
}

// fileExists checks if file exists
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return !info.IsDir()
}
