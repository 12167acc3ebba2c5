package tilemap

import (
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config includes settings for tile maps & the placement engine
type Config struct {
	// default layer size, in tiles
	MapWidth  uint32 `mapstructure:"map_width"`
	MapHeight uint32 `mapstructure:"map_height"`

	// in pixels, only used when exporting
	TileWidth  uint `mapstructure:"tile_width"`
	TileHeight uint `mapstructure:"tile_height"`

	// render chunk size in tiles; changes mark whole chunks dirty
	ChunkWidth  uint32 `mapstructure:"chunk_width"`
	ChunkHeight uint32 `mapstructure:"chunk_height"`

	// enable auto tile tracking & removal events
	AutoTile bool `mapstructure:"auto_tile"`

	// max number of cached coordinate lookups (SQLStore)
	CacheSize int64 `mapstructure:"cache_size"`

	// logrus level name
	LogLevel string `mapstructure:"log_level"`
}

// DefaultConfig returns a config with default settings.
func DefaultConfig() *Config {
	return &Config{
		MapWidth:    100,
		MapHeight:   100,
		TileWidth:   32,
		TileHeight:  32,
		ChunkWidth:  16,
		ChunkHeight: 16,
		AutoTile:    true,
		CacheSize:   10000,
		LogLevel:    "info",
	}
}

// LoadConfig reads a config file (yaml, toml, json ..) over the defaults.
// Settings can also be given as TILEMAP_* environment variables.
func LoadConfig(fname string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("tilemap")
	v.AutomaticEnv()
	v.SetDefault("map_width", cfg.MapWidth)
	v.SetDefault("map_height", cfg.MapHeight)
	v.SetDefault("tile_width", cfg.TileWidth)
	v.SetDefault("tile_height", cfg.TileHeight)
	v.SetDefault("chunk_width", cfg.ChunkWidth)
	v.SetDefault("chunk_height", cfg.ChunkHeight)
	v.SetDefault("auto_tile", cfg.AutoTile)
	v.SetDefault("cache_size", cfg.CacheSize)
	v.SetDefault("log_level", cfg.LogLevel)

	if fname != "" {
		path, err := homedir.Expand(fname)
		if err != nil {
			return nil, err
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	return cfg, v.Unmarshal(cfg)
}

func (c *Config) chunkOf(p Pos) ChunkPos {
	return ChunkOf(p, c.ChunkWidth, c.ChunkHeight)
}
