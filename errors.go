package tilemap

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTileset means a TileID names a tileset that isn't registered
	ErrInvalidTileset = errors.New("invalid tileset")

	// ErrInvalidTile means a TileID doesn't exist within it's tileset
	ErrInvalidTile = errors.New("invalid tile")

	// ErrTileExists is matched (via errors.Is) by *TileExistsError
	ErrTileExists = errors.New("tile already exists")
)

// TileExistsError is returned when a placement is refused because of the
// tile already at the coordinate. Depending on the call this means either
// that any tile was found, or that an unexpected one was.
type TileExistsError struct {
	// the tile we were asked to place
	New TileID

	// the tile found, nil if it couldn't be identified
	Existing *TileID

	// the contested coordinate
	Pos Coord
}

func (e *TileExistsError) Error() string {
	existing := "unknown tile"
	if e.Existing != nil {
		existing = e.Existing.String()
	}
	return fmt.Sprintf("attempted to place tile %s but found existing %s at %v", e.New, existing, e.Pos)
}

// Is lets errors.Is(err, ErrTileExists) match
func (e *TileExistsError) Is(target error) bool {
	return target == ErrTileExists
}

// MapError wraps any error raised by a Store.
type MapError struct {
	Err error
}

func (e *MapError) Error() string {
	return fmt.Sprintf("tilemap error: %v", e.Err)
}

func (e *MapError) Unwrap() error {
	return e.Err
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	return &MapError{Err: err}
}
