package tilemap

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Stage is a phase of a tick. Stages always run in order.
type Stage int

const (
	// StagePlacement is where tiles are placed & removed
	StagePlacement Stage = iota
	// StageAutoTile is where auto tile removals are reacted to, after all
	// placement for the tick is done
	StageAutoTile
	// StageRender is where dirty chunks are redrawn
	StageRender

	numStages
)

func (s Stage) String() string {
	switch s {
	case StagePlacement:
		return "placement"
	case StageAutoTile:
		return "auto-tile"
	case StageRender:
		return "render"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// System is run once per tick
type System func() error

type namedSystem struct {
	name string
	run  System
}

// Schedule runs systems once per tick, stage by stage.
type Schedule struct {
	stages [numStages][]namedSystem
	ticks  int64
}

// NewSchedule returns an empty schedule
func NewSchedule() *Schedule {
	return &Schedule{}
}

// Add a system to a stage. Systems within a stage run in the order added.
func (s *Schedule) Add(stage Stage, name string, sys System) error {
	if stage < 0 || stage >= numStages {
		return fmt.Errorf("unknown stage %v", stage)
	}
	s.stages[stage] = append(s.stages[stage], namedSystem{name: name, run: sys})
	return nil
}

// Tick runs every system once. The first error stops the tick.
func (s *Schedule) Tick() error {
	s.ticks++
	for stage, systems := range s.stages {
		for _, sys := range systems {
			if err := sys.run(); err != nil {
				log.WithFields(logrus.Fields{
					"tick":   s.ticks,
					"stage":  Stage(stage),
					"system": sys.name,
				}).WithError(err).Error("system failed")
				return fmt.Errorf("%v/%s: %w", Stage(stage), sys.name, err)
			}
		}
	}
	return nil
}

// Ticks returns how many times Tick has been called
func (s *Schedule) Ticks() int64 {
	return s.ticks
}

// RemoveAutoTileHandler reacts to auto tile removals, typically by
// recomputing the variants of neighbouring auto tiles.
type RemoveAutoTileHandler interface {
	OnRemoveAutoTiles(events []RemoveAutoTileEvent) error
}

// RemoveAutoTileFunc adapts a function to a RemoveAutoTileHandler
type RemoveAutoTileFunc func(events []RemoveAutoTileEvent) error

// OnRemoveAutoTiles calls f
func (f RemoveAutoTileFunc) OnRemoveAutoTiles(events []RemoveAutoTileEvent) error {
	return f(events)
}

// InstallAutoTiles hands queued removal events to `h` in the auto tile stage.
// The handler isn't called on ticks with no events.
func InstallAutoTiles(s *Schedule, events *AutoTileEvents, h RemoveAutoTileHandler) error {
	return s.Add(StageAutoTile, "remove-auto-tiles", func() error {
		evs := events.Consume()
		if len(evs) == 0 {
			return nil
		}
		return h.OnRemoveAutoTiles(evs)
	})
}

// DirtyChunker is a store that tracks dirty chunks
type DirtyChunker interface {
	DirtyChunks() []ChunkKey
}

// InstallDirtyChunks hands dirty chunks to `fn` in the render stage.
func InstallDirtyChunks(s *Schedule, src DirtyChunker, fn func([]ChunkKey) error) error {
	return s.Add(StageRender, "dirty-chunks", func() error {
		chunks := src.DirtyChunks()
		if len(chunks) == 0 {
			return nil
		}
		return fn(chunks)
	})
}
