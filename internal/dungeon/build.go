package dungeon

import (
	"errors"
	"fmt"
	"strings"

	"github.com/amalg/go-dungeon/internal/ldtk"
)

// ErrMissingTileset is returned when a tile layer references a tileset
// definition the document does not contain.
var ErrMissingTileset = errors.New("missing tileset definition")

// Build converts a parsed level document into a Dungeon, keeping the
// document's level order.
//
// Rules:
//   - Level width/length are the pixel dimensions divided by the default grid size.
//   - Entity identifiers must be PlayerStart or Cat.
//   - An entity's Direction field defaults to Right when absent or unparseable.
//   - A tile's walls come from its tileset custom data, a comma separated list
//     of directions; tokens that are not directions are dropped.
func Build(doc *ldtk.Document) (*Dungeon, error) {
	if doc == nil {
		return nil, errors.New("nil level document")
	}
	if doc.DefaultGridSize <= 0 {
		return nil, fmt.Errorf("invalid default grid size: %d", doc.DefaultGridSize)
	}

	d := &Dungeon{Levels: make([]Level, 0, len(doc.Levels))}
	for i, rec := range doc.Levels {
		level, err := buildLevel(doc, rec)
		if err != nil {
			return nil, fmt.Errorf("level %d (%s): %w", i, rec.Identifier, err)
		}
		d.Levels = append(d.Levels, level)
	}
	return d, nil
}

// MustBuild is Build for the startup path, where the document is asset data
// and there is nothing sensible to fall back to.
func MustBuild(doc *ldtk.Document) *Dungeon {
	d, err := Build(doc)
	if err != nil {
		panic("dungeon: build failed: " + err.Error())
	}
	return d
}

func buildLevel(doc *ldtk.Document, rec ldtk.Level) (Level, error) {
	level := Level{
		Identifier: rec.Identifier,
		Width:      rec.PxWid / doc.DefaultGridSize,
		Length:     rec.PxHei / doc.DefaultGridSize,
		Tiles:      []Tile{},
		Entities:   []Entity{},
	}

	for _, layer := range rec.LayerInstances {
		switch layer.Identifier {
		case ldtk.EntityLayer:
			entities, err := buildEntities(layer)
			if err != nil {
				return Level{}, err
			}
			level.Entities = append(level.Entities, entities...)
		case ldtk.TileLayer:
			tiles, err := buildTiles(doc, layer)
			if err != nil {
				return Level{}, err
			}
			level.Tiles = append(level.Tiles, tiles...)
		}
	}
	return level, nil
}

func buildEntities(layer ldtk.LayerInstance) ([]Entity, error) {
	entities := make([]Entity, 0, len(layer.EntityInstances))
	for _, inst := range layer.EntityInstances {
		kind, err := ParseEntityType(inst.Identifier)
		if err != nil {
			return nil, err
		}

		dir := Right
		if s, ok := inst.StringField("Direction"); ok {
			dir = ParseDirectionOr(s, Right)
		}

		var message *string
		if s, ok := inst.StringField("Message"); ok {
			message = &s
		}

		entities = append(entities, Entity{
			X:         inst.Grid[0],
			Z:         inst.Grid[1],
			Type:      kind,
			Direction: dir,
			Message:   message,
		})
	}
	return entities, nil
}

func buildTiles(doc *ldtk.Document, layer ldtk.LayerInstance) ([]Tile, error) {
	if layer.TilesetDefUID == nil {
		return nil, fmt.Errorf("%w: layer %q has no tileset uid", ErrMissingTileset, layer.Identifier)
	}
	tileset, ok := doc.Tileset(*layer.TilesetDefUID)
	if !ok {
		return nil, fmt.Errorf("%w: uid %d", ErrMissingTileset, *layer.TilesetDefUID)
	}

	gridSize := layer.GridSize
	if gridSize <= 0 {
		gridSize = doc.DefaultGridSize
	}

	tiles := make([]Tile, 0, len(layer.GridTiles))
	for _, placed := range layer.GridTiles {
		data, _ := tileset.TileData(placed.T)
		tiles = append(tiles, NewTile(
			placed.Px[0]/gridSize,
			placed.Px[1]/gridSize,
			ParseWalls(data)...,
		))
	}
	return tiles, nil
}

// ParseWalls splits a comma separated wall tag. Empty and unrecognised tokens
// are dropped silently.
func ParseWalls(tag string) []Direction {
	if tag == "" {
		return nil
	}
	var walls []Direction
	for _, token := range strings.Split(tag, ",") {
		if d, ok := ParseDirection(token); ok {
			walls = append(walls, d)
		}
	}
	return walls
}
