package ldtk

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/amalg/go-dungeon/assets"
)

// Layer identifiers the dungeon builder understands. Any other layer is ignored.
const (
	EntityLayer = "Entities"
	TileLayer   = "Tiles"
)

// Document is the subset of an LDtk project file the game reads.
type Document struct {
	DefaultGridSize int     `json:"defaultGridSize"`
	Defs            Defs    `json:"defs"`
	Levels          []Level `json:"levels"`
}

// Defs holds the project-wide definitions referenced by layer instances.
type Defs struct {
	Tilesets []Tileset `json:"tilesets"`
}

// Tileset is a tileset definition with its per-tile custom data strings.
type Tileset struct {
	UID        int              `json:"uid"`
	Identifier string           `json:"identifier"`
	CustomData []TileCustomData `json:"customData"`
}

// TileCustomData is the free-form string an author attached to one tile id.
type TileCustomData struct {
	TileID int    `json:"tileId"`
	Data   string `json:"data"`
}

// Level is one level record. LayerInstances is nil when the level was saved
// in a separate file, which the game treats as an empty level.
type Level struct {
	Identifier     string          `json:"identifier"`
	PxWid          int             `json:"pxWid"`
	PxHei          int             `json:"pxHei"`
	LayerInstances []LayerInstance `json:"layerInstances"`
}

// LayerInstance is a placed layer: either a tile layer or an entity layer.
type LayerInstance struct {
	Identifier      string           `json:"__identifier"`
	Type            string           `json:"__type"`
	GridSize        int              `json:"__gridSize"`
	TilesetDefUID   *int             `json:"__tilesetDefUid"`
	GridTiles       []TileInstance   `json:"gridTiles"`
	EntityInstances []EntityInstance `json:"entityInstances"`
}

// TileInstance is one placed tile: its pixel coordinate and tileset tile id.
type TileInstance struct {
	Px [2]int `json:"px"`
	T  int    `json:"t"`
}

// EntityInstance is a point entity placed on a grid cell.
type EntityInstance struct {
	Identifier     string          `json:"__identifier"`
	Grid           [2]int          `json:"__grid"`
	FieldInstances []FieldInstance `json:"fieldInstances"`
}

// FieldInstance is a named custom field. Value is kept raw since its JSON
// type depends on the field definition.
type FieldInstance struct {
	Identifier string          `json:"__identifier"`
	Type       string          `json:"__type"`
	Value      json.RawMessage `json:"__value"`
}

// Field returns the first field instance with the given identifier.
func (e EntityInstance) Field(identifier string) (FieldInstance, bool) {
	for _, f := range e.FieldInstances {
		if f.Identifier == identifier {
			return f, true
		}
	}
	return FieldInstance{}, false
}

// StringField returns the value of a string field. Missing fields, null
// values and values of any other JSON type report false.
func (e EntityInstance) StringField(identifier string) (string, bool) {
	f, ok := e.Field(identifier)
	if !ok {
		return "", false
	}
	return f.String()
}

// String decodes the field value as a JSON string.
func (f FieldInstance) String() (string, bool) {
	if len(f.Value) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(f.Value, &s); err != nil {
		return "", false
	}
	return s, true
}

// Tileset finds a tileset definition by uid.
func (d *Document) Tileset(uid int) (Tileset, bool) {
	for _, ts := range d.Defs.Tilesets {
		if ts.UID == uid {
			return ts, true
		}
	}
	return Tileset{}, false
}

// TileData returns the custom data string for a tile id.
func (t Tileset) TileData(tileID int) (string, bool) {
	for _, cd := range t.CustomData {
		if cd.TileID == tileID {
			return cd.Data, true
		}
	}
	return "", false
}

// Parse decodes an LDtk document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal level document: %w", err)
	}
	if doc.DefaultGridSize <= 0 {
		return nil, fmt.Errorf("invalid default grid size: %d", doc.DefaultGridSize)
	}
	return &doc, nil
}

// Load reads and parses a document from disk.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read level document: %w", err)
	}
	return Parse(data)
}

// LoadEmbedded parses the document compiled into the binary.
func LoadEmbedded() (*Document, error) {
	return Parse(assets.Level)
}

// LoadOrEmbedded loads path, or the embedded document when path is empty.
func LoadOrEmbedded(path string) (*Document, error) {
	if path == "" {
		return LoadEmbedded()
	}
	return Load(path)
}
