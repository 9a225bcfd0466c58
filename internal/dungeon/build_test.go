package dungeon

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/amalg/go-dungeon/internal/ldtk"
)

func uid(i int) *int { return &i }

func field(name string, value string) ldtk.FieldInstance {
	return ldtk.FieldInstance{Identifier: name, Type: "String", Value: json.RawMessage(value)}
}

// testDocument has one 5x3 level (80x50 px at grid 16) with a tile layer and an entity layer.
func testDocument() *ldtk.Document {
	return &ldtk.Document{
		DefaultGridSize: 16,
		Defs: ldtk.Defs{Tilesets: []ldtk.Tileset{{
			UID: 1,
			CustomData: []ldtk.TileCustomData{
				{TileID: 1, Data: "up"},
				{TileID: 2, Data: "up,,banana"},
				{TileID: 3, Data: "Left,RIGHT,left"},
				{TileID: 4, Data: ""},
			},
		}}},
		Levels: []ldtk.Level{{
			Identifier: "first",
			PxWid:      80,
			PxHei:      50,
			LayerInstances: []ldtk.LayerInstance{
				{
					Identifier: ldtk.EntityLayer,
					EntityInstances: []ldtk.EntityInstance{
						{Identifier: "PlayerStart", Grid: [2]int{0, 0}, FieldInstances: []ldtk.FieldInstance{field("Direction", `"down"`)}},
						{Identifier: "Cat", Grid: [2]int{1, 0}, FieldInstances: []ldtk.FieldInstance{field("Message", `"hello"`)}},
						{Identifier: "cat", Grid: [2]int{2, 1}, FieldInstances: []ldtk.FieldInstance{
							field("Direction", `"sideways"`),
							field("Message", `42`),
						}},
					},
				},
				{
					Identifier:    ldtk.TileLayer,
					GridSize:      16,
					TilesetDefUID: uid(1),
					GridTiles: []ldtk.TileInstance{
						{Px: [2]int{0, 0}, T: 1},
						{Px: [2]int{16, 0}, T: 2},
						{Px: [2]int{39, 17}, T: 3},
						{Px: [2]int{48, 32}, T: 4},
						{Px: [2]int{64, 32}, T: 9},
					},
				},
				{Identifier: "Background"},
			},
		}},
	}
}

func TestBuildDimensions(t *testing.T) {
	d, err := Build(testDocument())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	level, ok := d.Level(0)
	if !ok {
		t.Fatal("level 0 missing")
	}
	if level.Width != 5 || level.Length != 3 {
		t.Errorf("expected 5x3 level, got %dx%d", level.Width, level.Length)
	}
	if level.Identifier != "first" {
		t.Errorf("identifier not carried over: %q", level.Identifier)
	}
}

func TestBuildWalls(t *testing.T) {
	d, err := Build(testDocument())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	level := &d.Levels[0]

	tests := []struct {
		name  string
		x, z  int
		walls []Direction
	}{
		{"single_tag", 0, 0, []Direction{Up}},
		{"lenient_tokens", 1, 0, []Direction{Up}},
		{"truncated_pixels_and_duplicates", 2, 1, []Direction{Right, Left}},
		{"empty_tag", 3, 2, []Direction{}},
		{"no_custom_data", 4, 2, []Direction{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tile, ok := level.TileAt(tt.x, tt.z)
			if !ok {
				t.Fatalf("no tile at (%d,%d)", tt.x, tt.z)
			}
			if got := tile.Walls(); !reflect.DeepEqual(got, tt.walls) {
				t.Errorf("walls at (%d,%d) = %v, want %v", tt.x, tt.z, got, tt.walls)
			}
		})
	}
}

func TestBuildEntities(t *testing.T) {
	d, err := Build(testDocument())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	entities := d.Levels[0].Entities
	if len(entities) != 3 {
		t.Fatalf("expected 3 entities, got %d", len(entities))
	}

	start := entities[0]
	if start.Type != PlayerStart || start.Direction != Down || start.Message != nil {
		t.Errorf("unexpected player start %+v", start)
	}

	cat := entities[1]
	if cat.Type != Cat || cat.X != 1 || cat.Z != 0 {
		t.Errorf("unexpected cat %+v", cat)
	}
	if cat.Direction != Right {
		t.Errorf("absent direction should default to Right, got %s", cat.Direction)
	}
	if cat.Text() != "hello" {
		t.Errorf("expected message hello, got %q", cat.Text())
	}

	odd := entities[2]
	if odd.Type != Cat {
		t.Errorf("identifier match should ignore case, got %s", odd.Type)
	}
	if odd.Direction != Right {
		t.Errorf("unparseable direction should default to Right, got %s", odd.Direction)
	}
	if odd.Message != nil {
		t.Errorf("non-string message should be absent, got %q", *odd.Message)
	}
}

func TestBuildFatalErrors(t *testing.T) {
	t.Run("unknown_entity", func(t *testing.T) {
		doc := testDocument()
		doc.Levels[0].LayerInstances[0].EntityInstances[1].Identifier = "Dog"
		_, err := Build(doc)
		if !errors.Is(err, ErrUnknownEntity) {
			t.Fatalf("expected ErrUnknownEntity, got %v", err)
		}
	})

	t.Run("missing_tileset", func(t *testing.T) {
		doc := testDocument()
		doc.Levels[0].LayerInstances[1].TilesetDefUID = uid(99)
		_, err := Build(doc)
		if !errors.Is(err, ErrMissingTileset) {
			t.Fatalf("expected ErrMissingTileset, got %v", err)
		}
	})

	t.Run("nil_tileset_uid", func(t *testing.T) {
		doc := testDocument()
		doc.Levels[0].LayerInstances[1].TilesetDefUID = nil
		_, err := Build(doc)
		if !errors.Is(err, ErrMissingTileset) {
			t.Fatalf("expected ErrMissingTileset, got %v", err)
		}
	})

	t.Run("must_build_panics", func(t *testing.T) {
		doc := testDocument()
		doc.Levels[0].LayerInstances[0].EntityInstances[0].Identifier = "Dragon"
		defer func() {
			r := recover()
			if r == nil {
				t.Fatal("MustBuild should panic on a bad document")
			}
			if msg, _ := r.(string); !strings.Contains(msg, "Dragon") {
				t.Errorf("panic should name the cause, got %v", r)
			}
		}()
		MustBuild(doc)
	})
}

func TestBuildTileGridFallback(t *testing.T) {
	doc := testDocument()
	doc.Levels[0].LayerInstances[1].GridSize = 0
	d, err := Build(doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, ok := d.Levels[0].TileAt(4, 2); !ok {
		t.Error("tile coordinates should fall back to the default grid size")
	}
}

func TestBuildKeepsLevelOrder(t *testing.T) {
	doc := testDocument()
	doc.Levels = append(doc.Levels,
		ldtk.Level{Identifier: "second", PxWid: 32, PxHei: 16},
		ldtk.Level{Identifier: "third", PxWid: 15, PxHei: 31},
	)
	d, err := Build(doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if d.Len() != 3 {
		t.Fatalf("expected 3 levels, got %d", d.Len())
	}
	for i, want := range []string{"first", "second", "third"} {
		if d.Levels[i].Identifier != want {
			t.Errorf("level %d = %q, want %q", i, d.Levels[i].Identifier, want)
		}
	}
	third := d.Levels[2]
	if third.Width != 0 || third.Length != 1 {
		t.Errorf("dimensions should floor: got %dx%d", third.Width, third.Length)
	}
	if len(third.Tiles) != 0 || len(third.Entities) != 0 {
		t.Errorf("level without layers should be empty")
	}
}

func TestBuildEmbeddedDocument(t *testing.T) {
	doc, err := ldtk.LoadEmbedded()
	if err != nil {
		t.Fatal(err)
	}
	d := MustBuild(doc)
	if d.Len() < 2 {
		t.Fatalf("expected at least 2 embedded levels, got %d", d.Len())
	}
	for i := range d.Levels {
		if _, ok := d.Levels[i].PlayerStart(); !ok {
			t.Errorf("embedded level %d has no player start", i)
		}
	}
}

func TestParseWalls(t *testing.T) {
	if got := ParseWalls("up,,banana"); !reflect.DeepEqual(got, []Direction{Up}) {
		t.Errorf("ParseWalls(up,,banana) = %v", got)
	}
	if got := ParseWalls(""); got != nil {
		t.Errorf("empty tag should yield no walls, got %v", got)
	}
}
