package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/amalg/go-dungeon/internal/dungeon"
	"github.com/amalg/go-dungeon/internal/motion"
)

// hudWidth is the text width inside the HUD border.
const hudWidth = 36

// Color palette
var (
	wallStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#8888aa")).
			Bold(true)

	floorStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1a1a2e"))

	voidStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#333333"))

	playerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1a1a2e")).
			Foreground(lipgloss.Color("#00ff88")).
			Bold(true)

	bounceStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#ff4444")).
			Foreground(lipgloss.Color("#ffffff")).
			Bold(true)

	catStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1a1a2e")).
			Foreground(lipgloss.Color("#ffcc44"))

	// HUD styles
	hudBorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff8844")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffcc44")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ff4444"))
)

var facingGlyphs = map[dungeon.Direction]string{
	dungeon.Up:    " ▲ ",
	dungeon.Right: " ▶ ",
	dungeon.Down:  " ▼ ",
	dungeon.Left:  " ◀ ",
}

// RenderLevel draws the level as a wall map seen from above. Each cell is
// three columns wide with walls drawn on the grid lines between cells. A
// wall shows if either tile bordering the edge has it.
func RenderLevel(level *dungeon.Level, player *dungeon.Position, bouncing bool) string {
	if level == nil || level.Width <= 0 || level.Length <= 0 {
		return "Waiting for level..."
	}

	grid := newWallGrid(level)
	var rows []string
	for z := 0; z <= level.Length; z++ {
		rows = append(rows, grid.edgeRow(z))
		if z < level.Length {
			rows = append(rows, grid.cellRow(z, player, bouncing))
		}
	}
	return strings.Join(rows, "\n")
}

// wallGrid indexes the first tile at each cell, matching Level.TileAt.
type wallGrid struct {
	level *dungeon.Level
	tiles map[[2]int]dungeon.Tile
}

func newWallGrid(level *dungeon.Level) wallGrid {
	tiles := make(map[[2]int]dungeon.Tile, len(level.Tiles))
	for _, t := range level.Tiles {
		key := [2]int{t.X, t.Z}
		if _, seen := tiles[key]; !seen {
			tiles[key] = t
		}
	}
	return wallGrid{level: level, tiles: tiles}
}

func (g wallGrid) tile(x, z int) (dungeon.Tile, bool) {
	t, ok := g.tiles[[2]int{x, z}]
	return t, ok
}

func (g wallGrid) wall(x, z int, d dungeon.Direction) bool {
	t, ok := g.tile(x, z)
	return ok && t.HasWall(d)
}

// horizontal reports a wall on the line above row z at column x.
func (g wallGrid) horizontal(x, z int) bool {
	return g.wall(x, z-1, dungeon.Down) || g.wall(x, z, dungeon.Up)
}

// vertical reports a wall on the line left of column x in row z.
func (g wallGrid) vertical(x, z int) bool {
	return g.wall(x-1, z, dungeon.Right) || g.wall(x, z, dungeon.Left)
}

func (g wallGrid) edgeRow(z int) string {
	var b strings.Builder
	for x := 0; x <= g.level.Width; x++ {
		corner := g.horizontal(x-1, z) || g.horizontal(x, z) || g.vertical(x, z-1) || g.vertical(x, z)
		if corner {
			b.WriteString(wallStyle.Render("+"))
		} else {
			b.WriteString(" ")
		}
		if x == g.level.Width {
			break
		}
		if g.horizontal(x, z) {
			b.WriteString(wallStyle.Render("───"))
		} else {
			b.WriteString("   ")
		}
	}
	return b.String()
}

func (g wallGrid) cellRow(z int, player *dungeon.Position, bouncing bool) string {
	var b strings.Builder
	for x := 0; x <= g.level.Width; x++ {
		if g.vertical(x, z) {
			b.WriteString(wallStyle.Render("│"))
		} else {
			b.WriteString(" ")
		}
		if x == g.level.Width {
			break
		}
		b.WriteString(g.cell(x, z, player, bouncing))
	}
	return b.String()
}

func (g wallGrid) cell(x, z int, player *dungeon.Position, bouncing bool) string {
	if player != nil && player.X == x && player.Z == z {
		if bouncing {
			return bounceStyle.Render(facingGlyphs[player.Direction])
		}
		return playerStyle.Render(facingGlyphs[player.Direction])
	}

	if e, ok := g.level.EntityAt(x, z); ok && e.Type == dungeon.Cat {
		if e.Text() != "" {
			return catStyle.Render(" ! ")
		}
		return catStyle.Render(" c ")
	}

	if _, ok := g.tile(x, z); ok {
		return floorStyle.Render("   ")
	}
	return voidStyle.Render(" · ")
}

// HUD is what the side panel shows.
type HUD struct {
	LevelIndex int
	LevelCount int
	Level      *dungeon.Level
	Player     *dungeon.Position
	Pose       motion.Pose
	Transition *motion.Transition
	Elapsed    time.Duration
	Message    string
	Status     string
}

// RenderHUD renders the side panel: level, player, camera pose, the
// current message and key help.
func RenderHUD(h HUD) string {
	var parts []string

	parts = append(parts, titleStyle.Render("DUNGEON"))
	parts = append(parts, "")

	name := ""
	if h.Level != nil && h.Level.Identifier != "" {
		name = " " + h.Level.Identifier
	}
	parts = append(parts, fmt.Sprintf("%s %d/%d%s", labelStyle.Render("Level"), h.LevelIndex+1, h.LevelCount, name))

	if h.Player == nil {
		parts = append(parts, labelStyle.Render("No player"))
	} else {
		where := fmt.Sprintf("(%d, %d) facing %s", h.Player.X, h.Player.Z, h.Player.Direction)
		if h.Level != nil && !inside(h.Level, *h.Player) {
			where += " (off map)"
		}
		parts = append(parts, fmt.Sprintf("%s %s", labelStyle.Render("At"), where))
	}

	t := h.Pose.Translation
	parts = append(parts, fmt.Sprintf("%s %.2f %.2f %.2f  %s %.0f°",
		labelStyle.Render("Eye"), t.X(), t.Y(), t.Z(),
		labelStyle.Render("yaw"), motion.Heading(h.Pose.Rotation)))

	if h.Transition != nil {
		elapsed := h.Elapsed.Milliseconds()
		total := h.Transition.Duration().Milliseconds()
		if elapsed > total {
			elapsed = total
		}
		parts = append(parts, fmt.Sprintf("%s %s %d/%dms", labelStyle.Render("Motion"), h.Transition.Kind, elapsed, total))
	} else {
		parts = append(parts, labelStyle.Render("Motion")+" idle")
	}

	parts = append(parts, "")
	if h.Message != "" {
		parts = append(parts, messageStyle.Render(runewidth.Wrap(h.Message, hudWidth)))
	} else {
		parts = append(parts, labelStyle.Render("…"))
	}

	if h.Status != "" {
		parts = append(parts, "")
		parts = append(parts, labelStyle.Render(runewidth.Truncate(h.Status, hudWidth, "…")))
	}

	parts = append(parts, "")
	parts = append(parts, helpStyle.Render("W/S: Step | A/D: Turn | [/]: Level"))
	parts = append(parts, helpStyle.Render("R: Reset | ^S: Save | ^O: Load | Q: Quit"))

	return hudBorderStyle.Render(strings.Join(parts, "\n"))
}

func inside(level *dungeon.Level, p dungeon.Position) bool {
	return p.X >= 0 && p.Z >= 0 && p.X < level.Width && p.Z < level.Length
}
