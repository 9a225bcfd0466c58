package ui

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amalg/go-dungeon/internal/dungeon"
	"github.com/amalg/go-dungeon/internal/game"
	"github.com/amalg/go-dungeon/internal/motion"
)

var errDriverClosed = errors.New("session closed")

// eventMsg carries a session event from the driver.
type eventMsg game.Event

// frameMsg advances transition playback.
type frameMsg time.Time

// driverErrMsg is a recoverable error reported by the session host.
type driverErrMsg struct{ err error }

// closedMsg ends the program when the driver goes away.
type closedMsg struct{ err error }

// Model is the Bubbletea model for a dungeon session.
type Model struct {
	driver Driver
	frame  time.Duration
	now    func() time.Time

	level      *dungeon.Level
	levelIndex int
	levelCount int
	player     *dungeon.Position
	message    string

	pose       motion.Pose
	transition *motion.Transition
	started    time.Time
	ticking    bool // a frame tick is pending; at most one chain runs

	status   string
	width    int
	err      error
	quitting bool
}

// NewModel creates a model showing the driver's initial event. frame is the
// playback tick length.
func NewModel(driver Driver, frame time.Duration) Model {
	if frame <= 0 {
		frame = time.Second / 30
	}
	m := Model{
		driver: driver,
		frame:  frame,
		now:    time.Now,
	}
	m = m.applyEvent(driver.Initial())
	return m
}

// Init starts listening for session events and errors.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.driver), waitForError(m.driver))
}

// Update handles key presses, session events and frame ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case eventMsg:
		m = m.applyEvent(game.Event(msg))
		cmds := []tea.Cmd{waitForEvent(m.driver)}
		if m.transition != nil && !m.ticking {
			m.ticking = true
			cmds = append(cmds, m.tick())
		}
		return m, tea.Batch(cmds...)

	case frameMsg:
		if m.transition == nil {
			m.ticking = false
			return m, nil
		}
		elapsed := time.Time(msg).Sub(m.started)
		m.pose = m.transition.Sample(elapsed)
		if m.transition.Done(elapsed) {
			m.transition = nil
			m.ticking = false
			return m, nil
		}
		return m, m.tick()

	case driverErrMsg:
		m.status = msg.err.Error()
		return m, waitForError(m.driver)

	case closedMsg:
		m.err = msg.err
		return m, tea.Quit
	}

	return m, nil
}

// applyEvent copies an event into the model. A new transition replaces the
// one still playing.
func (m Model) applyEvent(ev game.Event) Model {
	if ev.Level != nil {
		m.level = ev.Level
	}
	m.levelIndex = ev.LevelIndex
	m.levelCount = ev.LevelCount
	m.player = ev.Player
	m.message = ev.Message

	if ev.Result != nil && len(ev.Result.Transition.Phases) > 0 {
		tr := ev.Result.Transition
		m.transition = &tr
		m.started = m.now()
		m.pose = tr.Start()
		return m
	}

	m.transition = nil
	if m.player != nil {
		m.pose = motion.PoseAt(*m.player)
	}
	return m
}

// View renders the current session state.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if m.err != nil {
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	}

	board := RenderLevel(m.level, m.player, m.bouncing())
	hud := RenderHUD(HUD{
		LevelIndex: m.levelIndex,
		LevelCount: m.levelCount,
		Level:      m.level,
		Player:     m.player,
		Pose:       m.pose,
		Transition: m.transition,
		Elapsed:    m.now().Sub(m.started),
		Message:    m.message,
		Status:     m.status,
	})

	// Layout: board on the left, HUD on the right
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		board,
		"  ",
		hud,
	) + "\n"
}

func (m Model) bouncing() bool {
	return m.transition != nil && m.transition.Kind == motion.KindBounce
}

// handleKey maps keys to session requests.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var err error

	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "up", "w":
		err = m.driver.Do(game.StepForward)
	case "down", "s":
		err = m.driver.Do(game.StepBackward)
	case "left", "a":
		err = m.driver.Do(game.RotateLeft)
	case "right", "d":
		err = m.driver.Do(game.RotateRight)
	case "r":
		m.status = "reset"
		err = m.driver.Reset()
	case "ctrl+s":
		m.status = "saved"
		err = m.driver.Save()
	case "ctrl+o":
		m.status = "loaded"
		err = m.driver.Load()
	case "[":
		if m.levelIndex > 0 {
			err = m.driver.GoTo(m.levelIndex - 1)
		}
	case "]":
		if m.levelIndex+1 < m.levelCount {
			err = m.driver.GoTo(m.levelIndex + 1)
		}
	}

	if err != nil {
		m.status = err.Error()
	}
	return m, nil
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.frame, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// waitForEvent returns a Cmd that waits for the next session event.
func waitForEvent(d Driver) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-d.Events()
		if !ok {
			return closedMsg{err: errDriverClosed}
		}
		return eventMsg(ev)
	}
}

// waitForError returns a Cmd that waits for the next host error.
func waitForError(d Driver) tea.Cmd {
	return func() tea.Msg {
		err, ok := <-d.Errors()
		if !ok {
			return nil
		}
		return driverErrMsg{err: err}
	}
}
