// ABOUTME: Bubbletea model for the keyboard piano
// ABOUTME: Maps keys to notes, releases them after a hold time and renders player status
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	minOctave = -4
	maxOctave = 4
	gainStep  = 5
)

// ModelConfig configures the piano
type ModelConfig struct {
	Title    string
	Keys     string        // one key per semitone
	BaseNote int           // note of the first key
	Hold     time.Duration // how long a key press sounds
	Gain     int           // initial gain in percent
}

// Model represents the TUI state
type Model struct {
	title    string
	keys     []rune
	baseNote int
	hold     time.Duration
	octave   int

	// held counts outstanding presses per note
	held map[int]int

	// Playback
	gain   int
	status StatusMsg

	controls *Controls
	quitting bool

	// Dimensions
	width  int
	height int
}

// StatusMsg updates the player status shown in the TUI
type StatusMsg struct {
	Playing      bool
	Format       string
	Engine       string
	ActiveVoices int
	Polyphony    int
	Filled       int64
	Underruns    uint64
	SubmitErrors uint64
}

// releaseMsg ends a key press after the hold time
type releaseMsg struct {
	note int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.status = msg
	case releaseMsg:
		return m, m.release(msg.note)
	}

	return m, nil
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if note, ok := m.noteForKey(key); ok {
		return m.press(note)
	}

	switch key {
	case "q", "esc", "ctrl+c":
		m.quitting = true
		if m.controls != nil {
			select {
			case m.controls.Quit <- QuitMsg{}:
			default:
			}
		}
		return m, tea.Quit
	case "up":
		m.setGain(m.gain + gainStep)
	case "down":
		m.setGain(m.gain - gainStep)
	case "left":
		if m.octave > minOctave {
			m.octave--
		}
	case "right":
		if m.octave < maxOctave {
			m.octave++
		}
	}

	return m, nil
}

// noteForKey maps a key to a note in the current octave
func (m Model) noteForKey(key string) (int, bool) {
	r := []rune(key)
	if len(r) != 1 {
		return 0, false
	}
	for i, k := range m.keys {
		if k == r[0] {
			note := m.baseNote + i + 12*m.octave
			if note < 0 || note > 127 {
				return 0, false
			}
			return note, true
		}
	}
	return 0, false
}

// press starts a note and schedules its release
func (m Model) press(note int) (tea.Model, tea.Cmd) {
	m.held[note]++
	m.sendNote(NoteMsg{Note: note, On: true})

	return m, tea.Tick(m.hold, func(time.Time) tea.Msg {
		return releaseMsg{note: note}
	})
}

// release ends one press of note. The note is released once every press
// of it has ended.
func (m *Model) release(note int) tea.Cmd {
	if m.held[note] == 0 {
		return nil
	}
	m.held[note]--
	if m.held[note] > 0 {
		return nil
	}
	delete(m.held, note)
	return m.sendNote(NoteMsg{Note: note, On: false})
}

func (m *Model) setGain(gain int) {
	gain = max(0, min(100, gain))
	if gain == m.gain {
		return
	}
	m.gain = gain

	if m.controls == nil {
		return
	}
	select {
	case m.controls.Gain <- GainChangeMsg{Gain: gain}:
	default:
		// Don't block if channel is full
	}
}

// sendNote forwards a note event without blocking the UI. A note-on is
// dropped when the channel is full. A note-off is never dropped: without room
// it is delivered by a command that waits, so no voice is left pressed.
func (m *Model) sendNote(msg NoteMsg) tea.Cmd {
	if m.controls == nil {
		return nil
	}
	select {
	case m.controls.Notes <- msg:
		return nil
	default:
	}
	if msg.On {
		return nil
	}
	notes := m.controls.Notes
	return func() tea.Msg {
		notes <- msg
		return nil
	}
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Stopping player...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86"))

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250"))

	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	state := "Stopped"
	if m.status.Playing {
		state = "Playing"
	}
	b.WriteString(headerStyle.Render("Status: "))
	b.WriteString(valueStyle.Render(state))
	b.WriteString("\n")

	if m.status.Format != "" {
		b.WriteString(headerStyle.Render("Format: "))
		b.WriteString(valueStyle.Render(fmt.Sprintf("%s (%s)", m.status.Format, m.status.Engine)))
		b.WriteString("\n")
	}

	b.WriteString(headerStyle.Render("Gain:   "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("[%s] %d%%", renderBar(m.gain, 100, 10), m.gain)))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Voices: "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("%d/%d", m.status.ActiveVoices, m.status.Polyphony)))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Stats:  "))
	b.WriteString(valueStyle.Render(fmt.Sprintf("buffers: %d  underruns: %d  submit errors: %d",
		m.status.Filled, m.status.Underruns, m.status.SubmitErrors)))
	b.WriteString("\n\n")

	b.WriteString(m.renderKeys())
	b.WriteString("\n\n")

	b.WriteString(lipgloss.NewStyle().Faint(true).Render(
		fmt.Sprintf("Octave %+d  ←/→:Octave  ↑/↓:Gain  q:Quit", m.octave)))

	return b.String()
}

// renderKeys draws one cell per key, highlighting held notes
func (m Model) renderKeys() string {
	keyStyle := lipgloss.NewStyle().
		Padding(0, 1).
		Foreground(lipgloss.Color("250"))

	heldStyle := keyStyle.
		Bold(true).
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color("220"))

	cells := make([]string, 0, len(m.keys))
	for i, k := range m.keys {
		note := m.baseNote + i + 12*m.octave
		label := fmt.Sprintf("%c\n%s", k, noteName(note))
		if m.held[note] > 0 {
			cells = append(cells, heldStyle.Render(label))
		} else {
			cells = append(cells, keyStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// noteName returns the scientific pitch name of a MIDI note (60 = C4)
func noteName(note int) string {
	if note < 0 || note > 127 {
		return "--"
	}
	return fmt.Sprintf("%s%d", noteNames[note%12], note/12-1)
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}
