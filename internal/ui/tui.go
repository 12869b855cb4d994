// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and the channels it uses to talk to the player
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// NoteMsg is a note event from the keyboard
type NoteMsg struct {
	Note int
	On   bool
}

// GainChangeMsg requests a new player gain in percent
type GainChangeMsg struct {
	Gain int
}

// QuitMsg signals that the user asked to quit
type QuitMsg struct{}

// Controls holds channels for communication from the TUI to the player
type Controls struct {
	Notes chan NoteMsg
	Gain  chan GainChangeMsg
	Quit  chan QuitMsg
}

// NewControls creates a new control handler
func NewControls() *Controls {
	return &Controls{
		Notes: make(chan NoteMsg, 64),
		Gain:  make(chan GainChangeMsg, 10),
		Quit:  make(chan QuitMsg, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(config ModelConfig, controls *Controls) Model {
	if config.Hold <= 0 {
		config.Hold = 300 * time.Millisecond
	}
	if config.Title == "" {
		config.Title = "Synth"
	}

	return Model{
		title:    config.Title,
		keys:     []rune(config.Keys),
		baseNote: config.BaseNote,
		hold:     config.Hold,
		gain:     max(0, min(100, config.Gain)),
		held:     make(map[int]int),
		controls: controls,
	}
}

// TUI runs the piano program
type TUI struct {
	program *tea.Program
	updates chan StatusMsg
	done    chan struct{}
}

// New creates the TUI program
func New(config ModelConfig, controls *Controls) *TUI {
	return &TUI{
		program: tea.NewProgram(NewModel(config, controls), tea.WithAltScreen()),
		updates: make(chan StatusMsg, 10),
		done:    make(chan struct{}),
	}
}

// Run blocks until the user quits or Stop is called
func (t *TUI) Run() error {
	go func() {
		for {
			select {
			case status := <-t.updates:
				t.program.Send(status)
			case <-t.done:
				return
			}
		}
	}()

	_, err := t.program.Run()
	close(t.done)
	return err
}

// Update sends a status update to the TUI
func (t *TUI) Update(status StatusMsg) {
	select {
	case t.updates <- status:
	default:
		// Don't block if channel is full
	}
}

// Stop stops the TUI
func (t *TUI) Stop() {
	t.program.Quit()
}
