// ABOUTME: Main synth player application orchestration
// ABOUTME: Wires the synthesizer, buffer player, playback engine and TUI together
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Resonate-Protocol/resonate-synth/internal/config"
	"github.com/Resonate-Protocol/resonate-synth/internal/ui"
	"github.com/Resonate-Protocol/resonate-synth/internal/version"
	"github.com/Resonate-Protocol/resonate-synth/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-synth/pkg/player"
	"github.com/Resonate-Protocol/resonate-synth/pkg/synth"
)

// statusInterval is how often the TUI status is refreshed
const statusInterval = 250 * time.Millisecond

// Config holds application configuration
type Config struct {
	Settings *config.Config

	// UseTUI runs the keyboard piano; otherwise Steps loop until the
	// context is cancelled
	UseTUI bool
	Steps  []Step

	// Engine overrides the engine named in Settings
	Engine output.Engine
}

// Player represents the main application
type Player struct {
	config   Config
	settings *config.Config
	synth    *synth.Guarded
	player   *player.Player
	controls *ui.Controls
	tui      *ui.TUI
}

// New builds the synthesizer and the buffer player
func New(cfg Config) (*Player, error) {
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	s, err := synth.New(synth.Config{
		SampleRate: settings.SampleRate,
		Polyphony:  settings.Polyphony,
		Gain:       settings.SynthGain,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesizer: %w", err)
	}
	guarded := synth.NewGuarded(s)

	engine := cfg.Engine
	if engine == nil {
		engine, err = output.NewEngine(settings.Engine)
		if err != nil {
			return nil, err
		}
	}

	format := synth.Format(settings.SampleRate)
	p, err := player.New(player.Config{
		SampleRate:     format.SampleRate,
		Channels:       format.Channels,
		BitsPerChannel: format.BitDepth,
		BufferSize:     settings.BufferSize(),
		Engine:         engine,
		Filler:         guarded,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	p.SetGain(settings.Gain)

	return &Player{
		config:   cfg,
		settings: settings,
		synth:    guarded,
		player:   p,
		controls: ui.NewControls(),
	}, nil
}

// Synth returns the guarded synthesizer
func (a *Player) Synth() *synth.Guarded {
	return a.synth
}

// BufferPlayer returns the underlying buffer player
func (a *Player) BufferPlayer() *player.Player {
	return a.player
}

// Controls returns the channels the TUI uses to drive the player
func (a *Player) Controls() *ui.Controls {
	return a.controls
}

// Run starts playback and blocks until ctx is cancelled or the user quits.
// Playback is stopped before Run returns.
func (a *Player) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Printf("%s starting", version.String())

	if err := a.player.Start(); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}
	defer func() {
		if err := a.player.Stop(); err != nil {
			log.Printf("Warning: failed to stop playback: %v", err)
		}
	}()

	go a.handleControls(ctx, cancel)

	if !a.config.UseTUI {
		if err := Loop(ctx, a.synth, a.config.Steps); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	}

	a.tui = ui.New(ui.ModelConfig{
		Title:    version.String(),
		Keys:     a.settings.Keys,
		BaseNote: a.settings.BaseNote,
		Hold:     a.settings.Hold(),
		Gain:     int(a.player.Gain()*100 + 0.5),
	}, a.controls)

	go a.statusLoop(ctx)
	go func() {
		<-ctx.Done()
		a.tui.Stop()
	}()

	if err := a.tui.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// handleControls applies note and gain events from the TUI
func (a *Player) handleControls(ctx context.Context, cancel context.CancelFunc) {
	for {
		select {
		case msg := <-a.controls.Notes:
			if msg.On {
				a.synth.PlayNote(msg.Note)
			} else {
				a.synth.ReleaseNote(msg.Note)
			}

		case msg := <-a.controls.Gain:
			a.player.SetGain(float32(msg.Gain) / 100)
			log.Printf("Gain changed to %d%%", msg.Gain)

		case <-a.controls.Quit:
			log.Printf("Quit requested from TUI")
			cancel()
			return

		case <-ctx.Done():
			return
		}
	}
}

// statusLoop pushes player status to the TUI
func (a *Player) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.tui.Update(a.Status())
		case <-ctx.Done():
			return
		}
	}
}

// Status returns the current player status
func (a *Player) Status() ui.StatusMsg {
	stats := a.player.Stats()
	return ui.StatusMsg{
		Playing:      a.player.Playing(),
		Format:       a.player.Format().String(),
		Engine:       a.settings.Engine,
		ActiveVoices: a.synth.ActiveVoices(),
		Polyphony:    a.settings.Polyphony,
		Filled:       stats.Filled,
		Underruns:    stats.Underruns,
		SubmitErrors: stats.SubmitErrors,
	}
}

// Close releases the playback engine
func (a *Player) Close() error {
	return a.player.Close()
}
