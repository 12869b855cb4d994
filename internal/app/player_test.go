// ABOUTME: Tests for synth player application orchestration
// ABOUTME: Tests wiring, headless sequencing and TUI control handling with the clock engine
package app

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Resonate-Protocol/resonate-synth/internal/config"
	"github.com/Resonate-Protocol/resonate-synth/internal/ui"
	"github.com/Resonate-Protocol/resonate-synth/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-synth/pkg/synth"
)

// lockedBuffer is a sink safe to read while the clock goroutine writes
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) nonZero() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, v := range b.buf.Bytes() {
		if v != 0 {
			return true
		}
	}
	return false
}

func testSettings() *config.Config {
	cfg := config.Default()
	cfg.SampleRate = 8000
	cfg.PacketsPerBuffer = 80 // 10ms
	cfg.Engine = "clock"
	return cfg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNewPlayer(t *testing.T) {
	app, err := New(Config{Settings: testSettings()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer app.Close()

	p := app.BufferPlayer()
	if p.Playing() {
		t.Error("expected player stopped before Run")
	}
	if p.Format().SampleRate != 8000 || p.Format().Channels != 1 || p.Format().BitDepth != 16 {
		t.Errorf("unexpected format %v", p.Format())
	}
	if p.PacketsPerBuffer() != 80 {
		t.Errorf("expected 80 packets per buffer, got %d", p.PacketsPerBuffer())
	}
	if p.Gain() != config.DefaultGain {
		t.Errorf("expected gain %v, got %v", config.DefaultGain, p.Gain())
	}
	if app.Controls() == nil || app.Synth() == nil {
		t.Error("expected controls and synth to be initialized")
	}
}

func TestNewPlayerDefaults(t *testing.T) {
	app, err := New(Config{Engine: output.NewClock(output.ClockConfig{})})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer app.Close()

	if app.BufferPlayer().Format().SampleRate != config.DefaultSampleRate {
		t.Errorf("expected default sample rate, got %d", app.BufferPlayer().Format().SampleRate)
	}
}

func TestNewPlayerInvalidSettings(t *testing.T) {
	cfg := testSettings()
	cfg.Polyphony = 0

	if _, err := New(Config{Settings: cfg}); err == nil {
		t.Fatal("expected error for invalid settings")
	}
}

func TestRunHeadlessPlaysSequence(t *testing.T) {
	sink := &lockedBuffer{}
	clock := output.NewClock(output.ClockConfig{Period: 2 * time.Millisecond, Sink: sink})

	app, err := New(Config{
		Settings: testSettings(),
		Engine:   clock,
		Steps:    Sequence(60, MajorTriad, 20*time.Millisecond, 5*time.Millisecond),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	waitFor(t, "audible output", sink.nonZero)
	waitFor(t, "buffer rotation", func() bool { return app.Status().Filled > 6 })

	status := app.Status()
	if !status.Playing {
		t.Error("expected Playing while running")
	}
	if status.Polyphony != 16 {
		t.Errorf("expected polyphony 16, got %d", status.Polyphony)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if app.BufferPlayer().Playing() {
		t.Error("expected playback stopped after Run")
	}
}

func TestRunAppliesControls(t *testing.T) {
	clock := output.NewClock(output.ClockConfig{})

	app, err := New(Config{Settings: testSettings(), Engine: clock})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer app.Close()

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	waitFor(t, "playback start", app.BufferPlayer().Playing)

	controls := app.Controls()
	controls.Notes <- ui.NoteMsg{Note: 60, On: true}
	waitFor(t, "note on", func() bool { return app.Synth().ActiveVoices() == 1 })

	controls.Notes <- ui.NoteMsg{Note: 60, On: false}
	waitFor(t, "note release", func() bool {
		voices := app.Synth().Voices()
		return voices[0].State == synth.Released
	})

	controls.Gain <- ui.GainChangeMsg{Gain: 25}
	waitFor(t, "gain change", func() bool { return app.BufferPlayer().Gain() == 0.25 })

	controls.Quit <- ui.QuitMsg{}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after quit")
	}
}
