// ABOUTME: Mutex-guarded synthesizer for use across goroutines
// ABOUTME: Serializes note events from the UI with fills from the player's callback goroutine
package synth

import (
	"sync"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
)

// Guarded wraps a Synth with the single lock that every note event and fill
// must hold. It implements player.Filler.
//
// The critical sections never block, so holding the lock on the player's
// callback goroutine is safe.
type Guarded struct {
	mu    sync.Mutex
	synth *Synth
}

// NewGuarded wraps s. s must not be used directly afterwards.
func NewGuarded(s *Synth) *Guarded {
	return &Guarded{synth: s}
}

// PlayNote starts a note
func (g *Guarded) PlayNote(note int) {
	g.mu.Lock()
	g.synth.PlayNote(note)
	g.mu.Unlock()
}

// ReleaseNote releases every pressed voice playing note
func (g *Guarded) ReleaseNote(note int) {
	g.mu.Lock()
	g.synth.ReleaseNote(note)
	g.mu.Unlock()
}

// FillBuffer renders into buf while holding the lock
func (g *Guarded) FillBuffer(buf *audio.Buffer, format audio.Format) {
	g.mu.Lock()
	g.synth.FillBuffer(buf, format)
	g.mu.Unlock()
}

// ActiveVoices returns how many voices are sounding
func (g *Guarded) ActiveVoices() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.synth.ActiveVoices()
}

// Voices returns a snapshot of the voice pool
func (g *Guarded) Voices() []Voice {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.synth.Voices()
}

// SampleRate returns the output sample rate
func (g *Guarded) SampleRate() int {
	return g.synth.SampleRate()
}
