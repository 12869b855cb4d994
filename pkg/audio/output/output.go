// ABOUTME: Playback engine interface definition
// ABOUTME: Common interface for queue-based audio playback backends
package output

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
)

var (
	// ErrNotOpen is returned when an engine is used before Open
	ErrNotOpen = errors.New("output not initialized")

	// ErrQueueFull is returned when more buffers are queued than an engine can hold
	ErrQueueFull = errors.New("output queue full")
)

// Config describes how an engine should be opened
type Config struct {
	// Format is the PCM format of every queued buffer
	Format audio.Format

	// BufferBytes is the capacity of each queued buffer, used as a latency hint
	BufferBytes int

	// Done is called from the engine's device thread each time a queued buffer
	// has been fully played. It must not block.
	Done func(buf *audio.Buffer)
}

// Engine represents a hardware playback engine that plays queued buffers in
// the order they were submitted
type Engine interface {
	// Open initializes the device for the given format
	Open(config Config) error

	// Enqueue submits a filled buffer for playback. The buffer's Gain is
	// applied to its contents at this point.
	Enqueue(buf *audio.Buffer) error

	// Start begins (or resumes) pulling queued buffers
	Start() error

	// Pause stops pulling buffers; Done is not called while paused
	Pause() error

	// Flush drops every queued buffer without calling Done
	Flush()

	// Underruns returns how many device reads found the queue empty
	Underruns() uint64

	// Close releases device resources
	Close() error
}

// NewEngine creates an engine by name: "oto", "malgo" or "clock"
func NewEngine(name string) (Engine, error) {
	switch name {
	case "", "oto":
		return NewOto(), nil
	case "malgo":
		return NewMalgo(), nil
	case "clock":
		return NewClock(ClockConfig{Period: DefaultClockPeriod}), nil
	default:
		return nil, fmt.Errorf("unknown output engine: %s (supported: oto, malgo, clock)", name)
	}
}
