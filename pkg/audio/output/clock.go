// ABOUTME: Headless playback engine driven by a wall clock
// ABOUTME: Consumes queued buffers at the format's real-time rate without an audio device
package output

import (
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
)

// DefaultClockPeriod is how often the clock engine pulls audio
const DefaultClockPeriod = 10 * time.Millisecond

// ClockConfig configures the headless engine
type ClockConfig struct {
	// Period is the tick interval. Zero means manual mode: audio is only
	// consumed through Advance.
	Period time.Duration

	// Sink receives every consumed byte, if set
	Sink io.Writer
}

// Clock is a playback engine without a device. It plays buffers in order at
// the real-time rate of the format and is used for headless runs and tests.
type Clock struct {
	config ClockConfig

	mu      sync.Mutex
	queue   *bufferQueue
	format  audio.Format
	started bool
	stop    chan struct{}
	wg      sync.WaitGroup

	pullMu   sync.Mutex
	scratch  []byte
	consumed atomic.Int64 // frames
}

// NewClock creates a headless engine
func NewClock(config ClockConfig) *Clock {
	return &Clock{config: config}
}

// Open prepares the engine for the given format
func (c *Clock) Open(config Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.queue != nil {
		return fmt.Errorf("clock output already open with %s", c.format)
	}
	if err := config.Format.Validate(); err != nil {
		return err
	}

	queue, err := newBufferQueue(config.Format, config.Done)
	if err != nil {
		return err
	}

	c.queue = queue
	c.format = config.Format
	c.scratch = make([]byte, config.BufferBytes)

	if c.config.Period > 0 {
		log.Printf("Audio output initialized: %s (clock, %v period)", c.format, c.config.Period)
	} else {
		log.Printf("Audio output initialized: %s (clock, manual)", c.format)
	}

	return nil
}

// Enqueue submits a buffer for playback
func (c *Clock) Enqueue(buf *audio.Buffer) error {
	c.mu.Lock()
	queue := c.queue
	c.mu.Unlock()

	if queue == nil {
		return ErrNotOpen
	}
	return queue.push(buf)
}

// Start begins consuming audio
func (c *Clock) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.queue == nil {
		return ErrNotOpen
	}
	if c.started {
		return nil
	}
	c.started = true

	if c.config.Period > 0 {
		c.stop = make(chan struct{})
		c.wg.Add(1)
		go c.run(c.stop)
	}
	return nil
}

// Pause stops consuming audio and waits for the clock goroutine to exit
func (c *Clock) Pause() error {
	c.mu.Lock()
	if c.queue == nil {
		c.mu.Unlock()
		return ErrNotOpen
	}
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = false
	stop := c.stop
	c.stop = nil
	c.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	c.wg.Wait()
	return nil
}

// run consumes frames in step with the wall clock
func (c *Clock) run(stop <-chan struct{}) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.Period)
	defer ticker.Stop()

	start := time.Now()
	var played int64

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			due := int64(now.Sub(start)) * int64(c.format.SampleRate) / int64(time.Second)
			if due > played {
				c.pull(int(due - played))
				played = due
			}
		}
	}
}

// Advance consumes the given number of frames immediately. It only has an
// effect while the engine is started and returns the frames consumed.
func (c *Clock) Advance(frames int) int {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()

	if !started || frames <= 0 {
		return 0
	}
	c.pull(frames)
	return frames
}

// pull reads frames from the queue and hands them to the sink
func (c *Clock) pull(frames int) {
	c.pullMu.Lock()
	defer c.pullMu.Unlock()

	remaining := frames * c.format.BytesPerFrame()
	for remaining > 0 {
		chunk := c.scratch
		if len(chunk) == 0 {
			c.scratch = make([]byte, remaining)
			chunk = c.scratch
		}
		if len(chunk) > remaining {
			chunk = chunk[:remaining]
		}

		c.queue.read(chunk)
		if c.config.Sink != nil {
			if _, err := c.config.Sink.Write(chunk); err != nil {
				log.Printf("Warning: clock sink write error: %v", err)
			}
		}
		remaining -= len(chunk)
	}

	c.consumed.Add(int64(frames))
}

// Consumed returns the total number of frames played
func (c *Clock) Consumed() int64 {
	return c.consumed.Load()
}

// Queued returns the number of buffers waiting to be played
func (c *Clock) Queued() int {
	c.mu.Lock()
	queue := c.queue
	c.mu.Unlock()

	if queue == nil {
		return 0
	}
	return queue.queued()
}

// Flush drops every queued buffer
func (c *Clock) Flush() {
	c.mu.Lock()
	queue := c.queue
	c.mu.Unlock()

	if queue != nil {
		queue.flush()
	}
}

// Underruns returns how many reads found the queue empty
func (c *Clock) Underruns() uint64 {
	c.mu.Lock()
	queue := c.queue
	c.mu.Unlock()

	if queue == nil {
		return 0
	}
	return queue.underruns.Load()
}

// Close stops the engine and releases the queue
func (c *Clock) Close() error {
	if err := c.Pause(); err != nil && err != ErrNotOpen {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.queue != nil {
		c.queue.flush()
		c.queue = nil
	}
	return nil
}
