// ABOUTME: Buffer player that keeps a fixed set of audio buffers in rotation
// ABOUTME: Asks a Filler for audio on a dedicated callback goroutine and submits it to a playback engine
package player

import (
	"errors"
	"fmt"
	"log"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
	"github.com/Resonate-Protocol/resonate-synth/pkg/audio/output"
	"github.com/google/uuid"
)

// BufferCount is the number of buffers kept in rotation
const BufferCount = 3

// ErrConfiguration is wrapped by every construction failure
var ErrConfiguration = errors.New("player configuration error")

// Filler fills buffers with audio.
//
// FillBuffer runs on the player's callback goroutine. It must write between 0
// and buf.Capacity() bytes, set buf.Size, and return quickly without blocking
// or allocating. If there is nothing to play it should call buf.Silence().
// The buffer must not be retained after the call returns.
type Filler interface {
	FillBuffer(buf *audio.Buffer, format audio.Format)
}

// FillFunc adapts a function to the Filler interface
type FillFunc func(buf *audio.Buffer, format audio.Format)

// FillBuffer calls f(buf, format)
func (f FillFunc) FillBuffer(buf *audio.Buffer, format audio.Format) {
	f(buf, format)
}

// BufferSize selects how large each buffer is: either a duration or a packet
// count. The zero value is invalid.
type BufferSize struct {
	duration time.Duration
	packets  int
}

// BufferDuration sizes buffers to hold d of audio. This equals the latency.
func BufferDuration(d time.Duration) BufferSize {
	return BufferSize{duration: d}
}

// BufferPackets sizes buffers to hold n packets (frames)
func BufferPackets(n int) BufferSize {
	return BufferSize{packets: n}
}

// packetsFor resolves the buffer size for a sample rate
func (s BufferSize) packetsFor(sampleRate int) (int, error) {
	switch {
	case s.duration != 0 && s.packets != 0:
		return 0, errors.New("buffer size must be a duration or a packet count, not both")
	case s.duration < 0:
		return 0, fmt.Errorf("buffer duration must be positive, got %v", s.duration)
	case s.duration > 0:
		packets := int(int64(s.duration) * int64(sampleRate) / int64(time.Second))
		if packets <= 0 {
			return 0, fmt.Errorf("buffer duration %v is shorter than one frame at %dHz", s.duration, sampleRate)
		}
		return packets, nil
	case s.packets < 0:
		return 0, fmt.Errorf("packets per buffer must be positive, got %d", s.packets)
	case s.packets > 0:
		return s.packets, nil
	default:
		return 0, errors.New("buffer size not specified")
	}
}

// Config holds player configuration
type Config struct {
	// SampleRate is the number of frames per second (typical: 8000-48000)
	SampleRate int

	// Channels is 1 for mono or 2 for stereo
	Channels int

	// BitsPerChannel is 8, 16, 24 or 32
	BitsPerChannel int

	// BufferSize is BufferDuration(...) or BufferPackets(...)
	BufferSize BufferSize

	// Engine plays the buffers (default: oto)
	Engine output.Engine

	// Filler produces the audio; it can also be set later with SetFiller
	Filler Filler
}

// Stats contains playback statistics
type Stats struct {
	Filled       int64  // buffers filled and submitted
	Underruns    uint64 // device reads that found no audio queued
	SubmitErrors uint64 // resubmissions the engine rejected; the buffer is retried
}

// fillerRef lets the Filler be swapped atomically
type fillerRef struct {
	filler Filler
}

// run is the state of one Playing period
type run struct {
	buffers [BufferCount]*audio.Buffer
	ready   chan *audio.Buffer
	done    chan struct{}
}

func (r *run) owns(buf *audio.Buffer) bool {
	for _, b := range r.buffers {
		if b == buf {
			return true
		}
	}
	return false
}

// Player plays audio produced by a Filler through a playback engine.
//
// The player starts out Stopped. Start primes every buffer and begins
// playback; from then on each buffer the engine finishes is refilled and
// resubmitted on a dedicated goroutine until Stop.
type Player struct {
	id     string
	format audio.Format
	engine output.Engine

	packetsPerBuffer int
	bytesPerBuffer   int
	retryDelay       time.Duration

	filler atomic.Pointer[fillerRef]
	gain   atomic.Uint32 // math.Float32bits

	// mu serializes Start, Stop and Close
	mu      sync.Mutex
	playing atomic.Bool
	current atomic.Pointer[run]
	wg      sync.WaitGroup

	filled       atomic.Int64
	submitErrors atomic.Uint64
}

// New creates a stopped player and opens its engine
func New(config Config) (*Player, error) {
	format := audio.Format{
		SampleRate: config.SampleRate,
		Channels:   config.Channels,
		BitDepth:   config.BitsPerChannel,
	}
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	packets, err := config.BufferSize.packetsFor(format.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	engine := config.Engine
	if engine == nil {
		engine = output.NewOto()
	}

	p := &Player{
		id:               uuid.New().String(),
		format:           format,
		engine:           engine,
		packetsPerBuffer: packets,
		bytesPerBuffer:   packets * format.BytesPerPacket(),
		retryDelay:       max(format.Duration(packets)/BufferCount, time.Millisecond),
	}
	p.gain.Store(math.Float32bits(1.0))
	p.SetFiller(config.Filler)

	err = engine.Open(output.Config{
		Format:      format,
		BufferBytes: p.bytesPerBuffer,
		Done:        p.bufferDone,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open playback engine: %w", ErrConfiguration, err)
	}

	log.Printf("Player %s created: %s, %d packets (%d bytes, %v) per buffer",
		p.id, format, packets, p.bytesPerBuffer, format.Duration(packets))

	return p, nil
}

// ID returns the player's unique identifier
func (p *Player) ID() string {
	return p.id
}

// Format returns the audio format used for playback
func (p *Player) Format() audio.Format {
	return p.format
}

// PacketsPerBuffer returns how many packets each buffer holds
func (p *Player) PacketsPerBuffer() int {
	return p.packetsPerBuffer
}

// BytesPerBuffer returns the capacity of each buffer
func (p *Player) BytesPerBuffer() int {
	return p.bytesPerBuffer
}

// Playing reports whether the player is active
func (p *Player) Playing() bool {
	return p.playing.Load()
}

// Gain returns the relative playback level (default 1.0)
func (p *Player) Gain() float32 {
	return math.Float32frombits(p.gain.Load())
}

// SetGain changes the playback level. Buffers that are already queued keep
// the gain they were submitted with.
func (p *Player) SetGain(gain float32) {
	if gain < 0 {
		gain = 0
	}
	p.gain.Store(math.Float32bits(gain))
}

// SetFiller replaces the fill routine. Passing nil clears it; the player then
// plays silence. Callers must clear or replace the Filler before it becomes
// invalid.
func (p *Player) SetFiller(f Filler) {
	if f == nil {
		p.filler.Store(nil)
		return
	}
	p.filler.Store(&fillerRef{filler: f})
}

// Stats returns playback statistics
func (p *Player) Stats() Stats {
	return Stats{
		Filled:       p.filled.Load(),
		Underruns:    p.engine.Underruns(),
		SubmitErrors: p.submitErrors.Load(),
	}
}

// Start primes every buffer and begins playback. Calling Start while playing
// does nothing. If priming or starting the engine fails the player stays
// stopped and nothing remains queued.
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing.Load() {
		return nil
	}

	r := &run{
		ready: make(chan *audio.Buffer, BufferCount),
		done:  make(chan struct{}),
	}
	for i := range r.buffers {
		r.buffers[i] = audio.NewBuffer(p.bytesPerBuffer)
	}

	p.playing.Store(true)
	p.current.Store(r)

	for _, buf := range r.buffers {
		if err := p.submit(buf); err != nil {
			p.abort()
			return fmt.Errorf("failed to prime buffers: %w", err)
		}
	}

	if err := p.engine.Start(); err != nil {
		p.abort()
		return fmt.Errorf("failed to start playback engine: %w", err)
	}

	p.wg.Add(1)
	go p.callbackLoop(r)

	log.Printf("Player %s started", p.id)
	return nil
}

// abort undoes a partially completed Start (must hold p.mu)
func (p *Player) abort() {
	p.playing.Store(false)
	p.current.Store(nil)
	if err := p.engine.Pause(); err != nil {
		log.Printf("Warning: player %s engine pause error: %v", p.id, err)
	}
	p.engine.Flush()
}

// Stop pauses playback and releases the buffers. It waits for an in-flight
// fill to finish before returning. Calling Stop while stopped does nothing.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.playing.Load() {
		return nil
	}

	pauseErr := p.engine.Pause()

	p.playing.Store(false)
	r := p.current.Swap(nil)
	close(r.done)
	p.wg.Wait()

	p.engine.Flush()
	for i := range r.buffers {
		r.buffers[i] = nil
	}

	log.Printf("Player %s stopped", p.id)

	if pauseErr != nil {
		return fmt.Errorf("failed to pause playback engine: %w", pauseErr)
	}
	return nil
}

// Close stops playback and releases the engine
func (p *Player) Close() error {
	if err := p.Stop(); err != nil {
		log.Printf("Warning: player %s stop error: %v", p.id, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.engine.Close(); err != nil {
		return fmt.Errorf("failed to close playback engine: %w", err)
	}
	return nil
}

// submit fills a buffer and hands it to the engine
func (p *Player) submit(buf *audio.Buffer) error {
	if ref := p.filler.Load(); ref != nil {
		ref.filler.FillBuffer(buf, p.format)
	} else {
		buf.Silence()
	}

	buf.Gain = p.Gain()
	if err := p.engine.Enqueue(buf); err != nil {
		return err
	}
	p.filled.Add(1)
	return nil
}

// bufferDone is called from the engine's device thread when a buffer has
// been played. It never blocks.
func (p *Player) bufferDone(buf *audio.Buffer) {
	r := p.current.Load()
	if r == nil || !r.owns(buf) {
		return
	}
	select {
	case r.ready <- buf:
	default:
	}
}

// callbackLoop refills and resubmits buffers as the engine finishes them.
// Buffers the engine rejects stay pending, in order, and are retried on the
// next finished buffer or after retryDelay.
func (p *Player) callbackLoop(r *run) {
	defer p.wg.Done()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var pending [BufferCount]*audio.Buffer
	n := 0

	retry := time.NewTimer(p.retryDelay)
	retry.Stop()
	defer retry.Stop()

	for {
		select {
		case <-r.done:
			return
		case buf := <-r.ready:
			if !p.playing.Load() {
				return
			}
			pending[n] = buf
			n++
		case <-retry.C:
			if !p.playing.Load() {
				return
			}
		}

		n = p.resubmit(pending[:n])
		if n > 0 {
			retry.Reset(p.retryDelay)
		}
	}
}

// resubmit submits bufs in order, stopping at the first failure. The
// unsubmitted buffers are moved to the front of bufs and their count is
// returned.
func (p *Player) resubmit(bufs []*audio.Buffer) int {
	for i, buf := range bufs {
		if err := p.submit(buf); err != nil {
			if p.submitErrors.Add(1) == 1 {
				log.Printf("Warning: player %s failed to resubmit buffer, retrying: %v", p.id, err)
			}
			n := copy(bufs, bufs[i:])
			clear(bufs[n:])
			return n
		}
	}
	clear(bufs)
	return 0
}
