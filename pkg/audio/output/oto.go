// ABOUTME: Oto-based playback engine
// ABOUTME: Feeds queued PCM buffers to an oto player, converting non-16-bit formats to float32
package output

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
	"github.com/ebitengine/oto/v3"
)

// oto only allows one context per process, so it is shared between engines
var (
	otoMu      sync.Mutex
	otoCtx     *oto.Context
	otoOptions oto.NewContextOptions
)

// Oto output implementation using oto library
type Oto struct {
	mu      sync.Mutex
	ctx     *oto.Context
	player  *oto.Player
	queue   *bufferQueue
	format  audio.Format
	native  bool // 16-bit formats are passed through unconverted
	started bool

	// Scratch space for the float32 conversion path, owned by the oto reader goroutine
	raw    []byte
	floats []float32

	playerBufferSize int
}

// NewOto creates a new Oto output
func NewOto() *Oto {
	return &Oto{}
}

// Open initializes the output device
func (o *Oto) Open(config Config) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		return fmt.Errorf("oto output already open with %s", o.format)
	}

	format := config.Format
	if err := format.Validate(); err != nil {
		return err
	}

	queue, err := newBufferQueue(format, config.Done)
	if err != nil {
		return err
	}

	o.native = format.BitDepth == 16
	sampleFormat := oto.FormatFloat32LE
	if o.native {
		sampleFormat = oto.FormatSignedInt16LE
	}

	ctx, err := sharedOtoContext(oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       sampleFormat,
	})
	if err != nil {
		return err
	}

	o.ctx = ctx
	o.queue = queue
	o.format = format

	frames := format.FramesIn(config.BufferBytes)
	if !o.native {
		samples := frames * format.Channels
		o.raw = make([]byte, samples*format.BytesPerSample())
		o.floats = make([]float32, samples)
		o.playerBufferSize = samples * 4
	} else {
		o.playerBufferSize = frames * format.BytesPerFrame()
	}

	o.newPlayer()

	log.Printf("Audio output initialized: %s (oto/%s)", format, sampleFormatName(sampleFormat))

	return nil
}

// newPlayer creates the oto player that pulls from the queue (must hold o.mu)
func (o *Oto) newPlayer() {
	o.player = o.ctx.NewPlayer(o)
	if o.playerBufferSize > 0 {
		o.player.SetBufferSize(o.playerBufferSize)
	}
}

// Read is called by oto's player goroutine to pull audio
func (o *Oto) Read(p []byte) (int, error) {
	if o.native {
		o.queue.read(p)
		return len(p), nil
	}

	samples := len(p) / 4
	need := samples * o.format.BytesPerSample()

	// Only grows if oto asks for more than one buffer at once
	if len(o.raw) < need {
		o.raw = make([]byte, need)
		o.floats = make([]float32, samples)
	}
	if len(o.floats) < samples {
		o.floats = make([]float32, samples)
	}

	raw := o.raw[:need]
	floats := o.floats[:samples]
	o.queue.read(raw)
	o.queue.codec.Decode(raw, floats)

	for i, f := range floats {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(f))
	}

	return samples * 4, nil
}

// Enqueue submits a buffer for playback
func (o *Oto) Enqueue(buf *audio.Buffer) error {
	if o.queue == nil {
		return ErrNotOpen
	}
	return o.queue.push(buf)
}

// Start begins playback
func (o *Oto) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return ErrNotOpen
	}
	if !o.started {
		o.player.Play()
		o.started = true
	}
	return o.player.Err()
}

// Pause stops pulling audio from the queue
func (o *Oto) Pause() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return ErrNotOpen
	}
	if o.started {
		o.player.Pause()
		o.started = false
	}
	return o.player.Err()
}

// Flush drops queued buffers and any audio oto already pulled
func (o *Oto) Flush() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.queue == nil {
		return
	}
	o.queue.flush()

	// oto keeps its own read-ahead; a fresh player discards it
	if o.player != nil && !o.started {
		if err := o.player.Close(); err != nil {
			log.Printf("Warning: oto player close error: %v", err)
		}
		o.newPlayer()
	}
}

// Underruns returns how many reads found the queue empty
func (o *Oto) Underruns() uint64 {
	if o.queue == nil {
		return 0
	}
	return o.queue.underruns.Load()
}

// Close releases output resources
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		if err := o.player.Close(); err != nil {
			log.Printf("Warning: oto player close error: %v", err)
		}
		o.player = nil
		o.started = false
	}
	if o.queue != nil {
		o.queue.flush()
	}
	if o.ctx != nil {
		if err := o.ctx.Suspend(); err != nil {
			return fmt.Errorf("failed to suspend oto context: %w", err)
		}
		o.ctx = nil
	}
	return nil
}

// sharedOtoContext returns the process-wide oto context, creating it on first
// use. A later request for a different format fails because oto cannot be
// reinitialized.
func sharedOtoContext(op oto.NewContextOptions) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoOptions.SampleRate != op.SampleRate || otoOptions.ChannelCount != op.ChannelCount || otoOptions.Format != op.Format {
			return nil, fmt.Errorf("oto context already initialized with %dHz/%dch/%s, cannot switch to %dHz/%dch/%s",
				otoOptions.SampleRate, otoOptions.ChannelCount, sampleFormatName(otoOptions.Format),
				op.SampleRate, op.ChannelCount, sampleFormatName(op.Format))
		}
		if err := otoCtx.Resume(); err != nil {
			return nil, fmt.Errorf("failed to resume oto context: %w", err)
		}
		return otoCtx, nil
	}

	ctx, readyChan, err := oto.NewContext(&op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	otoCtx = ctx
	otoOptions = op
	return ctx, nil
}

// sampleFormatName returns human-readable format name
func sampleFormatName(format oto.Format) string {
	switch format {
	case oto.FormatSignedInt16LE:
		return "S16LE"
	case oto.FormatFloat32LE:
		return "F32LE"
	case oto.FormatUnsignedInt8:
		return "U8"
	default:
		return fmt.Sprintf("Unknown(%d)", format)
	}
}
