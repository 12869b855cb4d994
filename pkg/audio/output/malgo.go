//go:build malgo

// ABOUTME: Malgo-based playback engine with native 16/24/32-bit support
// ABOUTME: Uses miniaudio via malgo; the device data callback drains the buffer queue
package output

import (
	"fmt"
	"log"
	"sync"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
	"github.com/gen2brain/malgo"
)

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	queue    *bufferQueue
	format   audio.Format
	started  bool
}

// NewMalgo creates a new Malgo output
func NewMalgo() *Malgo {
	return &Malgo{}
}

// Open initializes the output device with specified format
func (m *Malgo) Open(config Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return fmt.Errorf("malgo output already open with %s", m.format)
	}

	format := config.Format
	if err := format.Validate(); err != nil {
		return err
	}

	queue, err := newBufferQueue(format, config.Done)
	if err != nil {
		return err
	}

	// Map bit depth to malgo format
	var sampleFormat malgo.FormatType
	switch format.BitDepth {
	case 8:
		sampleFormat = malgo.FormatU8
	case 16:
		sampleFormat = malgo.FormatS16
	case 24:
		sampleFormat = malgo.FormatS24
	case 32:
		sampleFormat = malgo.FormatS32
	}

	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize malgo context: %w", err)
		}
		m.malgoCtx = ctx
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = sampleFormat
	deviceConfig.Playback.Channels = uint32(format.Channels)
	deviceConfig.SampleRate = uint32(format.SampleRate)
	deviceConfig.Alsa.NoMMap = 1
	if frames := format.FramesIn(config.BufferBytes); frames > 0 {
		deviceConfig.PeriodSizeInFrames = uint32(frames)
	}

	bytesPerFrame := format.BytesPerFrame()
	unsigned := format.BitDepth == 8

	onSamples := func(pOutputSample, pInputSamples []byte, frameCount uint32) {
		out := pOutputSample[:int(frameCount)*bytesPerFrame]
		queue.read(out)
		if unsigned {
			// miniaudio's 8-bit format is unsigned
			for i := range out {
				out[i] ^= 0x80
			}
		}
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSamples,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	m.device = device
	m.queue = queue
	m.format = format

	log.Printf("Audio output initialized: %s (malgo/%s)", format, formatName(sampleFormat))

	return nil
}

// Enqueue submits a buffer for playback
func (m *Malgo) Enqueue(buf *audio.Buffer) error {
	if m.queue == nil {
		return ErrNotOpen
	}
	return m.queue.push(buf)
}

// Start starts the device
func (m *Malgo) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return ErrNotOpen
	}
	if m.started {
		return nil
	}
	if err := m.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	m.started = true
	return nil
}

// Pause stops the device; miniaudio waits for the data callback to return
func (m *Malgo) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return ErrNotOpen
	}
	if !m.started {
		return nil
	}
	if err := m.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop device: %w", err)
	}
	m.started = false
	return nil
}

// Flush drops every queued buffer
func (m *Malgo) Flush() {
	if m.queue != nil {
		m.queue.flush()
	}
}

// Underruns returns how many callbacks found the queue empty
func (m *Malgo) Underruns() uint64 {
	if m.queue == nil {
		return 0
	}
	return m.queue.underruns.Load()
}

// Close releases output resources
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		if m.started {
			if err := m.device.Stop(); err != nil {
				log.Printf("Warning: device stop error: %v", err)
			}
			m.started = false
		}
		m.device.Uninit()
		m.device = nil
	}

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			log.Printf("Warning: malgo context uninit error: %v", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

// formatName returns human-readable format name
func formatName(format malgo.FormatType) string {
	switch format {
	case malgo.FormatU8:
		return "U8"
	case malgo.FormatS16:
		return "S16"
	case malgo.FormatS24:
		return "S24"
	case malgo.FormatS32:
		return "S32"
	default:
		return fmt.Sprintf("Unknown(%d)", format)
	}
}
