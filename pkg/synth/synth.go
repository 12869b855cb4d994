// ABOUTME: Polyphonic sine synthesizer with a fixed voice pool
// ABOUTME: Renders mono 16-bit little-endian audio without allocating
package synth

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
)

const (
	// MaxToneEvents is the default number of voices
	MaxToneEvents = 16

	// AttackTime is the length of the envelope's linear attack in seconds
	AttackTime = 0.005

	// ReleaseTime is how long a released voice takes to fade out in seconds
	ReleaseTime = 0.5

	// DefaultGain scales every voice before mixing
	DefaultGain = 0.3

	bytesPerFrame = 2
)

// Format returns the synthesizer's output format at the given sample rate
func Format(sampleRate int) audio.Format {
	return audio.Format{
		SampleRate: sampleRate,
		Channels:   1,
		BitDepth:   16,
	}
}

// Config holds synthesizer configuration
type Config struct {
	SampleRate int     // required
	Polyphony  int     // voice pool size (default: MaxToneEvents)
	Gain       float32 // per-voice gain (default: DefaultGain)
}

// Synth is a polyphonic synthesizer.
//
// Synth does no locking of its own. PlayNote, ReleaseNote and Fill must be
// serialized by the caller, typically by wrapping the Synth in a Guarded.
type Synth struct {
	sampleRate int
	gain       float32
	fadeStep   float32

	pitches  [NoteCount]float32
	sine     []float32
	envelope []float32

	voices []Voice
}

// New creates a synthesizer and builds its lookup tables
func New(config Config) (*Synth, error) {
	if config.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", config.SampleRate)
	}
	if config.Polyphony < 0 {
		return nil, fmt.Errorf("invalid polyphony: %d", config.Polyphony)
	}
	if config.Polyphony == 0 {
		config.Polyphony = MaxToneEvents
	}
	if config.Gain == 0 {
		config.Gain = DefaultGain
	}
	if config.Gain < 0 {
		return nil, errors.New("gain must not be negative")
	}

	return &Synth{
		sampleRate: config.SampleRate,
		gain:       config.Gain,
		fadeStep:   float32(1 / (ReleaseTime * float64(config.SampleRate))),
		pitches:    buildPitches(),
		sine:       buildSine(config.SampleRate),
		envelope:   buildEnvelope(config.SampleRate),
		voices:     make([]Voice, config.Polyphony),
	}, nil
}

// SampleRate returns the output sample rate
func (s *Synth) SampleRate() int {
	return s.sampleRate
}

// Polyphony returns the size of the voice pool
func (s *Synth) Polyphony() int {
	return len(s.voices)
}

// PlayNote starts a note in the first free voice. When every voice is busy,
// or the note is outside 0-127, the note is dropped.
func (s *Synth) PlayNote(note int) {
	if note < 0 || note >= NoteCount {
		return
	}
	for i := range s.voices {
		if s.voices[i].State == Inactive {
			s.voices[i].trigger(note)
			return
		}
	}
}

// ReleaseNote starts the fade-out of every pressed voice playing note
func (s *Synth) ReleaseNote(note int) {
	for i := range s.voices {
		v := &s.voices[i]
		if v.State == Pressed && v.Note == note {
			v.State = Released
		}
	}
}

// Voices returns a copy of the voice pool
func (s *Synth) Voices() []Voice {
	voices := make([]Voice, len(s.voices))
	copy(voices, s.voices)
	return voices
}

// ActiveVoices returns how many voices are pressed or released
func (s *Synth) ActiveVoices() int {
	n := 0
	for i := range s.voices {
		if s.voices[i].Active() {
			n++
		}
	}
	return n
}

// Fill renders frames of mono 16-bit audio into buf and returns the number of
// frames written. frames is limited to what fits in buf.
func (s *Synth) Fill(buf []byte, frames int) int {
	frames = min(frames, len(buf)/bytesPerFrame)
	if frames <= 0 {
		return 0
	}

	for f := 0; f < frames; f++ {
		var mix float32
		for i := range s.voices {
			v := &s.voices[i]
			if v.State == Inactive {
				continue
			}
			mix += s.render(v)
		}

		binary.LittleEndian.PutUint16(buf[f*bytesPerFrame:], uint16(quantize(clip(mix))))
	}

	return frames
}

// render advances the voice by one frame and returns its sample. The
// oscillator is read after the phase step, so a new voice is audible on its
// first frame. Voices that reach the end of the envelope or of their
// fade-out become Inactive and return 0.
func (s *Synth) render(v *Voice) float32 {
	envLen := len(s.envelope)
	sineLen := len(s.sine)

	a := int(v.EnvStep)
	b := v.EnvStep - float32(a)
	c := min(a+1, envLen-1)
	env := (1-b)*s.envelope[a] + b*s.envelope[c]

	v.EnvStep += v.EnvDelta
	if int(v.EnvStep) >= envLen {
		v.State = Inactive
		return 0
	}

	v.Phase += s.pitches[v.Note]
	for v.Phase >= float32(sineLen) {
		v.Phase -= float32(sineLen)
	}

	a = int(v.Phase)
	b = v.Phase - float32(a)
	c = a + 1
	if c >= sineLen {
		c -= sineLen
	}
	sine := (1-b)*s.sine[a] + b*s.sine[c]

	if v.State == Released {
		v.FadeOut -= s.fadeStep
		if v.FadeOut <= 0 {
			v.State = Inactive
			return 0
		}
	}

	return clip(sine * env * s.gain * v.FadeOut)
}

// FillBuffer fills buf to capacity. Formats other than mono 16-bit get
// silence.
func (s *Synth) FillBuffer(buf *audio.Buffer, format audio.Format) {
	if format.Channels != 1 || format.BitDepth != 16 {
		buf.Silence()
		return
	}
	frames := s.Fill(buf.Data, len(buf.Data)/bytesPerFrame)
	buf.Size = frames * bytesPerFrame
}

// quantize converts a sample in [-1, 1] to 16 bits, rounding away from zero.
// Any non-zero sample maps to at least one step.
func quantize(v float32) int16 {
	q := v * math.MaxInt16
	switch {
	case q > 0:
		return int16(max(q+0.5, 1))
	case q < 0:
		return int16(min(q-0.5, -1))
	}
	return 0
}

func clip(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
