// ABOUTME: Tests for the polyphonic synthesizer
// ABOUTME: Tests voice allocation, release, fade-out and rendered output
package synth

import (
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
)

const testRate = 8000

func newTestSynth(t *testing.T) *Synth {
	t.Helper()
	s, err := New(Config{SampleRate: testRate})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func sampleAt(p []byte, i int) int16 {
	return int16(binary.LittleEndian.Uint16(p[i*2:]))
}

func isSilent(p []byte) bool {
	for _, b := range p {
		if b != 0 {
			return false
		}
	}
	return true
}

func TestNewDefaults(t *testing.T) {
	s := newTestSynth(t)

	if s.Polyphony() != MaxToneEvents {
		t.Errorf("expected polyphony %d, got %d", MaxToneEvents, s.Polyphony())
	}
	if s.gain != DefaultGain {
		t.Errorf("expected gain %v, got %v", DefaultGain, s.gain)
	}
	if s.SampleRate() != testRate {
		t.Errorf("expected sample rate %d, got %d", testRate, s.SampleRate())
	}
	if s.ActiveVoices() != 0 {
		t.Errorf("expected no active voices, got %d", s.ActiveVoices())
	}
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"zero sample rate", Config{}},
		{"negative sample rate", Config{SampleRate: -1}},
		{"negative polyphony", Config{SampleRate: testRate, Polyphony: -2}},
		{"negative gain", Config{SampleRate: testRate, Gain: -0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.config); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFormat(t *testing.T) {
	f := Format(16000)
	if f.SampleRate != 16000 || f.Channels != 1 || f.BitDepth != 16 {
		t.Errorf("unexpected format %v", f)
	}
	if err := f.Validate(); err != nil {
		t.Errorf("format should be valid: %v", err)
	}
}

func TestPlayNoteInitializesVoice(t *testing.T) {
	s := newTestSynth(t)
	s.PlayNote(64)

	v := s.Voices()[0]
	if v.State != Pressed {
		t.Fatalf("expected Pressed, got %v", v.State)
	}
	if v.Note != 64 || v.Phase != 0 || v.EnvStep != 0 || v.FadeOut != 1 {
		t.Errorf("unexpected voice %+v", v)
	}
	if v.EnvDelta != 1 {
		t.Errorf("expected envelope delta 1 for note 64, got %v", v.EnvDelta)
	}
}

func TestPolyphonyLimit(t *testing.T) {
	s := newTestSynth(t)

	for n := 0; n < MaxToneEvents; n++ {
		s.PlayNote(40 + n)
	}
	before := s.Voices()

	s.PlayNote(100)

	if s.ActiveVoices() != MaxToneEvents {
		t.Fatalf("expected %d active voices, got %d", MaxToneEvents, s.ActiveVoices())
	}
	after := s.Voices()
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("voice %d changed by dropped note: %+v -> %+v", i, before[i], after[i])
		}
	}
}

func TestConfiguredPolyphony(t *testing.T) {
	s, err := New(Config{SampleRate: testRate, Polyphony: 4})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for n := 0; n < 6; n++ {
		s.PlayNote(60 + n)
	}
	if s.ActiveVoices() != 4 {
		t.Errorf("expected 4 active voices, got %d", s.ActiveVoices())
	}
}

func TestPlayNoteOutOfRangeDropped(t *testing.T) {
	s := newTestSynth(t)
	s.PlayNote(-1)
	s.PlayNote(128)
	if s.ActiveVoices() != 0 {
		t.Errorf("expected out-of-range notes dropped, got %d active", s.ActiveVoices())
	}
}

func TestRetriggerUsesSeparateVoices(t *testing.T) {
	s := newTestSynth(t)
	s.PlayNote(60)
	s.PlayNote(60)

	if s.ActiveVoices() != 2 {
		t.Fatalf("expected 2 voices for a retriggered note, got %d", s.ActiveVoices())
	}

	s.ReleaseNote(60)
	for i, v := range s.Voices()[:2] {
		if v.State != Released {
			t.Errorf("voice %d: expected Released, got %v", i, v.State)
		}
	}
}

func TestReleaseNoteOnlyAffectsMatchingPressed(t *testing.T) {
	s := newTestSynth(t)
	s.PlayNote(60)
	s.PlayNote(62)
	s.PlayNote(60)
	s.PlayNote(64)
	s.ReleaseNote(64)

	s.ReleaseNote(60)

	want := []State{Released, Pressed, Released, Released, Inactive}
	voices := s.Voices()
	for i, state := range want {
		if voices[i].State != state {
			t.Errorf("voice %d (note %d): expected %v, got %v", i, voices[i].Note, state, voices[i].State)
		}
	}

	// A released voice's fade-out is not restarted by another release
	s.Fill(make([]byte, 20), 10)
	fade := s.Voices()[3].FadeOut
	s.ReleaseNote(64)
	if s.Voices()[3].FadeOut != fade || s.Voices()[3].State != Released {
		t.Errorf("releasing a released voice changed it: %+v", s.Voices()[3])
	}
}

func TestReleaseUnknownNote(t *testing.T) {
	s := newTestSynth(t)
	s.PlayNote(60)
	s.ReleaseNote(61)
	if s.Voices()[0].State != Pressed {
		t.Errorf("expected voice untouched, got %v", s.Voices()[0].State)
	}
}

func TestFillAfterPlayNoteIsAudible(t *testing.T) {
	for _, note := range []int{36, 60, 69, 84, 127} {
		s := newTestSynth(t)
		s.PlayNote(note)

		buf := make([]byte, 128)
		if n := s.Fill(buf, 64); n != 64 {
			t.Fatalf("note %d: expected 64 frames, got %d", note, n)
		}
		if isSilent(buf) {
			t.Errorf("note %d: expected audible output", note)
		}
	}
}

func TestFillAudibleFromFirstFrame(t *testing.T) {
	for _, rate := range []int{8000, 16000, 44100, 48000} {
		s, err := New(Config{SampleRate: rate})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		for _, frames := range []int{1, 2, 4} {
			t.Run(fmt.Sprintf("%dHz/%d frames", rate, frames), func(t *testing.T) {
				buf := make([]byte, frames*2)
				for note := 0; note < NoteCount; note++ {
					clear(s.voices)
					clear(buf)
					s.PlayNote(note)

					if n := s.Fill(buf, frames); n != frames {
						t.Fatalf("note %d: expected %d frames, got %d", note, frames, n)
					}
					if isSilent(buf) {
						t.Errorf("note %d: silent right after PlayNote", note)
					}
				}
			})
		}
	}
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{1, math.MaxInt16},
		{-1, -math.MaxInt16},
		{1e-7, 1},
		{-1e-7, -1},
		{0.4 / math.MaxInt16, 1},
		{1.4 / math.MaxInt16, 1},
		{1.6 / math.MaxInt16, 2},
		{-2.6 / math.MaxInt16, -3},
	}
	for _, tt := range tests {
		if got := quantize(tt.in); got != tt.want {
			t.Errorf("quantize(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFillSilentWhenIdle(t *testing.T) {
	s := newTestSynth(t)

	buf := make([]byte, 64)
	for i := range buf {
		buf[i] = 0xAA
	}
	if n := s.Fill(buf, 32); n != 32 {
		t.Fatalf("expected 32 frames, got %d", n)
	}
	if !isSilent(buf) {
		t.Error("expected exact silence from an idle synth")
	}
}

func TestFillClampsFrames(t *testing.T) {
	s := newTestSynth(t)

	tests := []struct {
		name   string
		bytes  int
		frames int
		want   int
	}{
		{"exact", 20, 10, 10},
		{"fewer requested", 20, 4, 4},
		{"buffer too small", 20, 50, 10},
		{"odd length", 21, 50, 10},
		{"zero", 20, 0, 0},
		{"negative", 20, -3, 0},
		{"empty buffer", 0, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Fill(make([]byte, tt.bytes), tt.frames); got != tt.want {
				t.Errorf("expected %d frames, got %d", tt.want, got)
			}
		})
	}
}

func TestReleasedVoiceBecomesInactive(t *testing.T) {
	s := newTestSynth(t)
	s.PlayNote(40)
	s.Fill(make([]byte, 200), 100)
	s.ReleaseNote(40)

	// Fade-out lasts ReleaseTime seconds
	fadeFrames := int(ReleaseTime * testRate)
	buf := make([]byte, 2*256)
	for played := 0; played <= fadeFrames+256; played += 256 {
		s.Fill(buf, 256)
	}

	if s.ActiveVoices() != 0 {
		t.Fatalf("expected released voice to finish, %d still active", s.ActiveVoices())
	}

	s.Fill(buf, 256)
	if !isSilent(buf) {
		t.Error("finished voice still contributes to output")
	}
}

func TestPressedVoiceEndsWithEnvelope(t *testing.T) {
	s := newTestSynth(t)
	s.PlayNote(64) // envelope delta 1: one table entry per frame

	envFrames := 2 * testRate
	buf := make([]byte, 2*1000)
	for played := 0; played < envFrames-1000; played += 1000 {
		s.Fill(buf, 1000)
	}
	if s.Voices()[0].State != Pressed {
		t.Fatalf("voice ended before the envelope: %v", s.Voices()[0].State)
	}

	s.Fill(buf, 1000)
	s.Fill(buf, 1000)
	if s.Voices()[0].State != Inactive {
		t.Errorf("expected Inactive after the envelope ends, got %v", s.Voices()[0].State)
	}
}

func TestFillWritesPitch(t *testing.T) {
	s := newTestSynth(t)
	s.PlayNote(69) // 440Hz

	frames := testRate / 4
	buf := make([]byte, frames*2)
	s.Fill(buf, frames)

	// Count rising zero crossings over 250ms
	crossings := 0
	for i := 1; i < frames; i++ {
		if sampleAt(buf, i-1) < 0 && sampleAt(buf, i) >= 0 {
			crossings++
		}
	}
	if crossings < 105 || crossings > 112 {
		t.Errorf("expected about 110 cycles of 440Hz, counted %d", crossings)
	}
}

func TestMixIsClipped(t *testing.T) {
	s, err := New(Config{SampleRate: testRate, Gain: 1})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for i := 0; i < MaxToneEvents; i++ {
		s.PlayNote(69)
	}

	frames := testRate / 10
	buf := make([]byte, frames*2)
	s.Fill(buf, frames)

	peak := int16(0)
	for i := 0; i < frames; i++ {
		v := sampleAt(buf, i)
		if v > peak {
			peak = v
		}
		if v < -math.MaxInt16 {
			t.Fatalf("sample %d below full scale: %d", i, v)
		}
	}
	if peak != math.MaxInt16 {
		t.Errorf("expected 16 voices at full gain to clip at %d, peak %d", math.MaxInt16, peak)
	}
}

func TestFillBuffer(t *testing.T) {
	tests := []struct {
		name      string
		format    audio.Format
		wantSound bool
	}{
		{"mono 16-bit", Format(testRate), true},
		{"stereo", audio.Format{SampleRate: testRate, Channels: 2, BitDepth: 16}, false},
		{"24-bit", audio.Format{SampleRate: testRate, Channels: 1, BitDepth: 24}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSynth(t)
			s.PlayNote(69)

			buf := audio.NewBuffer(300)
			s.FillBuffer(buf, tt.format)

			if buf.Size != buf.Capacity() {
				t.Errorf("expected size %d, got %d", buf.Capacity(), buf.Size)
			}
			if isSilent(buf.Bytes()) == tt.wantSound {
				t.Errorf("expected sound=%v", tt.wantSound)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Inactive, "inactive"},
		{Pressed, "pressed"},
		{Released, "released"},
		{State(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestFillDoesNotAllocate(t *testing.T) {
	s := newTestSynth(t)
	for n := 0; n < 8; n++ {
		s.PlayNote(48 + n*3)
	}
	buf := audio.NewBuffer(512)
	format := Format(testRate)

	allocs := testing.AllocsPerRun(100, func() {
		s.FillBuffer(buf, format)
	})
	if allocs != 0 {
		t.Errorf("expected no allocations per fill, got %v", allocs)
	}
}
