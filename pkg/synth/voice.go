// ABOUTME: Tone voice state for the synthesizer's voice pool
// ABOUTME: One oscillator plus envelope instance and its lifecycle state
package synth

// State is the lifecycle state of a voice
type State int

const (
	// Inactive voices are free for the next note
	Inactive State = iota
	// Pressed voices are sounding and follow the envelope
	Pressed
	// Released voices are fading out
	Released
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Pressed:
		return "pressed"
	case Released:
		return "released"
	default:
		return "unknown"
	}
}

// Voice is one slot in the voice pool
type Voice struct {
	State State
	Note  int

	// Phase is the read position in the sine table
	Phase float32

	// EnvStep is the read position in the envelope table, advanced by
	// EnvDelta every frame
	EnvStep  float32
	EnvDelta float32

	// FadeOut scales the voice while Released and counts down to zero
	FadeOut float32
}

// Active reports whether the voice contributes to output
func (v Voice) Active() bool {
	return v.State != Inactive
}

// trigger starts a note in this slot
func (v *Voice) trigger(note int) {
	v.State = Pressed
	v.Note = note
	v.Phase = 0
	v.EnvStep = 0
	v.EnvDelta = float32(max(note, 1)) / 64
	v.FadeOut = 1
}
