// ABOUTME: Lookup tables for the synthesizer
// ABOUTME: Builds the equal-temperament pitch table, one-cycle sine table and attack/decay envelope
package synth

import "math"

// NoteCount is the number of playable notes (MIDI 0-127)
const NoteCount = 128

// buildPitches returns the frequency of every MIDI note, A4 (69) = 440Hz
func buildPitches() [NoteCount]float32 {
	var pitches [NoteCount]float32
	for n := range pitches {
		pitches[n] = float32(440.0 * math.Pow(2, float64(n-69)/12.0))
	}
	return pitches
}

// buildSine returns one sine cycle spread over sampleRate entries, so that
// stepping the phase by a frequency in Hz per frame plays that frequency
func buildSine(sampleRate int) []float32 {
	sine := make([]float32, sampleRate)
	for i := range sine {
		sine[i] = float32(math.Sin(2 * math.Pi * float64(i) / float64(sampleRate)))
	}
	return sine
}

// buildEnvelope returns two seconds of amplitude: a linear attack over
// AttackTime followed by an exponential decay. The attack reaches 1 on its
// last entry and never starts at 0.
func buildEnvelope(sampleRate int) []float32 {
	env := make([]float32, 2*sampleRate)

	attack := max(int(AttackTime*float64(sampleRate)), 1)
	for i := 0; i < attack && i < len(env); i++ {
		env[i] = float32(i+1) / float32(attack)
	}
	for i := attack; i < len(env); i++ {
		x := float64(i-attack) / float64(sampleRate)
		env[i] = float32(math.Exp(-3 * x))
	}
	return env
}
