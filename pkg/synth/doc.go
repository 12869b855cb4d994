// ABOUTME: Polyphonic tone synthesizer
// ABOUTME: Sine voices with an attack/decay envelope and release fade-out
// Package synth provides a small polyphonic synthesizer.
//
// Each note is a sine oscillator shaped by a fixed envelope: a 5ms linear
// attack followed by an exponential decay over two seconds. Releasing a note
// fades it out over ReleaseTime. Voices come from a fixed pool; notes played
// while every voice is busy are dropped.
//
// Output is always mono, signed 16-bit little-endian. Synth itself is not
// safe for concurrent use; Guarded adds the lock needed when note events and
// fills come from different goroutines:
//
//	s, err := synth.New(synth.Config{SampleRate: 44100})
//	g := synth.NewGuarded(s)
//	p, err := player.New(player.Config{
//	    SampleRate:     44100,
//	    Channels:       1,
//	    BitsPerChannel: 16,
//	    BufferSize:     player.BufferPackets(1024),
//	    Filler:         g,
//	})
//	err = p.Start()
//	g.PlayNote(60)
package synth
