// ABOUTME: Buffer player API
// ABOUTME: Plays audio from a Filler through a fixed rotation of buffers
// Package player plays live audio produced by a Filler.
//
// A Player owns BufferCount buffers and a playback engine. Start fills every
// buffer and queues it; after that each buffer the engine finishes is handed
// back to the Filler on a dedicated goroutine and queued again, until Stop.
//
// Example:
//
//	p, err := player.New(player.Config{
//	    SampleRate:     44100,
//	    Channels:       1,
//	    BitsPerChannel: 16,
//	    BufferSize:     player.BufferDuration(20 * time.Millisecond),
//	    Filler:         synth.NewGuarded(s),
//	})
//	err = p.Start()
//	defer p.Close()
package player
