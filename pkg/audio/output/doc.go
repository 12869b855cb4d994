// ABOUTME: Playback engine package for queued PCM buffers
// ABOUTME: Provides Engine interface with oto, malgo and headless clock implementations
// Package output provides hardware playback engines.
//
// An Engine plays submitted buffers strictly in submission order and reports
// each fully played buffer through the Done callback, from its own device
// thread. Three implementations are available:
//   - Oto: default, uses ebitengine/oto
//   - Malgo: miniaudio via malgo (build with -tags malgo)
//   - Clock: no device; consumes audio at the real-time rate
//
// Example:
//
//	engine := output.NewOto()
//	err := engine.Open(output.Config{
//	    Format:      audio.Format{SampleRate: 44100, Channels: 1, BitDepth: 16},
//	    BufferBytes: 2048,
//	    Done:        func(buf *audio.Buffer) { refill <- buf },
//	})
//	err = engine.Enqueue(buf)
//	err = engine.Start()
package output
