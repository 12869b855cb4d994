// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Buffer types and 24-bit sample packing
// Package audio provides the fundamental types shared by the player, the
// playback engines and the synthesizer.
//
// This package defines:
//   - Format: sample rate, channel count and bit depth of a little-endian
//     signed PCM stream (one packet = one frame)
//   - Buffer: a fixed-capacity byte region filled by a fill routine
//
// Example:
//
//	format := audio.Format{
//	    SampleRate: 44100,
//	    Channels:   1,
//	    BitDepth:   16,
//	}
//	if err := format.Validate(); err != nil {
//	    return err
//	}
//	buf := audio.NewBuffer(1024 * format.BytesPerFrame())
//	buf.Silence()
package audio
