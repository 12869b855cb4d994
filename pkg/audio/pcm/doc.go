// ABOUTME: PCM codec package
// ABOUTME: Allocation-free sample conversion for the playback engines
// Package pcm converts little-endian signed integer PCM samples.
//
// Supported bit depths are 8, 16, 24 and 32. The playback engines use it to
// apply per-buffer gain and to feed devices that want float32 samples.
//
// Example:
//
//	codec, err := pcm.New(24)
//	codec.Scale(buf.Bytes(), 0.5)
//	n := codec.Decode(buf.Bytes(), floats)
package pcm
