// ABOUTME: Tests for the PCM codec
// ABOUTME: Tests decode/encode per bit depth and gain scaling with clipping
package pcm

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestNewRejectsUnsupportedDepth(t *testing.T) {
	for _, depth := range []int{0, 4, 12, 20, 64} {
		if _, err := New(depth); err == nil {
			t.Errorf("expected error for bit depth %d", depth)
		}
	}
}

func TestEncodeDecode(t *testing.T) {
	input := []float32{0, 0.5, -0.5, 0.25, -1}

	for _, depth := range []int{8, 16, 24, 32} {
		codec, err := New(depth)
		if err != nil {
			t.Fatalf("New(%d): %v", depth, err)
		}

		data := make([]byte, len(input)*codec.BytesPerSample())
		if n := codec.Encode(input, data); n != len(input) {
			t.Fatalf("depth %d: encoded %d samples, expected %d", depth, n, len(input))
		}

		output := make([]float32, len(input))
		if n := codec.Decode(data, output); n != len(input) {
			t.Fatalf("depth %d: decoded %d samples, expected %d", depth, n, len(input))
		}

		// One quantization step of the narrowest format
		tolerance := 2.0 / float64(int64(1)<<(depth-1))
		for i := range input {
			if math.Abs(float64(output[i]-input[i])) > tolerance {
				t.Errorf("depth %d sample %d: expected %f, got %f", depth, i, input[i], output[i])
			}
		}
	}
}

func TestEncodeClips(t *testing.T) {
	codec, _ := New(16)
	data := make([]byte, 4)

	codec.Encode([]float32{2.5, -3}, data)

	if got := int16(binary.LittleEndian.Uint16(data)); got != 32767 {
		t.Errorf("expected 32767, got %d", got)
	}
	if got := int16(binary.LittleEndian.Uint16(data[2:])); got != -32767 {
		t.Errorf("expected -32767, got %d", got)
	}
}

func TestScale16(t *testing.T) {
	codec, _ := New(16)
	samples := []int16{1000, -1000, 500, -500}
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}

	codec.Scale(data, 0.5)

	expected := []int16{500, -500, 250, -250}
	for i, want := range expected {
		if got := int16(binary.LittleEndian.Uint16(data[i*2:])); got != want {
			t.Errorf("sample %d: expected %d, got %d", i, want, got)
		}
	}
}

func TestScaleClips(t *testing.T) {
	tests := []struct {
		depth int
		max   int64
	}{
		{8, 127},
		{16, 32767},
		{24, 8388607},
		{32, 2147483647},
	}

	for _, tt := range tests {
		codec, _ := New(tt.depth)
		data := make([]byte, codec.BytesPerSample())
		codec.Encode([]float32{0.9}, data)

		codec.Scale(data, 4)

		if got := codec.sample(data); got != tt.max {
			t.Errorf("depth %d: expected clip to %d, got %d", tt.depth, tt.max, got)
		}
	}
}

func TestScaleUnityIsNoop(t *testing.T) {
	codec, _ := New(24)
	data := []byte{0x56, 0x34, 0x12}

	codec.Scale(data, 1.0)

	if data[0] != 0x56 || data[1] != 0x34 || data[2] != 0x12 {
		t.Errorf("unity gain modified data: %v", data)
	}
}

func TestScaleZeroIsSilence(t *testing.T) {
	codec, _ := New(8)
	data := []byte{0x7F, 0x80, 0x10}

	codec.Scale(data, 0)

	for i, b := range data {
		if b != 0 {
			t.Errorf("byte %d: expected 0, got %#x", i, b)
		}
	}
}
