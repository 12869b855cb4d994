//go:build !malgo

// ABOUTME: Malgo stub when the miniaudio backend is not compiled in
// ABOUTME: Provides compile-time placeholder for builds without -tags malgo
package output

import (
	"errors"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
)

var errMalgoDisabled = errors.New("malgo support not enabled (build with -tags malgo)")

// Malgo output implementation (stub)
type Malgo struct{}

// NewMalgo creates a new Malgo output
func NewMalgo() *Malgo {
	return &Malgo{}
}

// Open always fails without the malgo build tag
func (m *Malgo) Open(config Config) error {
	return errMalgoDisabled
}

// Enqueue always fails without the malgo build tag
func (m *Malgo) Enqueue(buf *audio.Buffer) error {
	return errMalgoDisabled
}

// Start always fails without the malgo build tag
func (m *Malgo) Start() error {
	return errMalgoDisabled
}

// Pause always fails without the malgo build tag
func (m *Malgo) Pause() error {
	return errMalgoDisabled
}

// Flush does nothing
func (m *Malgo) Flush() {}

// Underruns is always zero
func (m *Malgo) Underruns() uint64 {
	return 0
}

// Close does nothing
func (m *Malgo) Close() error {
	return nil
}
