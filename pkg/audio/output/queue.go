// ABOUTME: In-order buffer queue shared by every playback engine
// ABOUTME: Device reads drain queued buffers and report finished ones without allocating
package output

import (
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/resonate-synth/pkg/audio"
	"github.com/Resonate-Protocol/resonate-synth/pkg/audio/pcm"
)

// maxQueued bounds how many buffers an engine holds at once
const maxQueued = 8

// bufferQueue is a fixed ring of submitted buffers. Device callbacks read
// from the head; the player pushes to the tail.
type bufferQueue struct {
	mu     sync.Mutex
	codec  *pcm.Codec
	items  [maxQueued]*audio.Buffer
	head   int
	count  int
	offset int // read position inside items[head]

	done      func(*audio.Buffer)
	underruns atomic.Uint64
}

func newBufferQueue(format audio.Format, done func(*audio.Buffer)) (*bufferQueue, error) {
	codec, err := pcm.NewForFormat(format)
	if err != nil {
		return nil, err
	}
	return &bufferQueue{
		codec: codec,
		done:  done,
	}, nil
}

// push appends the buffer to the queue and applies its gain. A rejected
// buffer is left unchanged.
func (q *bufferQueue) push(buf *audio.Buffer) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == maxQueued {
		return ErrQueueFull
	}
	q.codec.Scale(buf.Bytes(), buf.Gain)
	q.items[(q.head+q.count)%maxQueued] = buf
	q.count++
	return nil
}

// read fills p with queued audio and zero-fills whatever the queue cannot
// supply. Buffers that were fully consumed are reported to done after the
// lock is released.
func (q *bufferQueue) read(p []byte) {
	var finished [maxQueued]*audio.Buffer
	nFinished := 0
	written := 0

	q.mu.Lock()
	for q.count > 0 {
		buf := q.items[q.head]
		data := buf.Bytes()

		if q.offset < len(data) {
			if written == len(p) {
				break
			}
			n := copy(p[written:], data[q.offset:])
			written += n
			q.offset += n
			if q.offset < len(data) {
				break
			}
		}

		q.items[q.head] = nil
		q.head = (q.head + 1) % maxQueued
		q.count--
		q.offset = 0
		finished[nFinished] = buf
		nFinished++
	}
	q.mu.Unlock()

	if written < len(p) {
		clear(p[written:])
		q.underruns.Add(1)
	}

	if q.done != nil {
		for i := 0; i < nFinished; i++ {
			q.done(finished[i])
		}
	}
}

// flush drops every queued buffer
func (q *bufferQueue) flush() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.items {
		q.items[i] = nil
	}
	q.head = 0
	q.count = 0
	q.offset = 0
}

// queued returns the number of buffers waiting to be played
func (q *bufferQueue) queued() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}
