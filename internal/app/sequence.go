// ABOUTME: Timed note sequences for headless playback
// ABOUTME: Plays scales and arpeggios by pressing and releasing notes on a schedule
package app

import (
	"context"
	"time"
)

// NotePlayer receives note events
type NotePlayer interface {
	PlayNote(note int)
	ReleaseNote(note int)
}

// Step is one entry in a sequence: its notes are pressed together, held for
// Hold, released, and followed by Gap of silence
type Step struct {
	Notes []int
	Hold  time.Duration
	Gap   time.Duration
}

// Interval sets used to build sequences
var (
	MajorScale = []int{0, 2, 4, 5, 7, 9, 11, 12}
	MajorTriad = []int{0, 4, 7, 12}
)

// Sequence returns one single-note step per interval above base
func Sequence(base int, intervals []int, hold, gap time.Duration) []Step {
	steps := make([]Step, 0, len(intervals))
	for _, iv := range intervals {
		steps = append(steps, Step{
			Notes: []int{base + iv},
			Hold:  hold,
			Gap:   gap,
		})
	}
	return steps
}

// Chord returns a single step pressing every interval above base at once
func Chord(base int, intervals []int, hold, gap time.Duration) Step {
	notes := make([]int, len(intervals))
	for i, iv := range intervals {
		notes[i] = base + iv
	}
	return Step{Notes: notes, Hold: hold, Gap: gap}
}

// Play runs steps in order. If ctx is cancelled the notes currently held
// are released before returning ctx.Err().
func Play(ctx context.Context, target NotePlayer, steps []Step) error {
	for _, step := range steps {
		for _, n := range step.Notes {
			target.PlayNote(n)
		}

		err := sleep(ctx, step.Hold)

		for _, n := range step.Notes {
			target.ReleaseNote(n)
		}
		if err != nil {
			return err
		}

		if err := sleep(ctx, step.Gap); err != nil {
			return err
		}
	}
	return nil
}

// Loop repeats steps until ctx is cancelled
func Loop(ctx context.Context, target NotePlayer, steps []Step) error {
	if len(steps) == 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	for {
		if err := Play(ctx, target, steps); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
