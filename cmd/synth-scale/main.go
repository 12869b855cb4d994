// ABOUTME: Entry point for the headless scale player
// ABOUTME: Plays a major scale through the synthesizer and buffer player, then exits
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/resonate-synth/internal/app"
	"github.com/Resonate-Protocol/resonate-synth/internal/config"
	"github.com/Resonate-Protocol/resonate-synth/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-synth/pkg/player"
	"github.com/Resonate-Protocol/resonate-synth/pkg/synth"
)

var (
	engineName = flag.String("engine", config.DefaultEngine, "Playback engine: oto, malgo or clock")
	sampleRate = flag.Int("sample-rate", config.DefaultSampleRate, "Sample rate in Hz")
	packets    = flag.Int("packets", config.DefaultPacketsPerBuffer, "Packets (frames) per buffer")
	baseNote   = flag.Int("base", config.DefaultBaseNote, "MIDI note the scale starts on")
	holdMs     = flag.Int("hold-ms", 250, "How long each note is held in milliseconds")
	repeat     = flag.Int("repeat", 1, "Number of times to play the scale up and down")
	logFile    = flag.String("log-file", "synth-scale.log", "Log file path")
)

func main() {
	flag.Parse()

	// Log to both file and stdout
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()
	log.SetOutput(io.MultiWriter(os.Stdout, f))

	if err := run(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	s, err := synth.New(synth.Config{SampleRate: *sampleRate})
	if err != nil {
		return err
	}
	g := synth.NewGuarded(s)

	engine, err := output.NewEngine(*engineName)
	if err != nil {
		return err
	}

	format := synth.Format(*sampleRate)
	p, err := player.New(player.Config{
		SampleRate:     format.SampleRate,
		Channels:       format.Channels,
		BitsPerChannel: format.BitDepth,
		BufferSize:     player.BufferPackets(*packets),
		Engine:         engine,
		Filler:         g,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			log.Printf("Error closing player: %v", err)
		}
	}()

	hold := time.Duration(*holdMs) * time.Millisecond
	up := app.Sequence(*baseNote, app.MajorScale, hold, hold/4)
	down := slices.Clone(up)
	slices.Reverse(down)

	var steps []app.Step
	for i := 0; i < *repeat; i++ {
		steps = append(steps, up...)
		steps = append(steps, down[1:]...)
	}
	// Let the last note ring out
	steps = append(steps, app.Step{Hold: time.Duration(synth.ReleaseTime * float64(time.Second))})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := p.Start(); err != nil {
		return err
	}

	log.Printf("Playing %d-note scale from note %d at %s", len(app.MajorScale), *baseNote, p.Format())
	if err := app.Play(ctx, g, steps); err != nil && ctx.Err() == nil {
		return err
	}

	stats := p.Stats()
	log.Printf("Done: %d buffers filled, %d underruns, %d submit errors",
		stats.Filled, stats.Underruns, stats.SubmitErrors)
	return nil
}
