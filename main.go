// ABOUTME: Entry point for the synth player
// ABOUTME: Parses CLI flags, loads configuration and runs the keyboard piano or a headless arpeggio
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Resonate-Protocol/resonate-synth/internal/app"
	"github.com/Resonate-Protocol/resonate-synth/internal/config"
	"github.com/Resonate-Protocol/resonate-synth/internal/version"
	"github.com/Resonate-Protocol/resonate-synth/pkg/synth"
)

var (
	configFile = flag.String("config", "", "YAML config file")
	engine     = flag.String("engine", config.DefaultEngine, "Playback engine: oto, malgo or clock")
	sampleRate = flag.Int("sample-rate", config.DefaultSampleRate, "Sample rate in Hz")
	bufferMs   = flag.Int("buffer-ms", 0, "Buffer duration in milliseconds (overrides -packets)")
	packets    = flag.Int("packets", config.DefaultPacketsPerBuffer, "Packets (frames) per buffer")
	gain       = flag.Float64("gain", config.DefaultGain, "Player gain (0.0-1.0)")
	polyphony  = flag.Int("polyphony", synth.MaxToneEvents, "Number of voices")
	logFile    = flag.String("log-file", "synth-player.log", "Log file path")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI and play an arpeggio until interrupted")
)

func main() {
	flag.Parse()

	useTUI := !*noTUI

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		// Streaming logs mode: log to both stdout and file
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	settings, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(settings)
	if err := settings.Validate(); err != nil {
		log.Fatalf("Invalid settings: %v", err)
	}

	if !useTUI {
		log.Printf("Starting %s", version.String())
		log.Printf("TUI disabled - playing an arpeggio, press Ctrl+C to stop")
	}

	hold := settings.Hold()
	player, err := app.New(app.Config{
		Settings: settings,
		UseTUI:   useTUI,
		Steps:    app.Sequence(settings.BaseNote, app.MajorTriad, hold, hold/2),
	})
	if err != nil {
		log.Fatalf("Failed to create player: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := player.Run(ctx); err != nil {
		log.Printf("Player error: %v", err)
	}

	if err := player.Close(); err != nil {
		log.Printf("Error closing player: %v", err)
	}

	log.Printf("Player stopped")
}

// applyFlags overrides config file settings with flags given on the command line
func applyFlags(settings *config.Config) {
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "engine":
			settings.Engine = *engine
		case "sample-rate":
			settings.SampleRate = *sampleRate
		case "buffer-ms":
			settings.BufferMS = *bufferMs
		case "packets":
			settings.PacketsPerBuffer = *packets
			settings.BufferMS = 0
		case "gain":
			settings.Gain = float32(*gain)
		case "polyphony":
			settings.Polyphony = *polyphony
		}
	})

	// -buffer-ms wins when both sizes are given
	if *bufferMs > 0 {
		settings.BufferMS = *bufferMs
	}
}

func init() {
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		_, _ = io.WriteString(out, version.String()+"\n\nUsage: synth-player [flags]\n\n")
		flag.PrintDefaults()
		_, _ = io.WriteString(out, "\nKeys a w s e d f t g y h u j k play one octave; notes are released after "+
			(config.DefaultHoldMS * time.Millisecond).String()+" by default.\n")
	}
}
