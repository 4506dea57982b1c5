package stt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrNoSpeech is returned when an engine recognized nothing in the audio.
// The caller drops the chunk without logging an error.
var ErrNoSpeech = errors.New("no speech detected")

type Segment struct {
	Text     string
	StartSec float64
	EndSec   float64
}

type Result struct {
	Text     string
	Segments []Segment
	Language string
}

// Engine is the capability both transcription backends implement. pcm is
// mono float32 in [-1, 1] at the given sample rate; engines resample as
// they need.
type Engine interface {
	Name() string
	Transcribe(ctx context.Context, pcm []float32, sampleRate int) (Result, error)
	Close() error
}

// Factory constructs an engine, probing its availability in the process.
type Factory struct {
	Name string
	New  func() (Engine, error)
}

// Select probes the factories in order and returns the first engine that
// initializes. The choice is made once; a failed factory is never
// re-attempted per chunk.
func Select(log *slog.Logger, factories ...Factory) (Engine, error) {
	var errs []error
	for _, f := range factories {
		eng, err := f.New()
		if err != nil {
			log.Warn("engine unavailable", "engine", f.Name, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", f.Name, err))
			continue
		}
		log.Info("transcription engine selected", "engine", eng.Name())
		return eng, nil
	}
	return nil, fmt.Errorf("no transcription engine available: %w", errors.Join(errs...))
}
