package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"scribe/internal/audio"
	"scribe/internal/metrics"
	"scribe/internal/vad"
	"scribe/pkg/stt"
)

const chunkTimeout = 60 * time.Second

// Worker is the sole consumer of the chunk queue. Chunks are processed
// serially in arrival order; parallel transcription would reorder fragments
// within an utterance.
type Worker struct {
	queue  *audio.Queue
	engine stt.Engine
	det    *vad.Detector // nil disables the VAD gate
	buf    *Buffer
	log    *slog.Logger
}

func NewWorker(queue *audio.Queue, engine stt.Engine, det *vad.Detector, buf *Buffer, log *slog.Logger) *Worker {
	return &Worker{
		queue:  queue,
		engine: engine,
		det:    det,
		buf:    buf,
		log:    log,
	}
}

// Run consumes the queue until ctx is done. Cancellation stops the
// dequeue only; a chunk already being transcribed runs to completion so
// its text is not lost to shutdown.
func (w *Worker) Run(ctx context.Context) {
	work := context.WithoutCancel(ctx)
	for {
		chunk, ok := w.queue.Next(ctx)
		if !ok {
			return
		}
		metrics.QueueDepth.Set(float64(w.queue.Len()))
		w.process(work, chunk)
	}
}

// Drain processes whatever is still queued after capture has stopped,
// bounded by timeout so shutdown cannot hang on a slow engine.
func (w *Worker) Drain(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		if ctx.Err() != nil {
			if n := w.queue.Len(); n > 0 {
				w.log.Warn("drain deadline reached with chunks remaining", "remaining", n)
			}
			return
		}
		chunk, ok := w.queue.TryNext()
		if !ok {
			return
		}
		w.process(ctx, chunk)
	}
}

// process transcribes one chunk. Failures are logged and the chunk is
// dropped; a chunk is transient and retrying it would only add latency.
func (w *Worker) process(ctx context.Context, chunk audio.Chunk) {
	role := string(chunk.Role)

	if w.det != nil {
		if res := w.det.Check(chunk.Samples); !res.HasVoice {
			metrics.ChunksSilent.WithLabelValues(role).Inc()
			return
		}
	}

	tctx, cancel := context.WithTimeout(ctx, chunkTimeout)
	defer cancel()

	res, err := w.engine.Transcribe(tctx, chunk.Samples, chunk.SampleRate)
	switch {
	case errors.Is(err, stt.ErrNoSpeech):
		metrics.Transcriptions.WithLabelValues(w.engine.Name(), "no_speech").Inc()
		return
	case err != nil:
		metrics.Transcriptions.WithLabelValues(w.engine.Name(), "error").Inc()
		w.log.Error("transcription failed, chunk dropped",
			"role", chunk.Role,
			"engine", w.engine.Name(),
			"err", err,
		)
		return
	}

	metrics.Transcriptions.WithLabelValues(w.engine.Name(), "ok").Inc()
	w.log.Debug("chunk transcribed", "role", chunk.Role, "text", res.Text)

	w.buf.Add(Fragment{
		Role: chunk.Role,
		Text: res.Text,
		At:   chunk.Captured,
	})
}
