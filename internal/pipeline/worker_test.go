package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"scribe/internal/audio"
	"scribe/internal/vad"
	"scribe/pkg/stt"
)

// fakeEngine returns canned results per call, in order.
type fakeEngine struct {
	mu      sync.Mutex
	results []fakeResult
	calls   int
}

type fakeResult struct {
	text string
	err  error
}

func (f *fakeEngine) Name() string { return "fake" }
func (f *fakeEngine) Close() error { return nil }

func (f *fakeEngine) Transcribe(_ context.Context, _ []float32, _ int) (stt.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls >= len(f.results) {
		return stt.Result{}, errors.New("unexpected call")
	}
	r := f.results[f.calls]
	f.calls++
	if r.err != nil {
		return stt.Result{}, r.err
	}
	return stt.Result{Text: r.text}, nil
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func loudChunk(role audio.Role, at time.Time) audio.Chunk {
	samples := make([]float32, 8000)
	for i := range samples {
		samples[i] = 0.5
	}
	return audio.Chunk{Role: role, Samples: samples, SampleRate: 16000, Captured: at}
}

func silentChunk(role audio.Role, at time.Time) audio.Chunk {
	return audio.Chunk{Role: role, Samples: make([]float32, 8000), SampleRate: 16000, Captured: at}
}

func runWorker(t *testing.T, engine stt.Engine, det *vad.Detector, chunks []audio.Chunk) []Utterance {
	t.Helper()

	s := &sink{}
	buf := NewBuffer(time.Hour, s.emit, slog.Default())
	queue := audio.NewQueue(len(chunks)+1, nil)
	for _, c := range chunks {
		queue.Put(c)
	}

	w := NewWorker(queue, engine, det, buf, slog.Default())
	w.Drain(5 * time.Second)
	buf.FlushAll()
	return s.all()
}

func TestWorkerTranscribesInArrivalOrder(t *testing.T) {
	engine := &fakeEngine{results: []fakeResult{
		{text: "turn off"},
		{text: "the lights"},
	}}
	base := time.Now()

	got := runWorker(t, engine, nil, []audio.Chunk{
		loudChunk(audio.RoleUser, base),
		loudChunk(audio.RoleUser, base.Add(500*time.Millisecond)),
	})

	if len(got) != 1 {
		t.Fatalf("expected 1 utterance, got %d", len(got))
	}
	if got[0].Text != "turn off the lights" {
		t.Errorf("fragments out of order: %q", got[0].Text)
	}
}

func TestWorkerSkipsSilentChunks(t *testing.T) {
	engine := &fakeEngine{results: []fakeResult{{text: "hello"}}}
	det := vad.NewDetector(0.01)
	base := time.Now()

	got := runWorker(t, engine, det, []audio.Chunk{
		silentChunk(audio.RoleUser, base),
		loudChunk(audio.RoleUser, base.Add(500*time.Millisecond)),
	})

	if engine.callCount() != 1 {
		t.Fatalf("expected 1 engine call, got %d", engine.callCount())
	}
	if len(got) != 1 || got[0].Text != "hello" {
		t.Fatalf("unexpected utterances: %+v", got)
	}
}

func TestWorkerDropsFailedChunkAndContinues(t *testing.T) {
	engine := &fakeEngine{results: []fakeResult{
		{err: errors.New("engine exploded")},
		{text: "still alive"},
	}}
	base := time.Now()

	got := runWorker(t, engine, nil, []audio.Chunk{
		loudChunk(audio.RoleUser, base),
		loudChunk(audio.RoleUser, base.Add(500*time.Millisecond)),
	})

	if len(got) != 1 || got[0].Text != "still alive" {
		t.Fatalf("expected pipeline to continue past failure, got %+v", got)
	}
}

func TestWorkerIgnoresNoSpeech(t *testing.T) {
	engine := &fakeEngine{results: []fakeResult{
		{err: stt.ErrNoSpeech},
		{text: "actual words"},
	}}
	base := time.Now()

	got := runWorker(t, engine, nil, []audio.Chunk{
		loudChunk(audio.RoleAssistant, base),
		loudChunk(audio.RoleAssistant, base.Add(500*time.Millisecond)),
	})

	if len(got) != 1 || got[0].Text != "actual words" {
		t.Fatalf("no-speech chunk leaked into output: %+v", got)
	}
}

// blockingEngine parks in Transcribe until released.
type blockingEngine struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingEngine) Name() string { return "blocking" }
func (b *blockingEngine) Close() error { return nil }

func (b *blockingEngine) Transcribe(ctx context.Context, _ []float32, _ int) (stt.Result, error) {
	close(b.started)
	<-b.release
	if err := ctx.Err(); err != nil {
		return stt.Result{}, err
	}
	return stt.Result{Text: "last words"}, nil
}

func TestWorkerFinishesInFlightChunkOnCancel(t *testing.T) {
	engine := &blockingEngine{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	queue := audio.NewQueue(4, nil)
	s := &sink{}
	buf := NewBuffer(time.Hour, s.emit, slog.Default())
	w := NewWorker(queue, engine, nil, buf, slog.Default())

	queue.Put(loudChunk(audio.RoleUser, time.Now()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	// cancel while the transcription is mid-flight, then let it finish
	<-engine.started
	cancel()
	close(engine.release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after finishing the chunk")
	}

	buf.FlushAll()
	got := s.all()
	if len(got) != 1 || got[0].Text != "last words" {
		t.Fatalf("in-flight chunk lost on cancel: %+v", got)
	}
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	engine := &fakeEngine{}
	queue := audio.NewQueue(4, nil)
	s := &sink{}
	buf := NewBuffer(time.Hour, s.emit, slog.Default())
	w := NewWorker(queue, engine, nil, buf, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}
