package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"scribe/internal/audio"
)

// Fragment is the text produced from one transcribed chunk.
type Fragment struct {
	Role audio.Role
	Text string
	At   time.Time
}

// Utterance is a consolidated run of same-role fragments, finalized after a
// quiet period with no new fragment for that role.
type Utterance struct {
	Role  audio.Role
	Text  string
	Start time.Time
	End   time.Time
}

type accumulator struct {
	parts   []string
	start   time.Time // capture time of the first fragment
	end     time.Time // capture time of the last fragment
	arrived time.Time // when the last fragment reached the buffer
}

// Buffer accumulates fragments per role and emits utterances. Speech
// arrives as overlapping sub-sentence chunks; writing each one out would
// fragment sentences, so the buffer waits for quiet instead. All state is
// guarded by one mutex since the worker, the sweep ticker and shutdown all
// touch it.
type Buffer struct {
	quiet time.Duration
	emit  func(Utterance)
	log   *slog.Logger

	mu    sync.Mutex
	roles map[audio.Role]*accumulator
	now   func() time.Time
}

func NewBuffer(quiet time.Duration, emit func(Utterance), log *slog.Logger) *Buffer {
	return &Buffer{
		quiet: quiet,
		emit:  emit,
		log:   log,
		roles: make(map[audio.Role]*accumulator),
		now:   time.Now,
	}
}

// Add appends a fragment to its role's accumulator.
func (b *Buffer) Add(f Fragment) {
	text := strings.TrimSpace(f.Text)
	if text == "" {
		return
	}
	at := f.At
	if at.IsZero() {
		at = b.now()
	}

	b.mu.Lock()
	acc := b.roles[f.Role]
	if acc == nil {
		acc = &accumulator{}
		b.roles[f.Role] = acc
	}
	if len(acc.parts) == 0 {
		acc.start = at
	}
	acc.parts = append(acc.parts, text)
	acc.end = at
	acc.arrived = b.now()
	b.mu.Unlock()
}

// Run sweeps the accumulators on a ticker until ctx is done.
func (b *Buffer) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			b.sweep(b.now())
		}
	}
}

// FlushAll finalizes every non-empty accumulator regardless of elapsed
// quiet time, so trailing speech is not lost at shutdown.
func (b *Buffer) FlushAll() {
	b.mu.Lock()
	out := b.collect(func(*accumulator) bool { return true })
	b.mu.Unlock()
	b.dispatch(out)
}

// Pending reports whether any role has unemitted text.
func (b *Buffer) Pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, acc := range b.roles {
		if len(acc.parts) > 0 {
			return true
		}
	}
	return false
}

func (b *Buffer) sweep(now time.Time) {
	b.mu.Lock()
	out := b.collect(func(acc *accumulator) bool {
		return now.Sub(acc.arrived) >= b.quiet
	})
	b.mu.Unlock()
	b.dispatch(out)
}

// collect finalizes matching accumulators; caller holds the mutex. Emission
// happens after unlock so a slow sink cannot stall Add.
func (b *Buffer) collect(ready func(*accumulator) bool) []Utterance {
	var out []Utterance
	for role, acc := range b.roles {
		if len(acc.parts) == 0 || !ready(acc) {
			continue
		}
		out = append(out, Utterance{
			Role:  role,
			Text:  strings.Join(acc.parts, " "),
			Start: acc.start,
			End:   acc.end,
		})
		acc.parts = nil
	}
	return out
}

func (b *Buffer) dispatch(utts []Utterance) {
	for _, u := range utts {
		b.log.Debug("utterance finalized", "role", u.Role, "chars", len(u.Text))
		b.emit(u)
	}
}
