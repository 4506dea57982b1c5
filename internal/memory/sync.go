package memory

import (
	"context"
	"fmt"
	"log/slog"

	"scribe/internal/chatlog"
	"scribe/internal/metrics"
)

// logStore is the read side of the chat log the syncer needs.
type logStore interface {
	Unsynced(limit int) ([]chatlog.Entry, error)
	MarkSynced(lastID int64) error
}

// batchSender delivers one batch to the memory service.
type batchSender interface {
	AddBatch(ctx context.Context, msgs []Message) error
}

// Syncer forwards unsynced chat log entries to the memory service. Runs at
// shutdown (and on demand); safe to call when there is nothing new.
type Syncer struct {
	store  logStore
	sender batchSender
	limit  int
	log    *slog.Logger
}

func NewSyncer(store logStore, sender batchSender, limit int, log *slog.Logger) *Syncer {
	return &Syncer{store: store, sender: sender, limit: limit, log: log}
}

// Sync reads the unsynced batch, posts it, and advances the cursor on
// success. Entries are never deleted, so a failed sync just leaves them
// for the next cycle; the service's own deduplication tolerates repeats.
func (s *Syncer) Sync(ctx context.Context) error {
	entries, err := s.store.Unsynced(s.limit)
	if err != nil {
		return fmt.Errorf("read unsynced entries: %w", err)
	}
	if len(entries) == 0 {
		s.log.Debug("memory sync: nothing new")
		return nil
	}

	msgs := make([]Message, 0, len(entries))
	for _, e := range entries {
		msgs = append(msgs, Message{Role: e.Role, Content: e.Text})
	}

	if err := s.sender.AddBatch(ctx, msgs); err != nil {
		metrics.MemorySyncFailures.Inc()
		return fmt.Errorf("send batch of %d: %w", len(msgs), err)
	}

	last := entries[len(entries)-1].ID
	if err := s.store.MarkSynced(last); err != nil {
		return fmt.Errorf("advance sync cursor: %w", err)
	}

	metrics.MemorySyncEntries.Add(float64(len(entries)))
	s.log.Info("memory sync complete", "entries", len(entries), "cursor", last)
	return nil
}
