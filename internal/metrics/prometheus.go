package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics, registered on the default registry and served by the
// HTTP server's /metrics endpoint.
var (
	ChunksCaptured = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_chunks_captured_total",
		Help: "Audio chunks enqueued for transcription.",
	}, []string{"role"})

	ChunksDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_chunks_dropped_total",
		Help: "Audio chunks evicted by the queue's drop-oldest policy.",
	}, []string{"role"})

	ChunksSilent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_chunks_silent_total",
		Help: "Audio chunks discarded by voice activity detection.",
	}, []string{"role"})

	Transcriptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_transcriptions_total",
		Help: "Transcription attempts by engine and outcome.",
	}, []string{"engine", "status"})

	Utterances = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_utterances_total",
		Help: "Utterances finalized by the quiet-period buffer.",
	}, []string{"role"})

	ChatlogWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_chatlog_writes_total",
		Help: "Chat log append attempts by outcome.",
	}, []string{"status"})

	MemorySyncEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scribe_memory_sync_entries_total",
		Help: "Chat log entries successfully forwarded to the memory service.",
	})

	MemorySyncFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scribe_memory_sync_failures_total",
		Help: "Memory sync attempts that failed.",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scribe_queue_depth",
		Help: "Chunks currently waiting in the transcription queue.",
	})
)
