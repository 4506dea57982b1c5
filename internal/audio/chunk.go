package audio

import "time"

// Role marks which side of the conversation a chunk came from.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Chunk is a fixed-duration slice of raw mono samples. Immutable once
// enqueued; the transcription worker takes ownership on dequeue.
type Chunk struct {
	Role       Role
	Samples    []float32
	SampleRate int
	Captured   time.Time
}

// Duration returns the playback length of the chunk.
func (c Chunk) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / float64(c.SampleRate) * float64(time.Second))
}
