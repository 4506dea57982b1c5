package audio

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"scribe/internal/metrics"
)

const frameSize = 1024

// StreamConfig describes one capture path.
type StreamConfig struct {
	Role          Role
	DeviceName    string // "" = default input device
	SampleRate    int
	ChunkDuration time.Duration
}

// Capture owns the PortAudio session and the per-stream read loops. Each
// loop slices its stream into fixed-duration chunks and enqueues them; all
// heavier work happens on the consumer side of the queue.
type Capture struct {
	queue *Queue
	log   *slog.Logger

	mu      sync.Mutex
	stops   []chan struct{}
	wg      sync.WaitGroup
	started bool
}

func NewCapture(queue *Queue, log *slog.Logger) *Capture {
	return &Capture{queue: queue, log: log}
}

// Init initializes PortAudio. Must be called once before Start.
func (c *Capture) Init() error {
	return portaudio.Initialize()
}

// Terminate releases PortAudio. Call after Stop.
func (c *Capture) Terminate() {
	portaudio.Terminate()
}

// Start opens one stream per config and begins capturing. Failure to open
// any requested stream is returned to the caller; the caller decides which
// streams are mandatory.
func (c *Capture) Start(cfg StreamConfig) error {
	stream, buf, err := openStream(cfg)
	if err != nil {
		return fmt.Errorf("open %s stream: %w", cfg.Role, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("start %s stream: %w", cfg.Role, err)
	}

	stop := make(chan struct{})
	c.mu.Lock()
	c.stops = append(c.stops, stop)
	c.started = true
	c.mu.Unlock()

	c.wg.Add(1)
	go c.readLoop(cfg, stream, buf, stop)

	c.log.Info("capture started",
		"role", cfg.Role,
		"device", cfg.DeviceName,
		"rate", cfg.SampleRate,
		"chunk", cfg.ChunkDuration,
	)
	return nil
}

// Stop closes all capture loops and waits for them to finish.
func (c *Capture) Stop() {
	c.mu.Lock()
	for _, stop := range c.stops {
		close(stop)
	}
	c.stops = nil
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Capture) readLoop(cfg StreamConfig, stream *portaudio.Stream, buf []float32, stop <-chan struct{}) {
	defer c.wg.Done()
	defer stream.Close()
	defer stream.Stop()

	chunkSamples := int(float64(cfg.SampleRate) * cfg.ChunkDuration.Seconds())
	if chunkSamples < frameSize {
		chunkSamples = frameSize
	}

	pending := make([]float32, 0, chunkSamples)
	chunkStart := time.Now()

	for {
		select {
		case <-stop:
			c.flush(cfg, pending, chunkStart)
			return
		default:
		}

		if err := stream.Read(); err != nil {
			// transient overflow under load; keep the stream alive
			c.log.Warn("stream read failed", "role", cfg.Role, "err", err)
			continue
		}

		if len(pending) == 0 {
			chunkStart = time.Now()
		}
		pending = append(pending, buf...)

		if len(pending) >= chunkSamples {
			c.enqueue(cfg, pending[:chunkSamples], chunkStart)
			rest := pending[chunkSamples:]
			pending = make([]float32, 0, chunkSamples)
			pending = append(pending, rest...)
			chunkStart = time.Now()
		}
	}
}

func (c *Capture) flush(cfg StreamConfig, pending []float32, start time.Time) {
	if len(pending) == 0 {
		return
	}
	c.enqueue(cfg, pending, start)
}

func (c *Capture) enqueue(cfg StreamConfig, samples []float32, start time.Time) {
	out := make([]float32, len(samples))
	copy(out, samples)
	c.queue.Put(Chunk{
		Role:       cfg.Role,
		Samples:    out,
		SampleRate: cfg.SampleRate,
		Captured:   start,
	})
	metrics.ChunksCaptured.WithLabelValues(string(cfg.Role)).Inc()
}

func openStream(cfg StreamConfig) (*portaudio.Stream, []float32, error) {
	buf := make([]float32, frameSize)

	if cfg.DeviceName == "" {
		stream, err := portaudio.OpenDefaultStream(1, 0, float64(cfg.SampleRate), len(buf), buf)
		return stream, buf, err
	}

	dev, err := findInputDevice(cfg.DeviceName)
	if err != nil {
		return nil, nil, err
	}

	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = 1
	params.SampleRate = float64(cfg.SampleRate)
	params.FramesPerBuffer = len(buf)

	stream, err := portaudio.OpenStream(params, buf)
	return stream, buf, err
}

func findInputDevice(name string) (*portaudio.DeviceInfo, error) {
	devs, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	for _, d := range devs {
		if d.MaxInputChannels > 0 && strings.Contains(d.Name, name) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no input device matching %q", name)
}
