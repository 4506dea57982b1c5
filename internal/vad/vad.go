package vad

import (
	"math"
	"sync"
)

// Detector is an energy-based voice activity gate applied to chunks before
// they reach a transcription engine. Near-silent chunks are filtered so
// neither engine wastes work on them.
type Detector struct {
	threshold float64
	smoothing float64

	mu       sync.Mutex
	last     float64
	seen     uint64
	voiced   uint64
}

// Result of checking one chunk.
type Result struct {
	RMS      float64
	HasVoice bool
}

// NewDetector creates a detector with the given RMS threshold in [0,1].
func NewDetector(threshold float64) *Detector {
	return &Detector{
		threshold: threshold,
		smoothing: 0.3,
	}
}

// Check computes the smoothed RMS energy of the samples and compares it
// against the threshold.
func (d *Detector) Check(samples []float32) Result {
	rms := RMS(samples)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.seen > 0 {
		rms = d.smoothing*rms + (1-d.smoothing)*d.last
	}
	d.last = rms
	d.seen++

	has := rms >= d.threshold
	if has {
		d.voiced++
	}
	return Result{RMS: rms, HasVoice: has}
}

// Stats returns how many chunks were checked and how many carried voice.
func (d *Detector) Stats() (seen, voiced uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seen, d.voiced
}

// RMS returns the root-mean-square energy of the samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var s float64
	for _, x := range samples {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s / float64(len(samples)))
}
