package vad

import (
	"math"
	"testing"
)

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("empty input: expected 0, got %f", got)
	}

	samples := []float32{0.5, -0.5, 0.5, -0.5}
	if got := RMS(samples); math.Abs(got-0.5) > 1e-6 {
		t.Errorf("expected 0.5, got %f", got)
	}
}

func TestDetectorFiltersSilence(t *testing.T) {
	d := NewDetector(0.015)

	silent := make([]float32, 8000)
	if res := d.Check(silent); res.HasVoice {
		t.Errorf("silence detected as voice, rms=%f", res.RMS)
	}

	loud := make([]float32, 8000)
	for i := range loud {
		loud[i] = 0.3
	}
	if res := d.Check(loud); !res.HasVoice {
		t.Errorf("speech-level audio filtered, rms=%f", res.RMS)
	}

	seen, voiced := d.Stats()
	if seen != 2 || voiced != 1 {
		t.Errorf("stats: seen=%d voiced=%d", seen, voiced)
	}
}

func TestDetectorSmoothsAcrossChunks(t *testing.T) {
	d := NewDetector(0.2)

	loud := make([]float32, 100)
	for i := range loud {
		loud[i] = 0.9
	}
	d.Check(loud)

	// one silent chunk right after loud speech keeps some energy
	res := d.Check(make([]float32, 100))
	if res.RMS <= 0 {
		t.Errorf("smoothing lost all history, rms=%f", res.RMS)
	}
	if res.RMS >= 0.9 {
		t.Errorf("smoothing did not decay, rms=%f", res.RMS)
	}
}
