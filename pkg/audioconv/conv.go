package audioconv

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

// PipelineRate is the sample rate the transcription engines expect.
const PipelineRate = 16000

// EncodeWAV writes mono float32 PCM as a 16-bit WAV file.
func EncodeWAV(w io.WriteSeeker, pcm []float32, sampleRate int) error {
	if sampleRate <= 0 {
		return errors.New("invalid sample rate")
	}

	ints := Float32ToInt16(pcm)
	data := make([]int, len(ints))
	for i, v := range ints {
		data[i] = int(v)
	}

	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}

// DecodeFileTo16k reads an audio file (wav/mp3/ogg-vorbis/opus) and returns
// mono float32 PCM at the pipeline rate. maxSamples <= 0 means unlimited.
func DecodeFileTo16k(path string, maxSamples int) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAV(f, maxSamples)
	case ".mp3":
		return decodeMP3(f, maxSamples)
	case ".ogg", ".oga", ".opus":
		return decodeOgg(f, maxSamples)
	default:
		// sniff the container
		br := bufio.NewReader(f)
		magic, _ := br.Peek(4)
		_, _ = f.Seek(0, io.SeekStart)
		switch string(magic) {
		case "RIFF":
			return decodeWAV(f, maxSamples)
		case "OggS":
			return decodeOgg(f, maxSamples)
		default:
			return nil, fmt.Errorf("unsupported format: %s", path)
		}
	}
}

func decodeWAV(r io.ReadSeeker, maxSamples int) ([]float32, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav")
	}
	pb, err := dec.FullPCMBuffer()
	if err != nil || pb == nil || pb.Data == nil {
		if err == nil {
			err = errors.New("empty wav")
		}
		return nil, err
	}

	bd := int(dec.BitDepth)
	if bd == 0 {
		bd = 16
	}
	x := intsToFloat32(pb.Data, bd)

	ch, sr := 1, 44100
	if pb.Format != nil {
		if pb.Format.NumChannels > 0 {
			ch = pb.Format.NumChannels
		}
		if pb.Format.SampleRate > 0 {
			sr = pb.Format.SampleRate
		}
	}
	return normalize(x, ch, sr, maxSamples), nil
}

func decodeMP3(r io.Reader, maxSamples int) ([]float32, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, err
	}
	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &ints); err != nil {
		return nil, err
	}
	x := Int16ToFloat32(ints)

	sr := dec.SampleRate()
	if sr <= 0 {
		sr = 44100
	}
	// the decoder always outputs interleaved stereo
	return normalize(x, 2, sr, maxSamples), nil
}

func decodeOgg(r io.ReadSeeker, maxSamples int) ([]float32, error) {
	if s, err := decodeVorbis(r, maxSamples); err == nil {
		return s, nil
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	s, err := decodeOpus(r, maxSamples)
	if err != nil {
		return nil, fmt.Errorf("cannot decode ogg as vorbis or opus: %w", err)
	}
	return s, nil
}

func decodeVorbis(r io.Reader, maxSamples int) ([]float32, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, errors.New("invalid ogg/vorbis stream")
	}
	return normalize(pcm, format.Channels, format.SampleRate, maxSamples), nil
}

func decodeOpus(rs io.ReadSeeker, maxSamples int) ([]float32, error) {
	dec, err := popus.NewDecoder(rs)
	if err != nil {
		return nil, err
	}
	defer dec.Destroy()

	ch := dec.ChannelCount()
	if ch <= 0 {
		ch = 1
	}

	// opus always decodes at 48k
	var (
		pcm48 []float32
		buf   = make([]int16, 48_000*ch/2)
	)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			pcm48 = append(pcm48, Int16ToFloat32(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if len(pcm48) == 0 {
		return nil, nil
	}
	return normalize(pcm48, ch, 48000, maxSamples), nil
}

func normalize(x []float32, channels, sampleRate, maxSamples int) []float32 {
	if channels > 1 {
		x = DownmixInterleaved(x, channels)
	}
	if sampleRate != PipelineRate {
		x = Resample(x, sampleRate, PipelineRate)
	}
	if maxSamples > 0 && len(x) > maxSamples {
		x = x[:maxSamples]
	}
	return x
}

// Int16ToFloat32 converts 16-bit PCM to float32 in [-1, 1].
func Int16ToFloat32(data []int16) []float32 {
	out := make([]float32, len(data))
	const scale = 1.0 / 32768.0
	for i, v := range data {
		out[i] = float32(float64(v) * scale)
	}
	return out
}

// Float32ToInt16 converts float32 PCM in [-1, 1] to 16-bit, clamping.
func Float32ToInt16(data []float32) []int16 {
	out := make([]int16, len(data))
	for i, v := range data {
		s := clamp(float64(v), -1.0, 1.0) * 32767.0
		out[i] = int16(math.Round(s))
	}
	return out
}

func intsToFloat32(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range data {
		out[i] = float32(clamp(float64(v)*scale, -1.0, 1.0))
	}
	return out
}

// DownmixInterleaved averages interleaved channels into mono.
func DownmixInterleaved(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	nFrames := len(in) / channels
	out := make([]float32, nFrames)
	for i := 0; i < nFrames; i++ {
		sum := 0.0
		base := i * channels
		for c := 0; c < channels; c++ {
			sum += float64(in[base+c])
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

// Resample converts between sample rates with linear interpolation. Good
// enough for speech fed to a recognizer.
func Resample(in []float32, inSR, outSR int) []float32 {
	if inSR == outSR || len(in) == 0 {
		return in
	}
	ratio := float64(outSR) / float64(inSR)
	outN := int(math.Ceil(float64(len(in)) * ratio))
	out := make([]float32, outN)
	for i := 0; i < outN; i++ {
		src := float64(i) / ratio
		i0 := int(math.Floor(src))
		i1 := i0 + 1
		if i0 >= len(in) {
			out[i] = in[len(in)-1]
			continue
		}
		if i1 >= len(in) {
			out[i] = in[i0]
			continue
		}
		a := float32(src - float64(i0))
		out[i] = in[i0]*(1-a) + in[i1]*a
	}
	return out
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
