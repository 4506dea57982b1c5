package stt

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/orcaman/writerseeker"

	"scribe/pkg/audioconv"
)

// Online transcribes through the OpenAI audio API. It is the fallback when
// the local whisper model cannot be loaded.
type Online struct {
	client   openai.Client
	model    string
	language string
}

// NewOnline wraps an already-constructed API client. The client carries the
// key and any proxy configuration.
func NewOnline(client openai.Client, model, language string) *Online {
	return &Online{client: client, model: model, language: language}
}

func (o *Online) Name() string { return "openai" }

func (o *Online) Close() error { return nil }

func (o *Online) Transcribe(ctx context.Context, pcm []float32, sampleRate int) (Result, error) {
	if len(pcm) == 0 {
		return Result{}, ErrNoSpeech
	}

	// The API wants a real audio file, so pack the chunk into an
	// in-memory WAV.
	ws := &writerseeker.WriterSeeker{}
	if err := audioconv.EncodeWAV(ws, pcm, sampleRate); err != nil {
		return Result{}, fmt.Errorf("encode wav: %w", err)
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(ws.Reader(), "chunk.wav", "audio/wav"),
		Model: openai.AudioModel(o.model),
	}
	if o.language != "" && o.language != "auto" {
		params.Language = openai.String(o.language)
	}

	resp, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return Result{}, fmt.Errorf("transcription request: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return Result{}, ErrNoSpeech
	}

	return Result{Text: text, Language: o.language}, nil
}
