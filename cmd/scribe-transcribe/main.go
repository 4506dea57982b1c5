// scribe-transcribe runs stored audio files through the transcription
// engine and prints the text. Useful for re-processing recordings that
// never went through the live pipeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"scribe/pkg/audioconv"
	"scribe/pkg/stt"
)

func main() {
	modelPath := cli.StringP("model", "m", "", "whisper.cpp model path")
	language := cli.String("language", "auto", "Language hint")
	onlineModel := cli.String("online-model", "whisper-1", "OpenAI transcription model")
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	cli.Parse()

	files := cli.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: scribe-transcribe [flags] <file>...")
		os.Exit(2)
	}

	godotenv.Load(*envFile)
	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{Level: log.LevelWarn})))

	engine, err := selectEngine(*modelPath, *language, *onlineModel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "scribe-transcribe:", err)
		os.Exit(1)
	}
	defer engine.Close()

	failed := false
	for _, path := range files {
		text, err := transcribeFile(engine, path)
		switch {
		case errors.Is(err, stt.ErrNoSpeech):
			fmt.Fprintf(os.Stderr, "%s: no speech\n", path)
		case err != nil:
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
		default:
			if len(files) > 1 {
				fmt.Printf("%s: %s\n", path, text)
			} else {
				fmt.Println(text)
			}
		}
	}
	if failed {
		os.Exit(1)
	}
}

func selectEngine(modelPath, language, onlineModel string) (stt.Engine, error) {
	offline := stt.Factory{
		Name: "whisper.cpp",
		New: func() (stt.Engine, error) {
			return stt.NewWhisper(modelPath, stt.WhisperOptions{Language: language})
		},
	}
	online := stt.Factory{
		Name: "openai",
		New: func() (stt.Engine, error) {
			apiKey := os.Getenv("OPENAI_API_KEY")
			if apiKey == "" {
				return nil, errors.New("OPENAI_API_KEY not set")
			}
			client := openai.NewClient(option.WithAPIKey(apiKey))
			return stt.NewOnline(client, onlineModel, language), nil
		},
	}
	return stt.Select(log.Default(), offline, online)
}

func transcribeFile(engine stt.Engine, path string) (string, error) {
	pcm, err := audioconv.DecodeFileTo16k(path, 0)
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	res, err := engine.Transcribe(context.Background(), pcm, audioconv.PipelineRate)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}
