package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"scribe/internal/audio"
	"scribe/internal/chatlog"
	"scribe/internal/config"
	"scribe/internal/hub"
	"scribe/internal/ipc"
	"scribe/internal/memory"
	"scribe/internal/metrics"
	"scribe/internal/notify"
	"scribe/internal/pipeline"
	"scribe/internal/proxy"
	"scribe/internal/server"
	"scribe/internal/vad"
	"scribe/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

const drainTimeout = 3 * time.Second

func main() {
	cfgPath := cli.StringP("config", "c", "scribe.yaml", "Config file path")
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "", "Log level override")
	cli.Parse()

	godotenv.Load(*envFile)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	level := cfg.Logging.Level
	if *logLevel != "" {
		level = *logLevel
	}
	if cfg.Logging.Format == "json" {
		log.SetDefault(log.New(log.NewJSONHandler(os.Stdout, &log.HandlerOptions{
			Level: logLevelMap[level],
		})))
	} else {
		log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
			Level: logLevelMap[level],
		})))
	}

	log.Info("Booting up")

	var httpClient *http.Client
	if cfg.Proxy.SocksAddr != "" {
		httpClient, err = proxy.NewSocksClient(cfg.Proxy.SocksAddr, 0)
		if err != nil {
			log.Error("Failed to dial socks proxy", "proxy", cfg.Proxy.SocksAddr, "err", err)
			os.Exit(1)
		}
		log.Debug("Loaded proxy")
	}

	engine, err := selectEngine(cfg, httpClient)
	if err != nil {
		log.Error("No transcription engine available", "err", err)
		os.Exit(1)
	}
	defer engine.Close()

	store, err := chatlog.Open(cfg.Chatlog.Path)
	if err != nil {
		log.Error("Failed to open chat log", "path", cfg.Chatlog.Path, "err", err)
		os.Exit(1)
	}

	uiHub := hub.New(log.Default())

	var srv *server.Server
	if cfg.HTTP.Enabled {
		srv = server.New(cfg.HTTP.Address, store, uiHub, log.Default())
		srv.Start()
	}

	buf := pipeline.NewBuffer(cfg.Buffer.GetQuietPeriod(), func(u pipeline.Utterance) {
		persist(store, uiHub, u)
	}, log.Default())

	queue := audio.NewQueue(cfg.Queue.Capacity, func(old audio.Chunk) {
		metrics.ChunksDropped.WithLabelValues(string(old.Role)).Inc()
		log.Warn("queue full, dropped oldest chunk", "role", old.Role, "captured", old.Captured)
	})

	capture := audio.NewCapture(queue, log.Default())
	if err := capture.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer capture.Terminate()

	// the microphone is mandatory, the playback monitor is not
	if err := capture.Start(audio.StreamConfig{
		Role:          audio.RoleUser,
		DeviceName:    cfg.Audio.InputDevice,
		SampleRate:    cfg.Audio.InputSampleRate,
		ChunkDuration: cfg.Audio.GetChunkDuration(),
	}); err != nil {
		log.Error("Failed to open microphone", "err", err)
		os.Exit(1)
	}
	startMonitor(cfg, capture)

	var det *vad.Detector
	if cfg.VAD.Enabled {
		det = vad.NewDetector(cfg.VAD.Threshold)
	}

	worker := pipeline.NewWorker(queue, engine, det, buf, log.Default())

	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		worker.Run(workerCtx)
		close(workerDone)
	}()

	bufCtx, stopBuf := context.WithCancel(context.Background())
	go buf.Run(bufCtx, cfg.Buffer.GetSweepInterval())

	syncer := newSyncer(cfg, store, httpClient)

	if err := ipc.StartServer(func(msg ipc.ControlMessage) ipc.Reply {
		return handleControl(msg, buf, syncer, queue)
	}); err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}

	go func() {
		if err := notify.Chime(cfg.Notify.ChimePath); err != nil {
			log.Warn("Failed to play chime", "err", err)
		}
	}()

	log.Info("Boot up - successful")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info("Shutting down")

	// ordered teardown: capture stops feeding, the worker drains what is
	// queued, the buffer force-finalizes, then memory sync runs before the
	// store closes
	capture.Stop()
	stopWorker()
	<-workerDone
	worker.Drain(drainTimeout)
	stopBuf()
	buf.FlushAll()

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		srv.Shutdown(ctx)
		cancel()
	}
	uiHub.Close()

	if syncer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Memory.GetTimeout())
		if err := syncer.Sync(ctx); err != nil {
			log.Error("Memory sync failed", "err", err)
		}
		cancel()
	}

	if err := store.Close(); err != nil {
		log.Error("Failed to close chat log", "err", err)
	}

	log.Info("Bye")
}

func selectEngine(cfg *config.Config, httpClient *http.Client) (stt.Engine, error) {
	offline := stt.Factory{
		Name: "whisper.cpp",
		New: func() (stt.Engine, error) {
			return stt.NewWhisper(cfg.STT.ModelPath, stt.WhisperOptions{
				Language: cfg.STT.Language,
			})
		},
	}
	online := stt.Factory{
		Name: "openai",
		New: func() (stt.Engine, error) {
			apiKey := os.Getenv("OPENAI_API_KEY")
			if apiKey == "" {
				return nil, errors.New("OPENAI_API_KEY not set")
			}
			opts := []option.RequestOption{option.WithAPIKey(apiKey)}
			if httpClient != nil {
				opts = append(opts, option.WithHTTPClient(httpClient))
			}
			client := openai.NewClient(opts...)
			return stt.NewOnline(client, cfg.STT.OnlineModel, cfg.STT.Language), nil
		},
	}

	if cfg.STT.Prefer == "online" {
		return stt.Select(log.Default(), online, offline)
	}
	return stt.Select(log.Default(), offline, online)
}

func startMonitor(cfg *config.Config, capture *audio.Capture) {
	device := cfg.Audio.MonitorDevice
	if device == "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		resolved, err := audio.DefaultMonitorSource(ctx)
		if err != nil {
			log.Warn("No playback monitor source, assistant capture disabled", "err", err)
			return
		}
		device = resolved
	}

	err := capture.Start(audio.StreamConfig{
		Role:          audio.RoleAssistant,
		DeviceName:    device,
		SampleRate:    cfg.Audio.MonitorSampleRate,
		ChunkDuration: cfg.Audio.GetChunkDuration(),
	})
	if err != nil {
		log.Warn("Failed to open playback monitor, assistant capture disabled", "device", device, "err", err)
	}
}

func persist(store *chatlog.Store, uiHub *hub.Hub, u pipeline.Utterance) {
	_, err := store.Append(chatlog.Entry{
		Role:       string(u.Role),
		Text:       u.Text,
		StartedAt:  u.Start,
		FinishedAt: u.End,
	})
	if err != nil {
		// best-effort log, not a system of record; the entry is lost
		metrics.ChatlogWrites.WithLabelValues("error").Inc()
		log.Error("Failed to append chat log entry", "role", u.Role, "err", err)
		return
	}

	metrics.ChatlogWrites.WithLabelValues("ok").Inc()
	metrics.Utterances.WithLabelValues(string(u.Role)).Inc()

	uiHub.Broadcast(map[string]any{
		"type": "utterance",
		"payload": map[string]any{
			"role":        string(u.Role),
			"text":        u.Text,
			"started_at":  u.Start,
			"finished_at": u.End,
		},
	})
}

func newSyncer(cfg *config.Config, store *chatlog.Store, httpClient *http.Client) *memory.Syncer {
	if !cfg.Memory.Enabled {
		return nil
	}
	apiKey := os.Getenv("MEMORY_API_KEY")
	if apiKey == "" {
		log.Warn("MEMORY_API_KEY not set, memory sync disabled")
		return nil
	}

	client := memory.NewClient(memory.Config{
		Endpoint: cfg.Memory.Endpoint,
		APIKey:   apiKey,
		UserID:   cfg.Memory.UserID,
		Timeout:  cfg.Memory.GetTimeout(),
	}, httpClient)

	return memory.NewSyncer(store, client, cfg.Memory.BatchLimit, log.Default())
}

func handleControl(msg ipc.ControlMessage, buf *pipeline.Buffer, syncer *memory.Syncer, queue *audio.Queue) ipc.Reply {
	switch msg.Cmd {
	case "status":
		detail := "idle"
		if buf.Pending() || queue.Len() > 0 {
			detail = "transcribing"
		}
		return ipc.Reply{OK: true, Detail: detail}
	case "flush":
		buf.FlushAll()
		return ipc.Reply{OK: true}
	case "sync":
		if syncer == nil {
			return ipc.Reply{OK: false, Detail: "memory sync disabled"}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := syncer.Sync(ctx); err != nil {
			return ipc.Reply{OK: false, Detail: err.Error()}
		}
		return ipc.Reply{OK: true}
	default:
		log.Warn("Unknown command", "cmd", msg.Cmd)
		return ipc.Reply{OK: false, Detail: "unknown command"}
	}
}
