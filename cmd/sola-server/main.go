package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/solavoice/go-sola/internal/config"
	"github.com/solavoice/go-sola/internal/events"
	"github.com/solavoice/go-sola/internal/log"
	"github.com/solavoice/go-sola/internal/metrics"
	"github.com/solavoice/go-sola/internal/server"
	"github.com/solavoice/go-sola/pkg/asr"
	"github.com/solavoice/go-sola/pkg/conversation"
	"github.com/solavoice/go-sola/pkg/health"
	"github.com/solavoice/go-sola/pkg/llm"
	"github.com/solavoice/go-sola/pkg/orchestrator"
	"github.com/solavoice/go-sola/pkg/roles"
	"github.com/solavoice/go-sola/pkg/transcode"
	"github.com/solavoice/go-sola/pkg/tts"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Logging.Level)
	logger := log.L()
	mainLog := log.Component("main")

	registry, err := loadRegistry(cfg)
	if err != nil {
		mainLog.Error("load roles", "error", err)
		os.Exit(1)
	}

	transcoder := transcode.New(
		transcode.WithBinary(cfg.Transcoder.FFmpegBin),
		transcode.WithTimeout(cfg.Transcoder.Timeout),
		transcode.WithLogger(logger),
	)

	recognizer, err := asr.NewWhisper(
		asr.WithEndpoint(cfg.Transcription.Endpoint),
		asr.WithModel(cfg.Transcription.Model),
		asr.WithDevice(cfg.Transcription.Device),
		asr.WithComputeType(cfg.Transcription.ComputeType),
		asr.WithTimeout(cfg.Transcription.Timeout),
		asr.WithLogger(logger),
	)
	if err != nil {
		mainLog.Error("speech recognizer", "error", err)
		os.Exit(1)
	}
	defer recognizer.Close()

	model, err := newModelClient(cfg, logger)
	if err != nil {
		mainLog.Error("language model", "error", err)
		os.Exit(1)
	}
	defer model.Close()

	synth := tts.NewPiper(
		tts.WithBinary(cfg.Synthesis.PiperBin),
		tts.WithModel(cfg.Synthesis.PiperModel),
		tts.WithTimeout(cfg.Synthesis.Timeout),
		tts.WithLogger(logger),
	)
	defer synth.Close()

	hub := events.NewHub(logger)
	go hub.Run()

	m := metrics.New()
	engine := conversation.NewEngine(model, logger)

	orch, err := orchestrator.New(orchestrator.Config{
		Transcoder:        transcoder,
		Recognizer:        recognizer,
		Engine:            engine,
		Registry:          registry,
		Synth:             synth,
		Events:            hub,
		Metrics:           m,
		Logger:            logger,
		TranscodeTimeout:  cfg.Transcoder.Timeout,
		TranscribeTimeout: cfg.Transcription.Timeout,
		GenerateTimeout:   cfg.LLM.Timeout,
		SynthesizeTimeout: cfg.Synthesis.Timeout,
	})
	if err != nil {
		mainLog.Error("orchestrator", "error", err)
		os.Exit(1)
	}

	aggregator := health.New(transcoder, synth, model, 3*time.Second, logger)

	// Log the starting state once so a degraded boot is visible.
	snap := aggregator.Probe(context.Background())
	mainLog.Info("startup health",
		"status", snap.Status,
		"transcoder", snap.Details.Transcoder.Available,
		"synthesizer", snap.Details.Synthesizer.BinaryAvailable && snap.Details.Synthesizer.ModelAvailable,
		"llm", snap.Details.LLM.Available,
	)

	srv, err := server.New(server.Config{
		Orchestrator: orch,
		Registry:     registry,
		Health:       aggregator,
		Hub:          hub,
		Transcoder:   transcoder,
		Recognizer:   recognizer,
		LLM:          model,
		Synth:        synth,
		Metrics:      m,
		Logger:       logger,
		BodyLimitMB:  cfg.Server.BodyLimitMB,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})
	if err != nil {
		mainLog.Error("server", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		mainLog.Info("shutting down", "signal", sig.String())
		if err := srv.Shutdown(); err != nil {
			mainLog.Error("shutdown", "error", err)
		}
	}()

	mainLog.Info("sola voice service starting",
		"addr", cfg.Server.Address,
		"roles", registry.Len(),
		"default_role", registry.DefaultRoleID(),
		"llm_provider", cfg.LLM.Provider,
		"llm_model", cfg.LLM.Model,
	)
	if err := srv.Listen(cfg.Server.Address); err != nil {
		mainLog.Error("listen", "error", err)
		os.Exit(1)
	}
	mainLog.Info("goodbye")
}

// loadRegistry uses the built-in persona library unless a roles file
// is configured.
func loadRegistry(cfg *config.Config) (*roles.Registry, error) {
	if cfg.Roles.File != "" {
		return roles.LoadFile(cfg.Roles.File)
	}
	return roles.DefaultRegistry(), nil
}

// newModelClient constructs the configured language model backend.
func newModelClient(cfg *config.Config, logger *slog.Logger) (llm.Client, error) {
	opts := []llm.Option{
		llm.WithHost(cfg.LLM.Host),
		llm.WithModel(cfg.LLM.Model),
		llm.WithTimeout(cfg.LLM.Timeout),
		llm.WithLogger(logger),
	}
	switch cfg.LLM.Provider {
	case "openai":
		opts = append(opts, llm.WithAPIKey(cfg.LLM.APIKey))
		return llm.NewOpenAI(opts...)
	default:
		return llm.NewOllama(opts...)
	}
}
