package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"voicetranslate/internal/pkg/voicetranslate/cloner"
	"voicetranslate/internal/pkg/voicetranslate/config"
	"voicetranslate/internal/pkg/voicetranslate/server"
	"voicetranslate/internal/pkg/voicetranslate/session"
	"voicetranslate/internal/pkg/voicetranslate/translator/m2m"

	_ "voicetranslate/internal/pkg/voicetranslate/backends/mock"
	_ "voicetranslate/internal/pkg/voicetranslate/backends/openvoice"
)

func main() {
	fmt.Fprintf(os.Stderr, "voicetranslate %s\n", Version)

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.LoadAndParse(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse configuration")
	}

	if err := setupLogging(cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to setup logging")
	}

	log.Debug().
		Str("listen", cfg.ListenAddr).
		Str("backend", cfg.Backend()).
		Bool("gpu", cfg.UseGPU).
		Int("sample_rate", cfg.SampleRate).
		Msg("Configuration loaded")

	for _, dir := range []string{cfg.SamplesDir, cfg.OutputsDir, filepath.Join(cfg.ModelsDir, "checkpoints")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("Failed to create directory")
		}
	}

	tr := m2m.New(m2m.Config{
		ModelsDir:         cfg.ModelsDir,
		MaxSequenceLength: cfg.MaxSequenceLength,
		BatchSize:         cfg.BatchSize,
		UseGPU:            cfg.UseGPU,
	})
	// A translation model that cannot load aborts startup; per-session
	// failures later never do.
	if err := tr.Probe(); err != nil {
		log.Fatal().Err(err).Msg("Translation model unavailable")
	}
	defer tr.Close()

	log.Info().Str("backend", cfg.Backend()).Msg("Loading voice cloning backend...")
	cl, err := cloner.New(cfg.Backend(), cloner.Config{
		ModelsDir:  cfg.ModelsDir,
		SampleRate: cfg.SampleRate,
		MaxSamples: cfg.MaxVoiceSamples,
		UseGPU:     cfg.UseGPU,
	})
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Backend()).Msg("Failed to load cloning backend")
	}
	defer cl.Close()

	info := cl.Info()
	log.Debug().Str("cloner", info.Name).Int("sample_rate", info.SampleRate).Msg("Cloning backend loaded")

	store := session.NewStore(session.DefaultTTL)
	defer store.Close()

	srv := server.New(cfg, cl, tr, store, log.Logger)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("Listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	case <-ctx.Done():
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Shutdown failed")
		}
	}
}

func setupLogging(cfg *config.Config) error {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		log.Logger = zerolog.New(f).With().Timestamp().Logger()
	}

	return nil
}
