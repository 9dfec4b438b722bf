package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/usrssssx/cannibal-ai/internal/cli"
	"github.com/usrssssx/cannibal-ai/internal/config"
	"github.com/usrssssx/cannibal-ai/internal/db"
	"github.com/usrssssx/cannibal-ai/internal/dedup"
	"github.com/usrssssx/cannibal-ai/internal/httpapi"
	"github.com/usrssssx/cannibal-ai/internal/llm"
	"github.com/usrssssx/cannibal-ai/internal/logging"
	"github.com/usrssssx/cannibal-ai/internal/pipeline"
	"github.com/usrssssx/cannibal-ai/internal/sink"
	"github.com/usrssssx/cannibal-ai/internal/styleprofile"
	"github.com/usrssssx/cannibal-ai/internal/vector"
)

// runtimeIntake pairs the pre-queue screen with the blocking enqueue so the
// HTTP layer sees a single intake.
type runtimeIntake struct {
	*pipeline.Service
	*pipeline.Runner
}

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	addr := fs.String("addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	readTimeout := fs.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	writeTimeout := fs.Duration("write-timeout", 30*time.Second, "HTTP write timeout")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")
	probeTimeout := fs.Duration("probe-timeout", 15*time.Second, "Startup readiness probe timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "run does not accept positional arguments")
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	pool, err := db.NewPool(dbCtx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("run failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	llmClient, err := buildLLMClient(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Str("provider", cfg.LLMProvider).Msg("llm client setup failed")
		fmt.Fprintf(os.Stderr, "Failed to configure LLM provider: %v\n", err)
		return 1
	}
	if err := probeReady(*probeTimeout, llmClient.Ready); err != nil {
		logger.Error().Err(err).Str("provider", cfg.LLMProvider).Msg("llm readiness probe failed")
		fmt.Fprintf(os.Stderr, "LLM provider is not ready: %v\n", err)
		return 1
	}

	index := buildVectorClient(cfg)
	if err := probeReady(*probeTimeout, index.Ready); err != nil {
		logger.Error().Err(err).Str("url", cfg.ChromaURL).Msg("vector index readiness probe failed")
		fmt.Fprintf(os.Stderr, "Vector index is not ready: %v\n", err)
		return 1
	}

	checker := dedup.New(llmClient, index, dedup.Options{
		Threshold: cfg.DedupThreshold,
		Window:    cfg.DedupWindow,
		TopK:      cfg.DedupTopK,
	}, logger)

	out, err := sink.Open(cfg.OutputPath)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.OutputPath).Msg("run failed to open output sink")
		fmt.Fprintf(os.Stderr, "Failed to open output file: %v\n", err)
		return 1
	}
	defer func() {
		if err := out.Close(); err != nil {
			logger.Warn().Err(err).Str("path", out.Path()).Msg("output sink close failed")
		}
	}()

	svc, err := pipeline.NewService(pipeline.ServiceOptions{
		Store:         pool,
		Checker:       checker,
		Rewriter:      llmClient,
		Index:         index,
		Sink:          out,
		FilteredTerms: cfg.FilteredTermsList(),
		MaxChars:      cfg.MaxChars,
		Logger:        logger,
	})
	if err != nil {
		logger.Error().Err(err).Msg("run failed to assemble pipeline")
		fmt.Fprintf(os.Stderr, "Failed to assemble pipeline: %v\n", err)
		return 1
	}

	builder := styleprofile.NewBuilder(pool, logger)
	loadProfiles(context.Background(), svc, builder, cfg, logger)

	logger.Info().
		Str("provider", llmClient.Provider()).
		Str("collection", cfg.ChromaCollection).
		Str("output", out.Path()).
		Msg("pipeline ready")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		cancel()
	}()

	runner := pipeline.NewRunner(svc, cfg.QueueSize, cfg.Workers, logger)
	runner.Start(ctx)

	var background sync.WaitGroup
	if cfg.ProfileRefreshInterval > 0 {
		background.Add(1)
		go func() {
			defer background.Done()
			refreshProfiles(ctx, svc, builder, cfg, logger)
		}()
	}

	listenAddr := strings.TrimSpace(*addr)
	if listenAddr == "" {
		listenAddr = cfg.HTTPAddr
	}

	srv := httpapi.NewServer(pool, runtimeIntake{svc, runner}, logger, httpapi.Options{
		Addr:            listenAddr,
		RequireAPIKey:   cfg.RequireAPIKey,
		AllowedOrigins:  cfg.CORSAllowedOriginsList(),
		ReadTimeout:     *readTimeout,
		WriteTimeout:    *writeTimeout,
		ShutdownTimeout: *shutdownTimeout,
	})

	serveErr := srv.Start(ctx)

	// Workers drain before the sink and pool close behind them.
	cancel()
	runner.Wait()
	background.Wait()

	if serveErr != nil {
		logger.Error().Err(serveErr).Str("addr", listenAddr).Msg("server failed")
		fmt.Fprintf(os.Stderr, "Server failed: %v\n", serveErr)
		return 1
	}

	logger.Info().Msg("ingestion daemon stopped")
	return 0
}

func buildLLMClient(cfg *config.Config, logger zerolog.Logger) (*llm.Client, error) {
	retry := llm.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.RetryMaxAttempts
	retry.BaseDelay = cfg.RetryBaseDelay
	retry.MaxDelay = cfg.RetryMaxDelay

	return llm.New(llm.Options{
		Provider: cfg.LLMProvider,
		OpenAI: llm.OpenAIOptions{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.OpenAIModel,
			EmbedModel: cfg.OpenAIEmbdModel,
		},
		Ollama: llm.OllamaOptions{
			BaseURL:    cfg.OllamaBaseURL,
			Model:      cfg.OllamaModel,
			EmbedModel: cfg.OllamaEmbdModel,
		},
		Retry:  retry,
		Logger: logger,
	})
}

func buildVectorClient(cfg *config.Config) *vector.Client {
	return vector.New(vector.Options{
		BaseURL:    cfg.ChromaURL,
		Collection: cfg.ChromaCollection,
	})
}

func probeReady(timeout time.Duration, probe func(context.Context) error) error {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return probe(ctx)
}

// loadProfiles rebuilds the style lookup once. A failed build never stops
// the daemon; rewriting falls back to built-in examples.
func loadProfiles(ctx context.Context, svc *pipeline.Service, builder *styleprofile.Builder, cfg *config.Config, logger zerolog.Logger) {
	buildCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	lookup, err := builder.Build(buildCtx, nil, cfg.ProfileSampleLimit)
	if err != nil {
		logger.Warn().Err(err).Msg("style profile build failed")
		return
	}

	svc.SetProfiles(lookup)
	logger.Info().Int("profiles", lookup.Len()).Msg("style profiles loaded")
}

func refreshProfiles(ctx context.Context, svc *pipeline.Service, builder *styleprofile.Builder, cfg *config.Config, logger zerolog.Logger) {
	ticker := time.NewTicker(cfg.ProfileRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			loadProfiles(ctx, svc, builder, cfg, logger)
		}
	}
}
