package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/usrssssx/cannibal-ai/internal/cli"
	"github.com/usrssssx/cannibal-ai/internal/config"
	"github.com/usrssssx/cannibal-ai/internal/db"
	"github.com/usrssssx/cannibal-ai/internal/logging"
)

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Second, "Per-check timeout")
	skipLLM := fs.Bool("skip-llm", false, "Skip the LLM provider probe")
	skipVector := fs.Bool("skip-vector", false, "Skip the vector index probe")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("health check failed")
		fmt.Fprintf(os.Stderr, "Health check failed: database: %v\n", err)
		return 1
	}
	defer pool.Close()
	fmt.Println("ok: database ping successful")

	if !*skipLLM {
		llmClient, err := buildLLMClient(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Health check failed: llm: %v\n", err)
			return 1
		}
		if err := probeReady(*timeout, llmClient.Ready); err != nil {
			logger.Error().Err(err).Str("provider", cfg.LLMProvider).Msg("health check failed")
			fmt.Fprintf(os.Stderr, "Health check failed: llm: %v\n", err)
			return 1
		}
		fmt.Printf("ok: llm provider %s ready\n", llmClient.Provider())
	}

	if !*skipVector {
		index := buildVectorClient(cfg)
		if err := probeReady(*timeout, index.Ready); err != nil {
			logger.Error().Err(err).Str("url", cfg.ChromaURL).Msg("health check failed")
			fmt.Fprintf(os.Stderr, "Health check failed: vector index: %v\n", err)
			return 1
		}
		fmt.Println("ok: vector index reachable")
	}

	logger.Info().
		Dur("timeout", *timeout).
		Msg("health check passed")
	return 0
}
