package app

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/usrssssx/cannibal-ai/internal/cli"
	"github.com/usrssssx/cannibal-ai/internal/config"
	"github.com/usrssssx/cannibal-ai/internal/db"
	"github.com/usrssssx/cannibal-ai/internal/llm"
	"github.com/usrssssx/cannibal-ai/internal/logging"
	"github.com/usrssssx/cannibal-ai/internal/pipeline"
	"github.com/usrssssx/cannibal-ai/internal/vector"
	payloadschema "github.com/usrssssx/cannibal-ai/schema"
)

// backfillResult counts per-line outcomes for the final report.
type backfillResult struct {
	Lines       int
	Loaded      int
	Existing    int
	Skipped     int
	Invalid     int
	Indexed     int
	IndexFailed int
}

// runBackfill loads historical posts from a JSONL stream so the dedup
// window and style profiles start warm. Posts are screened and stored the
// same way live traffic is, but never rewritten.
func runBackfill(args []string) int {
	fs := flag.NewFlagSet("backfill", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	filePath := fs.String("file", "", "JSONL file with event payloads (default: stdin)")
	sources := fs.String("sources", "", "Comma-separated source names to keep (default: all)")
	limit := fs.Int("limit", 200, "Maximum new posts to load per source (0 = no cap)")
	noEmbeddings := fs.Bool("no-embeddings", false, "Skip embedding and vector index writes")
	probeTimeout := fs.Duration("probe-timeout", 15*time.Second, "Readiness probe timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "backfill does not accept positional arguments")
		return 2
	}
	if *limit < 0 {
		fmt.Fprintln(os.Stderr, "--limit must be >= 0")
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
		logger.Error().Err(err).Msg("backfill failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	var (
		llmClient *llm.Client
		index     *vector.Client
	)
	if !*noEmbeddings {
		llmClient, err = buildLLMClient(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to configure LLM provider: %v\n", err)
			return 1
		}
		if err := probeReady(*probeTimeout, llmClient.Ready); err != nil {
			fmt.Fprintf(os.Stderr, "LLM provider is not ready: %v\n", err)
			return 1
		}
		index = buildVectorClient(cfg)
		if err := probeReady(*probeTimeout, index.Ready); err != nil {
			fmt.Fprintf(os.Stderr, "Vector index is not ready: %v\n", err)
			return 1
		}
	}

	var input io.Reader = os.Stdin
	inputLabel := "stdin"
	if path := strings.TrimSpace(*filePath); path != "" {
		file, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open input file: %v\n", err)
			return 1
		}
		defer file.Close()
		input = file
		inputLabel = path
	}

	keep := sourceNameSet(*sources)
	filters := pipeline.NormalizeFilters(cfg.FilteredTermsList())
	perSource := make(map[string]int)
	result := backfillResult{}

	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		result.Lines++

		event, err := payloadschema.ValidateEventPayload(json.RawMessage(line))
		if err != nil {
			result.Invalid++
			logger.Warn().Err(err).Int("line", lineNo).Msg("skipping invalid payload")
			continue
		}

		sourceName := strings.TrimSpace(event.SourceName)
		if keep != nil {
			if _, ok := keep[sourceName]; !ok {
				result.Skipped++
				continue
			}
		}
		if *limit > 0 && perSource[sourceName] >= *limit {
			result.Skipped++
			continue
		}

		text := event.Text
		if strings.TrimSpace(text) == "" {
			result.Skipped++
			continue
		}
		if term, ok := pipeline.MatchFilter(text, filters); ok {
			logger.Debug().Int("line", lineNo).Str("term", term).Msg("dropping filtered post")
			result.Skipped++
			continue
		}
		text = pipeline.TruncateRunes(text, cfg.MaxChars)

		record, created, err := pool.StoreOrFetch(ctx, sourceName, event.SourceID, event.MessageID, text)
		if err != nil {
			logger.Error().Err(err).Int("line", lineNo).Msg("backfill store failed")
			fmt.Fprintf(os.Stderr, "Backfill failed at line %d: %v\n", lineNo, err)
			return 1
		}
		if !created {
			result.Existing++
			continue
		}
		result.Loaded++
		perSource[sourceName]++

		if *noEmbeddings {
			continue
		}

		embedding, err := llmClient.Embed(ctx, text)
		if err != nil {
			result.IndexFailed++
			logger.Warn().Err(err).Int("line", lineNo).Msg("backfill embed failed")
			continue
		}

		metadata := vector.DocumentMetadata{
			Channel:   sourceName,
			MessageID: record.MessageID,
			CreatedAt: vector.UnixSeconds(payloadCreatedAt(event, record.CreatedAt)),
		}
		if err := index.Upsert(ctx, pipeline.DocumentID(record), embedding, text, metadata); err != nil {
			result.IndexFailed++
			logger.Warn().Err(err).Int("line", lineNo).Msg("backfill index write failed")
			continue
		}
		result.Indexed++
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", inputLabel, err)
		return 1
	}

	logger.Info().
		Str("input", inputLabel).
		Int("lines", result.Lines).
		Int("loaded", result.Loaded).
		Int("existing", result.Existing).
		Int("skipped", result.Skipped).
		Int("invalid", result.Invalid).
		Int("indexed", result.Indexed).
		Int("index_failed", result.IndexFailed).
		Msg("backfill completed")
	fmt.Printf(
		"backfill lines=%d loaded=%d existing=%d skipped=%d invalid=%d indexed=%d index_failed=%d\n",
		result.Lines,
		result.Loaded,
		result.Existing,
		result.Skipped,
		result.Invalid,
		result.Indexed,
		result.IndexFailed,
	)
	return 0
}

// payloadCreatedAt prefers the historical timestamp carried in the payload;
// without one the row's insert time stands in.
func payloadCreatedAt(event *payloadschema.Event, fallback time.Time) time.Time {
	if event == nil || event.CreatedAt == nil {
		return fallback
	}
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(*event.CreatedAt))
	if err != nil {
		return fallback
	}
	return ts.UTC()
}

func sourceNameSet(raw string) map[string]struct{} {
	parts := strings.Split(raw, ",")
	set := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			set[part] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}
