package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/usrssssx/cannibal-ai/internal/cli"
	"github.com/usrssssx/cannibal-ai/internal/config"
	"github.com/usrssssx/cannibal-ai/internal/db"
	"github.com/usrssssx/cannibal-ai/internal/logging"
	"github.com/usrssssx/cannibal-ai/internal/styleprofile"
)

func runProfiles(args []string) int {
	fs := flag.NewFlagSet("profiles", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	sources := fs.String("sources", "", "Comma-separated source names to profile (default: all)")
	sampleLimit := fs.Int("sample-limit", 0, "Recent posts per source (0 = PROFILE_SAMPLE_LIMIT)")
	full := fs.Bool("full", false, "Print full profiles instead of a one-line preview")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "profiles does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
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
		logger.Error().Err(err).Msg("profiles command failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	limit := *sampleLimit
	if limit <= 0 {
		limit = cfg.ProfileSampleLimit
	}

	var names []string
	if set := sourceNameSet(*sources); set != nil {
		names = make([]string, 0, len(set))
		for name := range set {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	builder := styleprofile.NewBuilder(pool, logger)
	lookup, err := builder.Build(ctx, names, limit)
	if err != nil {
		logger.Error().Err(err).Msg("style profile build failed")
		fmt.Fprintf(os.Stderr, "Failed to build style profiles: %v\n", err)
		return 1
	}

	entries := lookup.Entries()

	if outputFormat == outputFormatJSON {
		if err := printJSON(entries); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	if len(entries) == 0 {
		fmt.Println("No sources have enough posts for a profile yet.")
		return 0
	}

	if *full {
		for _, entry := range entries {
			fmt.Printf("## %s\n%s\n\n", entry.Name, entry.Profile)
		}
		return 0
	}

	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		preview := strings.Join(strings.Fields(entry.Profile), " ")
		rows = append(rows, []string{
			entry.Name,
			fmt.Sprintf("%d", utf8.RuneCountInString(entry.Profile)),
			truncateForTable(preview, 80),
		})
	}
	if err := writeTable([]string{"source", "chars", "profile"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render profile table: %v\n", err)
		return 1
	}

	return 0
}
