package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/usrssssx/cannibal-ai/internal/cli"
)

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	day := fs.String("day", "", "UTC day to report as YYYY-MM-DD (default: today)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "stats does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	dayStart := defaultUTCDay()
	if strings.TrimSpace(*day) != "" {
		dayStart, err = parseUTCDate(*day)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid day: %v\n", err)
			return 2
		}
	}
	_, dayEnd := utcDayBounds(dayStart)

	ctx, cancel, pool, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	stats, err := pool.QueryPipelineStats(ctx, dayStart, dayEnd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query pipeline stats: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(stats); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	sourceRows := make([][]string, 0, len(stats.Sources)+1)
	for _, row := range stats.Sources {
		sourceRows = append(sourceRows, []string{
			row.Source,
			fmt.Sprintf("%d", row.Posts),
			fmt.Sprintf("%d", row.Duplicates),
			fmt.Sprintf("%d", row.Rewritten),
			fmt.Sprintf("%d", row.Pending),
		})
	}
	sourceRows = append(sourceRows, []string{
		"TOTAL",
		fmt.Sprintf("%d", stats.Totals.Posts),
		fmt.Sprintf("%d", stats.Totals.Duplicates),
		fmt.Sprintf("%d", stats.Totals.Rewritten),
		fmt.Sprintf("%d", stats.Totals.Pending),
	})

	if err := writeTable([]string{"source", "posts", "duplicates", "rewritten", "pending"}, sourceRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render source table: %v\n", err)
		return 1
	}

	fmt.Println()
	throughputRows := [][]string{
		{"day", stats.Day},
		{"posts_ingested", fmt.Sprintf("%d", stats.Throughput.PostsIngestedToday)},
		{"duplicates", fmt.Sprintf("%d", stats.Throughput.DuplicatesToday)},
		{"posts_rewritten", fmt.Sprintf("%d", stats.Throughput.PostsRewrittenToday)},
		{"pending_unprocessed", fmt.Sprintf("%d", stats.Throughput.PendingUnprocessed)},
	}
	if err := writeTable([]string{"metric", "value"}, throughputRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render throughput table: %v\n", err)
		return 1
	}

	return 0
}
