package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "run", "serve":
		return runDaemon(args[1:])
	case "backfill":
		return runBackfill(args[1:])
	case "profiles":
		return runProfiles(args[1:])
	case "stats":
		return runStats(args[1:])
	case "keys":
		return runKeys(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "cannibal CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  cannibal <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health    Verify database, LLM, and vector index connectivity")
	fmt.Fprintln(os.Stderr, "  run       Start the ingestion daemon (HTTP intake + worker pool)")
	fmt.Fprintln(os.Stderr, "  serve     Alias for run")
	fmt.Fprintln(os.Stderr, "  backfill  Load historical posts from a JSONL file or stdin")
	fmt.Fprintln(os.Stderr, "  profiles  Build and print per-source style profiles")
	fmt.Fprintln(os.Stderr, "  stats     Show today's pipeline counters")
	fmt.Fprintln(os.Stderr, "  keys      Manage ingest API keys (create, list, delete)")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"cannibal <command> -h\" for command-specific flags.")
}
