package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/usrssssx/cannibal-ai/internal/auth"
	"github.com/usrssssx/cannibal-ai/internal/cli"
	"github.com/usrssssx/cannibal-ai/internal/db"
)

func runKeys(args []string) int {
	if len(args) == 0 {
		printKeysUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printKeysUsage()
		return 0
	case "create":
		return runKeysCreate(args[1:])
	case "list":
		return runKeysList(args[1:])
	case "delete":
		return runKeysDelete(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown keys command: %s\n\n", args[0])
		printKeysUsage()
		return 2
	}
}

func printKeysUsage() {
	fmt.Fprintln(os.Stderr, "Usage: cannibal keys <create|list|delete> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "  create --name <name>   Mint a new ingest API key")
	fmt.Fprintln(os.Stderr, "  list                   List keys (secrets are never shown)")
	fmt.Fprintln(os.Stderr, "  delete --id <key_id>   Revoke a key")
}

func runKeysCreate(args []string) int {
	fs := flag.NewFlagSet("keys create", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 15*time.Second, "Command timeout")
	name := fs.String("name", "", "Key holder name, e.g. the producer service")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*name) == "" {
		fmt.Fprintln(os.Stderr, "--name is required")
		return 2
	}

	secret, err := auth.GenerateSecret()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate secret: %v\n", err)
		return 1
	}
	secretHash, err := auth.HashSecret(secret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash secret: %v\n", err)
		return 1
	}

	ctx, cancel, pool, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	record, err := pool.CreateIngestKey(ctx, strings.TrimSpace(*name), secretHash)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create ingest key: %v\n", err)
		return 1
	}

	fmt.Printf("key_id=%d name=%s created_at=%s\n", record.KeyID, record.Name, formatUTCTimestamp(record.CreatedAt))
	fmt.Printf("api_key=%s\n", auth.FormatKey(record.KeyID, secret))
	fmt.Println("Store the api_key now; the secret cannot be shown again.")
	return 0
}

func runKeysList(args []string) int {
	fs := flag.NewFlagSet("keys list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 15*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel, pool, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	keys, err := pool.ListIngestKeys(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list ingest keys: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(keys); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{
			fmt.Sprintf("%d", key.KeyID),
			key.Name,
			formatUTCTimestamp(key.CreatedAt),
			formatUTCTimestampPtr(key.LastUsedAt),
		})
	}
	if err := writeTable([]string{"key_id", "name", "created_at", "last_used_at"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render key table: %v\n", err)
		return 1
	}

	return 0
}

func runKeysDelete(args []string) int {
	fs := flag.NewFlagSet("keys delete", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 15*time.Second, "Command timeout")
	keyID := fs.Int64("id", 0, "Key id to revoke")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *keyID <= 0 {
		fmt.Fprintln(os.Stderr, "--id must be a positive key id")
		return 2
	}

	ctx, cancel, pool, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	if err := pool.DeleteIngestKey(ctx, *keyID); err != nil {
		if db.IsNoRows(err) {
			fmt.Fprintf(os.Stderr, "No ingest key with id %d\n", *keyID)
			return 1
		}
		fmt.Fprintf(os.Stderr, "Failed to delete ingest key: %v\n", err)
		return 1
	}

	fmt.Printf("deleted key_id=%d\n", *keyID)
	return 0
}
