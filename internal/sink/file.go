// Package sink appends rewritten posts to a plain text file. Records are
// written whole under a mutex so two workers can never interleave bodies.
package sink

import (
	"fmt"
	"os"
	"sync"
	"time"
)

type Writer struct {
	path string

	mu   sync.Mutex
	file *os.File
}

func Open(path string) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output sink %s: %w", path, err)
	}
	return &Writer{path: path, file: file}, nil
}

func (w *Writer) Path() string {
	if w == nil {
		return ""
	}
	return w.path
}

// Append writes one record:
//
//	[<ISO-8601 UTC timestamp>] <source display name> (<message id>)
//	<rewritten text>
//	---
//
// followed by a blank line.
func (w *Writer) Append(timestamp time.Time, sourceName string, messageID int64, rewritten string) error {
	if w == nil || w.file == nil {
		return fmt.Errorf("output sink is not initialized")
	}

	record := fmt.Sprintf(
		"[%s] %s (%d)\n%s\n---\n\n",
		timestamp.UTC().Format(time.RFC3339),
		sourceName,
		messageID,
		rewritten,
	)

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.WriteString(record); err != nil {
		return fmt.Errorf("append output record: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("sync output sink: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	if w == nil || w.file == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
