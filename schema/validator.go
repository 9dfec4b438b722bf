// Package payloadschema validates inbound post events against the v1
// payload contract. Validation is structural plus a few semantic checks;
// whether an event is worth processing (empty text, ad filter) is decided
// downstream.
package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed event.schema.json
var eventSchemaJSON string

// Event is the validated inbound payload. Text may be blank; blank events
// are accepted and dropped by the pipeline, not rejected at the edge.
type Event struct {
	PayloadVersion string  `json:"payload_version"`
	SourceName     string  `json:"source_name"`
	SourceID       *int64  `json:"source_id,omitempty"`
	MessageID      int64   `json:"message_id"`
	Text           string  `json:"text"`
	CreatedAt      *string `json:"created_at,omitempty"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

func ValidateEventPayload(payload json.RawMessage) (*Event, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var event Event
	if err := json.Unmarshal(normalized, &event); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := validateSemantics(&event); err != nil {
		return nil, err
	}

	return &event, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("event.schema.json", strings.NewReader(eventSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("event.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func validateSemantics(event *Event) error {
	if event == nil {
		return fmt.Errorf("payload is nil")
	}

	if strings.TrimSpace(event.PayloadVersion) != "v1" {
		return fmt.Errorf("payload_version must be v1")
	}
	if strings.TrimSpace(event.SourceName) == "" {
		return fmt.Errorf("source_name must not be empty")
	}
	if event.MessageID <= 0 {
		return fmt.Errorf("message_id must be positive")
	}
	if event.SourceID != nil && *event.SourceID <= 0 {
		return fmt.Errorf("source_id must be positive when present")
	}
	if event.CreatedAt != nil {
		if _, err := time.Parse(time.RFC3339, strings.TrimSpace(*event.CreatedAt)); err != nil {
			return fmt.Errorf("created_at must be RFC3339: %w", err)
		}
	}

	return nil
}
