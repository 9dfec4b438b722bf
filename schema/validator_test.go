package payloadschema

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestValidateEventPayload_Valid(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source_name":"Tech Daily",
		"source_id":1001,
		"message_id":42,
		"text":"Новая версия вышла сегодня.",
		"created_at":"2026-02-14T10:00:00Z"
	}`)

	event, err := ValidateEventPayload(payload)
	if err != nil {
		t.Fatalf("expected payload to be valid, got error: %v", err)
	}

	if event.SourceName != "Tech Daily" {
		t.Fatalf("expected source_name=Tech Daily, got %q", event.SourceName)
	}
	if event.MessageID != 42 {
		t.Fatalf("expected message_id=42, got %d", event.MessageID)
	}
	if event.SourceID == nil || *event.SourceID != 1001 {
		t.Fatalf("expected source_id=1001, got %v", event.SourceID)
	}
}

func TestValidateEventPayload_BlankTextAllowed(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source_name":"Tech Daily",
		"message_id":43,
		"text":"   "
	}`)

	event, err := ValidateEventPayload(payload)
	if err != nil {
		t.Fatalf("expected blank text to pass validation, got error: %v", err)
	}
	if event.Text != "   " {
		t.Fatalf("expected text preserved, got %q", event.Text)
	}
}

func TestValidateEventPayload_MissingRequired(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source_name":"Tech Daily",
		"text":"missing message id"
	}`)

	_, err := ValidateEventPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for missing message_id")
	}
}

func TestValidateEventPayload_WhitespaceSourceName(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source_name":"  ",
		"message_id":44,
		"text":"body"
	}`)

	_, err := ValidateEventPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for whitespace-only source_name")
	}
	if !strings.Contains(err.Error(), "source_name must not be empty") {
		t.Fatalf("expected source_name semantic error, got: %v", err)
	}
}

func TestValidateEventPayload_NonPositiveMessageID(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source_name":"Tech Daily",
		"message_id":0,
		"text":"body"
	}`)

	_, err := ValidateEventPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for message_id=0")
	}
}

func TestValidateEventPayload_InvalidCreatedAt(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source_name":"Tech Daily",
		"message_id":45,
		"text":"body",
		"created_at":"not-a-timestamp"
	}`)

	_, err := ValidateEventPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for invalid created_at")
	}
}

func TestValidateEventPayload_UnknownField(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"source_name":"Tech Daily",
		"message_id":46,
		"text":"body",
		"channel":"extra"
	}`)

	_, err := ValidateEventPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for unknown field")
	}
}

func TestValidateEventPayload_TrailingContent(t *testing.T) {
	payload := json.RawMessage(`{"payload_version":"v1","source_name":"Tech Daily","message_id":47,"text":"body"} {}`)

	_, err := ValidateEventPayload(payload)
	if err == nil {
		t.Fatalf("expected validation to fail for trailing content")
	}
}
