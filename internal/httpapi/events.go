package httpapi

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/usrssssx/cannibal-ai/internal/pipeline"
	payloadschema "github.com/usrssssx/cannibal-ai/schema"
)

// Payloads are short channel posts; anything larger than this is junk.
const maxEventBodyBytes = 64 * 1024

type ingestAccepted struct {
	Accepted bool `json:"accepted"`
}

// handleIngestEvent validates one event payload and hands it to the worker
// pool. Screened-out posts still get a 202: the drop is the pipeline's
// business, not the producer's.
func (s *Server) handleIngestEvent(c echo.Context) error {
	if s.intake == nil {
		return internalError(c, "Ingestion is not available")
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxEventBodyBytes))
	if err != nil {
		return failValidation(c, map[string]string{"body": "could not read request body"})
	}

	event, err := payloadschema.ValidateEventPayload(body)
	if err != nil {
		return failValidation(c, map[string]string{"payload": err.Error()})
	}

	candidate := pipeline.Event{
		SourceName: strings.TrimSpace(event.SourceName),
		PlatformID: event.SourceID,
		MessageID:  event.MessageID,
		Text:       event.Text,
	}

	accepted, ok := s.intake.Accept(candidate)
	if !ok {
		return successWithStatus(c, http.StatusAccepted, ingestAccepted{Accepted: true})
	}

	if !s.intake.Enqueue(c.Request().Context(), accepted) {
		return fail(c, http.StatusServiceUnavailable, "Ingestion queue is unavailable", nil)
	}

	if keyID, ok := keyIDFromContext(c); ok {
		s.logger.Debug().
			Int64("key_id", keyID).
			Str("source", accepted.SourceName).
			Int64("message_id", accepted.MessageID).
			Msg("event queued")
	}

	return successWithStatus(c, http.StatusAccepted, ingestAccepted{Accepted: true})
}
