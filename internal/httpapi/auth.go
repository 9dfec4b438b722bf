package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/usrssssx/cannibal-ai/internal/auth"
	"github.com/usrssssx/cannibal-ai/internal/db"
)

const apiKeyHeader = "X-API-Key"

// requireAPIKey guards the ingestion endpoint. Keys are presented as
// "<key_id>.<secret>" and checked against the stored bcrypt hash. The
// middleware passes everything through when key auth is disabled.
func (s *Server) requireAPIKey() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !s.opts.RequireAPIKey {
				return next(c)
			}
			if c == nil {
				return unauthorizedResponse(c)
			}

			raw := strings.TrimSpace(c.Request().Header.Get(apiKeyHeader))
			if raw == "" {
				return unauthorizedResponse(c)
			}

			keyID, secret, ok := auth.ParseKey(raw)
			if !ok {
				return unauthorizedResponse(c)
			}

			store := s.dataStore()
			if store == nil {
				return internalError(c, "Failed to authorize request")
			}

			record, err := store.GetIngestKeyByID(c.Request().Context(), keyID)
			if err != nil {
				if errors.Is(err, db.ErrNoRows) {
					return unauthorizedResponse(c)
				}
				s.logger.Error().Err(err).Int64("key_id", keyID).Msg("ingest key lookup failed")
				return internalError(c, "Failed to authorize request")
			}

			if !auth.VerifySecret(secret, record.SecretHash) {
				return unauthorizedResponse(c)
			}

			if err := store.TouchIngestKey(c.Request().Context(), record.KeyID); err != nil {
				s.logger.Warn().Err(err).Int64("key_id", record.KeyID).Msg("touch ingest key failed")
			}

			c.Set("auth.key_id", record.KeyID)
			return next(c)
		}
	}
}

func unauthorizedResponse(c echo.Context) error {
	if c == nil {
		return fmt.Errorf("authentication required")
	}
	return fail(c, http.StatusUnauthorized, "A valid API key is required", nil)
}

func keyIDFromContext(c echo.Context) (int64, bool) {
	if c == nil {
		return 0, false
	}
	keyID, ok := c.Get("auth.key_id").(int64)
	return keyID, ok
}
