package httpapi

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/usrssssx/cannibal-ai/internal/db"
	"github.com/usrssssx/cannibal-ai/internal/reader"
)

const (
	defaultLinkPreviewMaxChars = 1000
	minLinkPreviewMaxChars     = 200
	maxLinkPreviewMaxChars     = 4000
)

type linkPreviewResponse struct {
	PostUUID     string  `json:"post_uuid"`
	URL          *string `json:"url,omitempty"`
	PreviewText  string  `json:"preview_text"`
	Source       string  `json:"source"`
	CharCount    int     `json:"char_count"`
	Truncated    bool    `json:"truncated"`
	PreviewError *string `json:"preview_error,omitempty"`
}

// handleLinkPreview resolves the first link in a post into readable text.
// Posts without a link, and links that cannot be fetched, fall back to the
// post body so the endpoint always has something to show.
func (s *Server) handleLinkPreview(c echo.Context) error {
	postUUID := strings.TrimSpace(c.Param("post_uuid"))
	if postUUID == "" {
		return failValidation(c, map[string]string{"post_uuid": "is required"})
	}

	maxChars, err := parsePositiveInt(
		c.QueryParam("max_chars"),
		defaultLinkPreviewMaxChars,
		minLinkPreviewMaxChars,
		maxLinkPreviewMaxChars,
	)
	if err != nil {
		return failValidation(c, map[string]string{"max_chars": err.Error()})
	}

	record, err := s.dataStore().GetPostByUUID(c.Request().Context(), postUUID)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return failNotFound(c, "Post not found")
		}
		s.logger.Error().Err(err).Str("post_uuid", postUUID).Msg("query post for preview failed")
		return internalError(c, "Failed to load post")
	}

	resp := s.buildLinkPreview(c.Request().Context(), record, maxChars)
	return success(c, resp)
}

func (s *Server) buildLinkPreview(ctx context.Context, record *db.PostRecord, maxChars int) *linkPreviewResponse {
	previewRaw := record.Text
	source := "post_text"

	var pageURL *string
	var previewErr error
	if link, found := reader.ExtractFirstURL(record.Text); found {
		linkCopy := link
		pageURL = &linkCopy

		text, err := reader.FetchText(ctx, link, "")
		if err == nil && strings.TrimSpace(text) != "" {
			previewRaw = text
			source = "reader"
		} else {
			previewErr = err
		}
	}

	previewText, truncated := reader.TruncateText(previewRaw, maxChars)
	resp := &linkPreviewResponse{
		PostUUID:    record.PostUUID,
		URL:         pageURL,
		PreviewText: previewText,
		Source:      source,
		CharCount:   utf8.RuneCountInString(previewText),
		Truncated:   truncated,
	}
	if previewErr != nil {
		msg := previewErr.Error()
		resp.PreviewError = &msg
		s.logger.Warn().
			Err(previewErr).
			Str("post_uuid", record.PostUUID).
			Str("url", *pageURL).
			Msg("link preview fallback used")
	}
	return resp
}
