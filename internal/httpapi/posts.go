package httpapi

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/usrssssx/cannibal-ai/internal/db"
)

func (s *Server) handleListPosts(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultPageSize, 1, maxPageSize)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	processed, err := parseBoolFilter(c.QueryParam("processed"))
	if err != nil {
		return failValidation(c, map[string]string{"processed": err.Error()})
	}
	duplicate, err := parseBoolFilter(c.QueryParam("duplicate"))
	if err != nil {
		return failValidation(c, map[string]string{"duplicate": err.Error()})
	}

	opts := db.PostListOptions{
		SourceName: strings.TrimSpace(c.QueryParam("source")),
		Processed:  processed,
		Duplicate:  duplicate,
		Limit:      limit,
	}

	rows, err := s.dataStore().ListPosts(c.Request().Context(), opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("query posts failed")
		return internalError(c, "Failed to load posts")
	}

	return success(c, map[string]any{
		"items": rows,
		"filters": map[string]any{
			"source":    opts.SourceName,
			"processed": processed,
			"duplicate": duplicate,
		},
		"limit": limit,
	})
}

func (s *Server) handlePostDetail(c echo.Context) error {
	postUUID := strings.TrimSpace(c.Param("post_uuid"))
	if postUUID == "" {
		return failValidation(c, map[string]string{"post_uuid": "is required"})
	}

	record, err := s.dataStore().GetPostByUUID(c.Request().Context(), postUUID)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return failNotFound(c, "Post not found")
		}
		s.logger.Error().Err(err).Str("post_uuid", postUUID).Msg("query post failed")
		return internalError(c, "Failed to load post")
	}

	return success(c, record)
}
