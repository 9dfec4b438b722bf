// Package httpapi serves the ingestion endpoint and the read-only views
// over stored posts. Producers push events here; everything else is for
// operators poking at the pipeline.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/usrssssx/cannibal-ai/internal/db"
	"github.com/usrssssx/cannibal-ai/internal/globaltime"
	"github.com/usrssssx/cannibal-ai/internal/pipeline"
)

const (
	defaultPageSize = 25
	maxPageSize     = 200
)

type Options struct {
	Addr            string
	RequireAPIKey   bool
	AllowedOrigins  []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Intake is the slice of the pipeline the ingestion endpoint needs: the
// pre-queue screen and the blocking enqueue.
type Intake interface {
	Accept(event pipeline.Event) (pipeline.Event, bool)
	Enqueue(ctx context.Context, event pipeline.Event) bool
}

type dataStore interface {
	GetIngestKeyByID(ctx context.Context, keyID int64) (*db.IngestKeyRecord, error)
	TouchIngestKey(ctx context.Context, keyID int64) error
	ListPosts(ctx context.Context, opts db.PostListOptions) ([]db.PostRecord, error)
	GetPostByUUID(ctx context.Context, postUUID string) (*db.PostRecord, error)
	ListSources(ctx context.Context) ([]db.SourceSummary, error)
	QueryPipelineStats(ctx context.Context, dayStart, dayEnd time.Time) (*db.PipelineStats, error)
}

type Server struct {
	pool   *db.Pool
	store  dataStore
	intake Intake
	logger zerolog.Logger
	opts   Options
}

func NewServer(pool *db.Pool, intake Intake, logger zerolog.Logger, opts Options) *Server {
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		addr = ":8080"
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	origins := make([]string, 0, len(opts.AllowedOrigins))
	for _, origin := range opts.AllowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &Server{
		pool:   pool,
		intake: intake,
		logger: logger,
		opts: Options{
			Addr:            addr,
			RequireAPIKey:   opts.RequireAPIKey,
			AllowedOrigins:  origins,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
	}
}

func (s *Server) dataStore() dataStore {
	if s == nil {
		return nil
	}
	if s.store != nil {
		return s.store
	}
	if s.pool == nil {
		return nil
	}
	return s.pool
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.dataStore() == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.opts.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", apiKeyHeader},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.POST("/events", s.handleIngestEvent, s.requireAPIKey())
	api.GET("/posts", s.handleListPosts)
	api.GET("/posts/:post_uuid", s.handlePostDetail)
	api.GET("/posts/:post_uuid/link-preview", s.handleLinkPreview)
	api.GET("/sources", s.handleListSources)
	api.GET("/stats", s.handlePipelineStats)

	httpServer := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", s.opts.Addr).Msg("ingestion api started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("ingestion api stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "cannibal-ai",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleListSources(c echo.Context) error {
	rows, err := s.dataStore().ListSources(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query sources failed")
		return internalError(c, "Failed to load sources")
	}
	return success(c, map[string]any{
		"items": rows,
	})
}

func (s *Server) handlePipelineStats(c echo.Context) error {
	dayStart := globaltime.UTC().Truncate(24 * time.Hour)
	if raw := strings.TrimSpace(c.QueryParam("day")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return failValidation(c, map[string]string{"day": "must be YYYY-MM-DD"})
		}
		dayStart = parsed.UTC()
	}
	dayEnd := dayStart.AddDate(0, 0, 1)

	stats, err := s.dataStore().QueryPipelineStats(c.Request().Context(), dayStart, dayEnd)
	if err != nil {
		s.logger.Error().Err(err).Msg("query pipeline stats failed")
		return internalError(c, "Failed to load stats")
	}
	return success(c, stats)
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}

func parseBoolFilter(raw string) (*bool, error) {
	trimmed := strings.TrimSpace(strings.ToLower(raw))
	if trimmed == "" {
		return nil, nil
	}
	switch trimmed {
	case "true", "1", "yes":
		value := true
		return &value, nil
	case "false", "0", "no":
		value := false
		return &value, nil
	}
	return nil, fmt.Errorf("must be true or false")
}
