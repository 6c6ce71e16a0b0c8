// Package api serves the cura chat endpoint: it grounds a conversation on
// record snippets from the storage gateway and answers through the completion
// service.
package api

import (
	"context"
	"errors"
	"net"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/curavault/cura/pkg/gateway"
	"github.com/curavault/cura/pkg/llm"
	"github.com/curavault/cura/pkg/metrics"
)

// SnippetFetcher resolves content identifiers to snippets. It must not fail:
// identifiers that cannot be resolved are simply absent from the result.
type SnippetFetcher interface {
	Fetch(ctx context.Context, cids []string) []gateway.Snippet
}

// ReplyGenerator answers a conversation grounded on a rendered snippet block.
type ReplyGenerator interface {
	Generate(ctx context.Context, messages []llm.Message, account, block string) (string, error)
}

// Server is the chat API. It keeps no per-request state; everything it holds
// is fixed at construction and shared read-only by concurrent requests.
type Server struct {
	config    Config
	fetcher   SnippetFetcher
	generator ReplyGenerator
	metrics   *metrics.Metrics
	logger    *zap.Logger
	server    *fiber.App
}

// New creates a new Server.
func New(config Config, fetcher SnippetFetcher, generator ReplyGenerator, m *metrics.Metrics, logger *zap.Logger) (*Server, error) {
	if fetcher == nil || generator == nil {
		return nil, errors.New("api: fetcher and generator are required")
	}
	if m == nil {
		m = metrics.New()
	}

	s := &Server{
		config:    config,
		fetcher:   fetcher,
		generator: generator,
		metrics:   m,
		logger:    logger,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(s.accessLog)
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e any) {
			s.logger.Error("panic in request handler",
				zap.String("request_id", requestID(c)),
				zap.Any("panic", e),
				zap.Stack("stack"),
			)
		},
	}))
	// The endpoint is called from a browser front end on another origin.
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
	}))

	app.Post("/api/chat", s.handleChat)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))

	s.server = app
	return s, nil
}

// Run starts the server on the configured listening address.
func (s *Server) Run() error {
	s.logger.Info("starting chat server", zap.String("listen", s.config.ListenAddr))
	return s.server.Listen(s.config.ListenAddr)
}

// RunWithListener serves on an existing listener.
func (s *Server) RunWithListener(ln net.Listener) error {
	s.logger.Info("starting chat server", zap.String("listen", ln.Addr().String()))
	return s.server.Listener(ln)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown() error {
	return s.server.Shutdown()
}

// ShutdownWithContext is Shutdown bounded by ctx.
func (s *Server) ShutdownWithContext(ctx context.Context) error {
	return s.server.ShutdownWithContext(ctx)
}

// handleError is the last stop for errors returned by handlers and
// middleware, recovered panics included. Server errors never expose detail.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", requestID(c)),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: llm.ErrorChatFailed})
	}

	return c.Status(code).JSON(llm.ErrorResponse{Error: fe.Message})
}
