// Package server exposes the voice pipeline over HTTP. All endpoints are
// stateless: conversational context travels with each request.
package server

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/solavoice/go-sola/internal/events"
	"github.com/solavoice/go-sola/internal/metrics"
	"github.com/solavoice/go-sola/pkg/asr"
	"github.com/solavoice/go-sola/pkg/conversation"
	"github.com/solavoice/go-sola/pkg/health"
	"github.com/solavoice/go-sola/pkg/llm"
	"github.com/solavoice/go-sola/pkg/orchestrator"
	"github.com/solavoice/go-sola/pkg/roles"
	"github.com/solavoice/go-sola/pkg/transcode"
	"github.com/solavoice/go-sola/pkg/tts"
)

// Uploads are short voice clips; anything beyond this is rejected early.
const defaultBodyLimit = 25 * 1024 * 1024

// Config wires the HTTP surface to the pipeline components.
type Config struct {
	Orchestrator *orchestrator.Orchestrator
	Registry     *roles.Registry
	Health       *health.Aggregator
	Hub          *events.Hub

	// Direct component access for the single-step endpoints.
	Transcoder *transcode.Transcoder
	Recognizer asr.Recognizer
	LLM        llm.Client
	Synth      tts.Provider

	Metrics *metrics.Metrics
	Logger  *slog.Logger

	BodyLimitMB  int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the HTTP front of the voice service.
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger
}

// New builds the Fiber app with all routes registered.
func New(cfg Config) (*Server, error) {
	if cfg.Orchestrator == nil || cfg.Registry == nil {
		return nil, fmt.Errorf("server: orchestrator and registry are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "server"),
	}

	bodyLimit := defaultBodyLimit
	if cfg.BodyLimitMB > 0 {
		bodyLimit = cfg.BodyLimitMB * 1024 * 1024
	}

	app := fiber.New(fiber.Config{
		AppName:               "Sola Voice Service",
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
	})

	app.Use(cors.New())
	app.Use(s.requestID)
	app.Use(s.observe)

	app.Get("/health", s.handleHealth)
	app.Get("/roles", s.handleListRoles)
	app.Get("/roles/:role_id", s.handleGetRole)
	app.Post("/talk", s.handleTalk)
	app.Post("/roles/:role_id/skills/:skill_id", s.handleSkill)

	// Single-step endpoints for each pipeline stage.
	app.Post("/transcribe", s.handleTranscribe)
	app.Post("/chat", s.handleChat)
	app.Post("/speak", s.handleSpeak)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	if cfg.Hub != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws/events", websocket.New(s.handleEventsWS))
	}

	s.app = app
	return s, nil
}

// Listen starts serving on the given address and blocks.
func (s *Server) Listen(addr string) error {
	s.logger.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the underlying Fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// requestID tags each request, honoring an inbound X-Request-ID.
func (s *Server) requestID(c *fiber.Ctx) error {
	id := c.Get("X-Request-ID")
	if id == "" {
		id = uuid.NewString()
	}
	c.Locals("request_id", id)
	c.Set("X-Request-ID", id)
	return c.Next()
}

// observe records per-request metrics and an access log line.
func (s *Server) observe(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	route := c.Route().Path
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.HTTPRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		s.cfg.Metrics.HTTPRequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
	}
	s.logger.Debug("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", c.Locals("request_id"),
	)
	return err
}

// handleEventsWS attaches a websocket observer to the event hub.
func (s *Server) handleEventsWS(conn *websocket.Conn) {
	client := events.NewClient(s.cfg.Hub, conn)
	client.Run()
}

func requestIDFrom(c *fiber.Ctx) string {
	if id, ok := c.Locals("request_id").(string); ok {
		return id
	}
	return ""
}

// parseHistory decodes the optional conversation history field.
func parseHistory(raw string) ([]conversation.Turn, error) {
	if raw == "" {
		return nil, nil
	}
	var turns []conversation.Turn
	if err := sonic.Unmarshal([]byte(raw), &turns); err != nil {
		return nil, fmt.Errorf("invalid history: %w", err)
	}
	return turns, nil
}
