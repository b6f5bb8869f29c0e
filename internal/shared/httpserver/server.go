package httpserver

import (
	"context"
	"time"

	"github.com/cristianortiz/evauction/internal/shared/logger"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// shutdownTimeout bounds how long in flight requests get once shutdown starts
const shutdownTimeout = 5 * time.Second

type Server struct {
	app *fiber.App
}

var log = logger.GetLogger()

func NewServer() *Server {
	app := fiber.New(fiber.Config{
		AppName:               "evauction",
		DisableStartupMessage: true,
	})

	// logging middleware
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Info("HTTP request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("remote_addr", c.IP()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
		)
		return err
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	return &Server{app: app}
}

// App exposes the router so modules can mount their routes.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	go func() {
		<-ctx.Done()
		log.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("HTTP server started", zap.String("addr", addr))
	return s.app.Listen(addr)
}
