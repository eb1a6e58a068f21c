// Package devcms is a local stand-in for the headless CMS. It serves the
// subset of the Prismic REST API the blog uses from a SQLite database filled
// by importing Markdown files.
package devcms

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/caarlos0/env/v11"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Config holds the development CMS settings.
type Config struct {
	Addr        string `env:"DEVCMS_ADDR" envDefault:":4000"`
	DBPath      string `env:"DEVCMS_DB" envDefault:"data/devcms.db"`
	ContentDir  string `env:"DEVCMS_CONTENT" envDefault:"content"`
	MediaDir    string `env:"DEVCMS_MEDIA" envDefault:"data/media"`
	PublicURL   string `env:"DEVCMS_PUBLIC_URL" envDefault:"http://localhost:4000"` // base of media URLs
	FrontendURL string `env:"DEVCMS_FRONTEND_URL" envDefault:"http://localhost:3000"`
	AccessToken string `env:"DEVCMS_ACCESS_TOKEN"`
}

// LoadConfig reads the development CMS configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing devcms config: %w", err)
	}
	return cfg, nil
}

// Server serves the CMS API and imported media.
type Server struct {
	Echo   *echo.Echo
	cfg    Config
	store  *Store
	logger *slog.Logger
}

// NewServer wires the API routes over store.
func NewServer(cfg Config, store *Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{Echo: echo.New(), cfg: cfg, store: store, logger: logger}
	e := s.Echo
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				s.logger.Error("devcms request", append(attrs, "error", v.Error)...)
				return nil
			}
			s.logger.Debug("devcms request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet},
	}))

	api := e.Group("/api/v2", s.requireToken)
	api.GET("", s.handleAPI)
	api.GET("/documents/search", s.handleSearch)
	e.GET("/preview", s.handlePreview)
	if cfg.MediaDir != "" {
		e.Static("/media", cfg.MediaDir)
	}
	return s
}

// Start serves on the configured address until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("devcms listening", "addr", s.cfg.Addr)
	if err := s.Echo.Start(s.cfg.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}
