// Package echoapi is the HTTP surface of the bot: messages in, archived replies out.
package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/academibot/channels/inbox"
	"github.com/trezcool/academibot/core"
	"github.com/trezcool/academibot/storage/replies"
)

type (
	// Inbox queues messages for the bot and returns the archived replies.
	Inbox interface {
		Enqueue(inc inbox.Incoming) (string, error)
		Reply(id string) (replies.Reply, error)
	}

	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		Inbox          Inbox
		DisableReqLogs bool
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		shutdown chan struct{}
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		shutdown: make(chan struct{}, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.BodyLimit("1M"))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/healthz", s.health)

	v1 := s.app.Group("/v1")
	registerMessageAPI(v1, s.deps.Inbox, inboundKeyMiddleware(conf.Server.InboundKey))
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	err := s.app.Start(s.deps.Conf.Server.Address())
	if err == http.ErrServerClosed {
		return nil
	}
	return errors.Wrap(err, "serving HTTP")
}

func (s *Server) Stop(ctx context.Context) error {
	if err := s.app.Shutdown(ctx); err != nil {
		_ = s.app.Close()
		return errors.Wrap(err, "stopping HTTP server")
	}
	return nil
}

// ShutdownSignal fires when a handler hit a shutdown error.
func (s *Server) ShutdownSignal() <-chan struct{} {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- struct{}{}:
	default:
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{
		"status": "ok",
		"app":    s.deps.Conf.AppName,
		"build":  s.deps.Conf.Build,
	})
}
