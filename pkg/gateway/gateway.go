// Package gateway exposes the dialog engine over HTTP.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mkarlsen/shopchat/pkg/config"
	"github.com/mkarlsen/shopchat/pkg/dialog"
	"github.com/mkarlsen/shopchat/pkg/logger"
	"github.com/mkarlsen/shopchat/pkg/providers"
)

const shutdownTimeout = 10 * time.Second

// Responder answers one user message. The dialog engine satisfies it.
type Responder interface {
	Process(ctx context.Context, sessionID, message string) dialog.Reply
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Response  string             `json:"response"`
	SessionID string             `json:"session_id"`
	Sources   []providers.Source `json:"sources,omitempty"`
}

type Server struct {
	echo          *echo.Echo
	responder     Responder
	addr          string
	channelStatus func() map[string]interface{}
}

func NewServer(cfg config.GatewayConfig, responder Responder) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:      e,
		responder: responder,
		addr:      fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}

	e.POST("/chat", s.handleChat)
	e.GET("/health", s.handleHealth)

	return s
}

func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Empty message"})
	}

	reply := s.responder.Process(c.Request().Context(), req.SessionID, req.Message)

	return c.JSON(http.StatusOK, chatResponse{
		Response:  reply.Text,
		SessionID: reply.SessionID,
		Sources:   reply.Sources,
	})
}

// SetChannelStatus adds a per-channel status snapshot to the health
// response. Must be called before Start.
func (s *Server) SetChannelStatus(fn func() map[string]interface{}) {
	s.channelStatus = fn
}

func (s *Server) handleHealth(c echo.Context) error {
	body := map[string]interface{}{"status": "healthy"}
	if s.channelStatus != nil {
		body["channels"] = s.channelStatus()
	}
	return c.JSON(http.StatusOK, body)
}

// Start blocks until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	logger.InfoCF("gateway", "HTTP gateway listening", map[string]interface{}{
		"addr": s.addr,
	})
	if err := s.echo.Start(s.addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gateway listen: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
