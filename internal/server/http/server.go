package internalhttp

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mkovalev/dayboard/internal/app"
	"github.com/mkovalev/dayboard/internal/storage"
	log "github.com/sirupsen/logrus"
)

const ownerHeader = "X-Owner-ID"

type Config struct {
	Host string
	Port int
}

type Server struct {
	e    *echo.Echo
	app  *app.App
	addr string
}

func NewServer(config Config, app *app.App) *Server {
	s := &Server{
		e:    echo.New(),
		app:  app,
		addr: net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
	}
	s.e.HideBanner = true
	s.e.Use(loggingMiddleware)

	g := s.e.Group("/api/v1")
	g.POST("/events", s.createEvent)
	g.GET("/events", s.listEvents)
	g.GET("/events/:id", s.getEvent)
	g.PUT("/events/:id", s.updateEvent)
	g.DELETE("/events/:id", s.deleteEvent)
	g.GET("/events/:id/occurrences", s.listOccurrences)
	g.PUT("/events/:id/occurrences", s.updateOccurrence)
	g.DELETE("/events/:id/occurrences", s.deleteOccurrence)
	g.POST("/events/:id/reminders", s.addReminder)
	g.PUT("/reminders/:id", s.updateReminder)
	g.DELETE("/reminders/:id", s.deleteReminder)
	return s
}

func (s *Server) Start(_ context.Context) error {
	log.Printf("starting http server on %s", s.addr)
	err := s.e.Start(s.addr)
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.e
}

type errorResponse struct {
	Kind    string `json:"kind"`
	Entity  string `json:"entity,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func writeError(c echo.Context, err error) error {
	resp := errorResponse{Kind: storage.KindOf(err).String(), Message: err.Error()}
	var tagged *storage.Error
	if errors.As(err, &tagged) {
		resp.Entity = tagged.Entity
		resp.Field = tagged.Field
	}
	return c.JSON(statusFor(err), resp)
}

func statusFor(err error) int {
	switch storage.KindOf(err) {
	case storage.KindValidation:
		return http.StatusBadRequest
	case storage.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func parseTimeParam(c echo.Context, name string) (time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return time.Time{}, storage.NewValidationError("query", name, "parameter is required")
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, storage.NewValidationError("query", name, "expected RFC3339 timestamp")
	}
	return t, nil
}
