package server

import (
	"net/http"
	"time"

	"github.com/chr-braun/kostalbridge/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/api/v1/snapshot", s.SnapshotHandler)
	e.GET("/api/v1/history", s.HistoryHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

// SnapshotHandler returns the latest merged metric values.
func (s *Server) SnapshotHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.Latest())
}

// HistoryHandler returns the recent snapshot log, newest last.
func (s *Server) HistoryHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, s.store.History())
}
