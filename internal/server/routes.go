package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/berfenger/hassbridge/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/api/config_entries", s.ConfigEntriesHandler)
	e.GET("/api/diagnostics/config_entry/:entry_id", s.ConfigEntryDiagnosticsHandler)
	if s.gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	// nothing to supervise when the inverter bridge is disabled
	if s.masterActor == nil {
		return c.String(http.StatusOK, "health_check: OK")
	}
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

type configEntrySummary struct {
	EntryId string `json:"entry_id"`
	Domain  string `json:"domain"`
	Title   string `json:"title"`
}

func (s *Server) ConfigEntriesHandler(c echo.Context) error {
	entries := s.entries.List()
	res := make([]configEntrySummary, 0, len(entries))
	for _, entry := range entries {
		res = append(res, configEntrySummary{
			EntryId: entry.EntryId,
			Domain:  entry.Domain,
			Title:   entry.Title,
		})
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) ConfigEntryDiagnosticsHandler(c echo.Context) error {
	entryId := c.Param("entry_id")
	entry, err := s.entries.Get(entryId)
	if err != nil {
		return s.errorResponse(c, err)
	}
	diagnostics, ok := s.diagnostics[entry.Domain]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no diagnostics available for domain "+entry.Domain)
	}
	res, err := diagnostics(c.Request().Context(), entryId)
	if err != nil {
		return s.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) errorResponse(c echo.Context, err error) error {
	if errors.Is(err, domain.ErrConfigEntryNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	s.logger.Error("http: request failed", zap.String("path", c.Path()), zap.Error(err))
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
