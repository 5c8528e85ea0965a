package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorhill/cronexpr"
	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/netresearch/internal/store"
)

// WatchesHandler manages scheduled re-runs of saved queries.
type WatchesHandler struct {
	Store           *store.Store // nil without Postgres
	DefaultMaxNodes int
}

func (h *WatchesHandler) Register(g *echo.Group) {
	g.POST("", h.create)
	g.GET("", h.list)
	g.DELETE("/:id", h.remove)
}

func (h *WatchesHandler) create(c echo.Context) error {
	if h.Store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "persistence not configured")
	}
	var req WatchCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	if req.Cron == "" {
		req.Cron = "@daily"
	}
	if !validCron(req.Cron) {
		return echo.NewHTTPError(http.StatusBadRequest, "cron must be @hourly, @daily or a 5-field cron expression")
	}
	if req.MaxNodes <= 0 {
		req.MaxNodes = h.DefaultMaxNodes
	}

	id, err := h.Store.CreateWatch(c.Request().Context(), req.Query, req.Cron, req.MaxNodes)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}

func (h *WatchesHandler) list(c echo.Context) error {
	if h.Store == nil {
		return c.JSON(http.StatusOK, []store.Watch{})
	}
	watches, err := h.Store.ListWatches(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if watches == nil {
		watches = []store.Watch{}
	}
	return c.JSON(http.StatusOK, watches)
}

func (h *WatchesHandler) remove(c echo.Context) error {
	if h.Store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "persistence not configured")
	}
	err := h.Store.DeleteWatch(c.Request().Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "watch not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func validCron(spec string) bool {
	if spec == "@hourly" || spec == "@daily" {
		return true
	}
	if strings.HasPrefix(spec, "@") {
		return false
	}
	_, err := cronexpr.Parse(spec)
	return err == nil
}
