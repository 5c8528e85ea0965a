package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/netresearch/internal/runs"
	"github.com/mohammad-safakhou/netresearch/internal/store"
)

// UserHandler manages the single-user name plus a small debug endpoint.
type UserHandler struct {
	Store    *store.Store // nil without Postgres
	CVs      runs.CVStore
	Registry runs.Registry
	Logger   *log.Logger
}

func (h *UserHandler) Register(g *echo.Group) {
	g.POST("/name", h.setName)
	g.GET("/name", h.getName)
	g.GET("/debug", h.debug)
}

func (h *UserHandler) setName(c echo.Context) error {
	var req UserNameRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if h.Store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "persistence not configured")
	}
	if err := h.Store.SetUserName(c.Request().Context(), req.Name); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, UserNameResponse{Message: "User name stored successfully", Name: req.Name})
}

func (h *UserHandler) getName(c echo.Context) error {
	return c.JSON(http.StatusOK, UserNameResponse{
		Message: "User name retrieved successfully",
		Name:    h.userName(c),
	})
}

func (h *UserHandler) debug(c echo.Context) error {
	return c.JSON(http.StatusOK, DebugResponse{
		UserName: h.userName(c),
		CVCount:  h.CVs.CountCVs(),
		RunCount: len(h.Registry.List()),
	})
}

// userName falls back to "Anonymous" when no name is stored or no store
// exists.
func (h *UserHandler) userName(c echo.Context) string {
	if h.Store == nil {
		return "Anonymous"
	}
	name, err := h.Store.GetUserName(c.Request().Context())
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.Logger.Printf("get user name: %v", err)
		}
		return "Anonymous"
	}
	return name
}
