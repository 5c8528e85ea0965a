package server

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/netresearch/internal/agent/core"
	"github.com/mohammad-safakhou/netresearch/internal/archive"
	"github.com/mohammad-safakhou/netresearch/internal/runs"
	"github.com/mohammad-safakhou/netresearch/internal/store"
)

// AgentHandler exposes the run pipeline: trigger, poll, saved-run listing
// and search, and the bulk registry reset.
type AgentHandler struct {
	Registry        runs.Registry
	Orch            *core.Orchestrator
	Store           *store.Store     // nil without Postgres
	Archive         *archive.Archive // nil without Postgres
	DefaultMaxNodes int
	Logger          *log.Logger
}

func (h *AgentHandler) Register(g *echo.Group) {
	g.POST("/run", h.run)
	g.GET("/status/:run_id", h.status)
	g.GET("/runs", h.listRuns)
	g.GET("/runs/search", h.searchRuns)
	g.POST("/reset", h.reset)
}

// run creates the run record and returns immediately; the pipeline executes
// in its own goroutine and publishes progress through the registry.
func (h *AgentHandler) run(c echo.Context) error {
	var req RunRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	maxNodes := req.MaxNodes
	if maxNodes <= 0 {
		maxNodes = h.DefaultMaxNodes
	}

	runID := uuid.NewString()
	h.Registry.Create(runID, req.Query, req.CVID, maxNodes)
	go h.Orch.Execute(context.Background(), runID)

	return c.JSON(http.StatusOK, RunResponse{RunID: runID, Status: "started"})
}

func (h *AgentHandler) status(c echo.Context) error {
	run, ok := h.Registry.Get(c.Param("run_id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}
	return c.JSON(http.StatusOK, StatusResponse{
		RunID:     run.RunID,
		Status:    run.Status,
		Steps:     run.Steps,
		GraphData: run.Graph,
	})
}

func (h *AgentHandler) listRuns(c echo.Context) error {
	out := []SavedRunSummary{}
	if h.Store == nil {
		return c.JSON(http.StatusOK, out)
	}
	recs, err := h.Store.ListRuns(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	for _, r := range recs {
		out = append(out, SavedRunSummary{
			ID:        r.ID,
			Query:     r.Query,
			HasGraph:  r.Graph != nil,
			CreatedAt: r.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AgentHandler) searchRuns(c echo.Context) error {
	q := c.QueryParam("q")
	k := 10
	if v := c.QueryParam("k"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "k must be a positive integer")
		}
		k = parsed
	}
	if q == "" || h.Archive == nil {
		return c.JSON(http.StatusOK, []archive.Hit{})
	}
	hits, err := h.Archive.Search(q, k)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if hits == nil {
		hits = []archive.Hit{}
	}
	return c.JSON(http.StatusOK, hits)
}

func (h *AgentHandler) reset(c echo.Context) error {
	n := h.Registry.Reset()
	h.Logger.Printf("registry reset, %d runs dropped", n)
	return c.JSON(http.StatusOK, ResetResponse{Cleared: n})
}
