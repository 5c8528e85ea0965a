package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/netresearch/internal/runs"
	"github.com/mohammad-safakhou/netresearch/internal/store"
	"github.com/mohammad-safakhou/netresearch/provider"
)

// EmailHandler drafts outreach emails from the user's CV and a professor's
// context. Delivery is not implemented; send only acknowledges.
type EmailHandler struct {
	CVs    runs.CVStore
	LLM    provider.Provider
	Store  *store.Store // nil without Postgres
	Logger *log.Logger
}

func (h *EmailHandler) Register(g *echo.Group) {
	g.POST("/generate", h.generate)
	g.POST("/send", h.send)
}

func (h *EmailHandler) generate(c echo.Context) error {
	var req EmailGenerateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.EmailType != provider.EmailColab && req.EmailType != provider.EmailReachOut {
		return echo.NewHTTPError(http.StatusBadRequest, "email_type must be colab or reach_out")
	}
	cv, ok := h.CVs.GetCV(req.CVID)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "CV not found")
	}

	studentName := ""
	if h.Store != nil {
		name, err := h.Store.GetUserName(c.Request().Context())
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			h.Logger.Printf("get user name: %v", err)
		}
		studentName = name
	}

	content, err := h.LLM.GenerateEmail(c.Request().Context(), req.EmailType, req.ProfessorName, req.ProfessorContext, cv.Text, cv.Concepts, studentName)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, EmailGenerateResponse{
		Content: content,
		Message: "Email generated successfully",
	})
}

func (h *EmailHandler) send(c echo.Context) error {
	var req EmailSendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.RecipientEmail == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "recipient_email is required")
	}
	h.Logger.Printf("email send requested for %s (%d bytes), delivery not implemented", req.RecipientEmail, len(req.EmailContent))
	return c.JSON(http.StatusOK, EmailSendResponse{
		Status:  "pending",
		Message: "Email sending is not implemented yet",
	})
}
