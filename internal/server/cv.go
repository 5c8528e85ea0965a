package server

import (
	"io"
	"log"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/netresearch/internal/runs"
	"github.com/mohammad-safakhou/netresearch/internal/store"
	"github.com/mohammad-safakhou/netresearch/provider"
)

// cvTextLimit caps how much CV text goes into the concept prompt.
const cvTextLimit = 10000

// CVHandler manages uploaded and imported CVs. Concept extraction is best
// effort: a CV with no concepts still disambiguates nothing but breaks
// nothing either.
type CVHandler struct {
	CVs    runs.CVStore
	LLM    provider.Provider
	Store  *store.Store // nil without Postgres
	HTTP   *http.Client
	Logger *log.Logger
}

func (h *CVHandler) Register(g *echo.Group) {
	g.POST("/upload", h.upload)
	g.POST("/import", h.importURL)
	g.GET("/:cv_id", h.get)
}

// upload accepts a UTF-8 text CV export as multipart field "file".
func (h *CVHandler) upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return h.storeCV(c, fh.Filename, "", string(content))
}

// importURL fetches a web CV and keeps only its readable text.
func (h *CVHandler) importURL(c echo.Context) error {
	var req CVImportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	parsed, err := url.Parse(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return echo.NewHTTPError(http.StatusBadRequest, "a valid http(s) url is required")
	}

	resp, err := h.httpClient().Get(req.URL)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return echo.NewHTTPError(http.StatusBadGateway, "fetch failed with status "+resp.Status)
	}

	article, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "could not extract readable text")
	}

	filename := path.Base(parsed.Path)
	if filename == "." || filename == "/" || filename == "" {
		filename = parsed.Host
	}
	return h.storeCV(c, filename, req.URL, article.TextContent)
}

func (h *CVHandler) get(c echo.Context) error {
	cv, ok := h.CVs.GetCV(c.Param("cv_id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "cv not found")
	}
	return c.JSON(http.StatusOK, cv)
}

func (h *CVHandler) storeCV(c echo.Context, filename, sourceURL, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "cv contains no text")
	}

	prompt := text
	if len(prompt) > cvTextLimit {
		prompt = prompt[:cvTextLimit]
	}
	concepts, err := h.LLM.ExtractCVConcepts(c.Request().Context(), prompt)
	if err != nil {
		h.Logger.Printf("concept extraction for %s: %v", filename, err)
		concepts = []string{}
	}
	if concepts == nil {
		concepts = []string{}
	}

	cvID := uuid.NewString()
	h.CVs.StoreCV(runs.CVRecord{
		CVID:      cvID,
		Filename:  filename,
		SourceURL: sourceURL,
		Text:      text,
		Concepts:  concepts,
		CreatedAt: time.Now().UTC(),
	})

	if h.Store != nil {
		if err := h.Store.UpdateUserCV(c.Request().Context(), text); err != nil {
			h.Logger.Printf("persist cv text: %v", err)
		}
	}

	return c.JSON(http.StatusOK, CVResponse{
		CVID:              cvID,
		Filename:          filename,
		Message:           "CV processed",
		ExtractedConcepts: concepts,
	})
}

func (h *CVHandler) httpClient() *http.Client {
	if h.HTTP != nil {
		return h.HTTP
	}
	return &http.Client{Timeout: 20 * time.Second}
}
