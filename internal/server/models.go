package server

import (
	"time"

	"github.com/mohammad-safakhou/netresearch/internal/runs"
)

// Request/response shapes of the HTTP surface.

type RunRequest struct {
	Query    string  `json:"query"`
	CVID     *string `json:"cv_id,omitempty"`
	MaxNodes int     `json:"max_nodes"`
}

type RunResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// StatusResponse is the polling projection of a run: everything a client
// needs to render progress, nothing else.
type StatusResponse struct {
	RunID     string         `json:"run_id"`
	Status    runs.RunStatus `json:"status"`
	Steps     []runs.Step    `json:"steps"`
	GraphData *runs.Graph    `json:"graph_data"`
}

type SavedRunSummary struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	HasGraph  bool      `json:"has_graph"`
	CreatedAt time.Time `json:"created_at"`
}

type ResetResponse struct {
	Cleared int `json:"cleared"`
}

type CVResponse struct {
	CVID              string   `json:"cv_id"`
	Filename          string   `json:"filename"`
	Message           string   `json:"message"`
	ExtractedConcepts []string `json:"extracted_concepts"`
}

type CVImportRequest struct {
	URL string `json:"url"`
}

type UserNameRequest struct {
	Name string `json:"name"`
}

type UserNameResponse struct {
	Message string `json:"message"`
	Name    string `json:"name"`
}

type DebugResponse struct {
	UserName string `json:"user_name"`
	CVCount  int    `json:"cv_count"`
	RunCount int    `json:"run_count"`
}

type EmailGenerateRequest struct {
	EmailType        string  `json:"email_type"`
	CVID             string  `json:"cv_id"`
	ProfessorName    string  `json:"professor_name"`
	ProfessorContext string  `json:"professor_context"`
	RecipientName    *string `json:"recipient_name,omitempty"`
}

type EmailGenerateResponse struct {
	Content string `json:"content"`
	Message string `json:"message"`
}

type EmailSendRequest struct {
	EmailContent   string `json:"email_content"`
	RecipientEmail string `json:"recipient_email"`
}

type EmailSendResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type WatchCreateRequest struct {
	Query    string `json:"query"`
	Cron     string `json:"cron"`
	MaxNodes int    `json:"max_nodes"`
}
