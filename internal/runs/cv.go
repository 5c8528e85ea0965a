package runs

import "time"

// CVRecord is an uploaded or imported CV. Like runs, CVs are volatile
// working state kept for the lifetime of the process.
type CVRecord struct {
	CVID      string    `json:"cv_id"`
	Filename  string    `json:"filename"`
	SourceURL string    `json:"source_url,omitempty"`
	Text      string    `json:"text"`
	Concepts  []string  `json:"concepts"`
	CreatedAt time.Time `json:"created_at"`
}

// CVStore holds CVs next to the run registry so a run can pick up the
// concepts of the CV it was started with.
type CVStore interface {
	StoreCV(cv CVRecord)
	GetCV(cvID string) (CVRecord, bool)
	CountCVs() int
}
