// Package inmemory provides the map-backed run registry and CV store used in
// production. Runs are working state for a single process lifetime, so there
// is nothing to flush and nothing to recover.
package inmemory

import (
	"sync"
	"time"

	"github.com/mohammad-safakhou/netresearch/internal/runs"
)

// Registry implements runs.Registry and runs.CVStore over plain maps guarded
// by one RWMutex. Appended steps are treated as immutable, so snapshots copy
// the step slice but not the payloads inside each step.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*runs.Run
	cvs  map[string]runs.CVRecord
}

func New() *Registry {
	return &Registry{
		runs: make(map[string]*runs.Run),
		cvs:  make(map[string]runs.CVRecord),
	}
}

func (s *Registry) Create(runID, query string, cvID *string, maxNodes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[runID] = &runs.Run{
		RunID:     runID,
		Query:     query,
		CVID:      cvID,
		MaxNodes:  maxNodes,
		Status:    runs.RunRunning,
		Steps:     []runs.Step{},
		CreatedAt: time.Now().UTC(),
	}
}

func (s *Registry) AppendStep(runID string, step runs.Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[runID]
	if !ok {
		return
	}
	r.Steps = append(r.Steps, step)
}

func (s *Registry) SetStatus(runID string, status runs.RunStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.runs[runID]; ok {
		r.Status = status
	}
}

func (s *Registry) SetGraph(runID string, graph runs.Graph) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.runs[runID]; ok {
		r.Graph = &graph
	}
}

func (s *Registry) Get(runID string) (runs.Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[runID]
	if !ok {
		return runs.Run{}, false
	}
	return snapshot(r), true
}

func (s *Registry) List() []runs.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]runs.Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, snapshot(r))
	}
	return out
}

func (s *Registry) Reset() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.runs)
	s.runs = make(map[string]*runs.Run)
	return n
}

func (s *Registry) StoreCV(cv runs.CVRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cvs[cv.CVID] = cv
}

func (s *Registry) GetCV(cvID string) (runs.CVRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cv, ok := s.cvs[cvID]
	return cv, ok
}

func (s *Registry) CountCVs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cvs)
}

// snapshot copies the run so later writes through the registry cannot reach
// anything the caller holds.
func snapshot(r *runs.Run) runs.Run {
	out := *r
	out.Steps = append([]runs.Step(nil), r.Steps...)
	if len(r.Steps) == 0 {
		out.Steps = []runs.Step{}
	}
	if r.Graph != nil {
		g := runs.Graph{
			Nodes: append([]runs.GraphNode(nil), r.Graph.Nodes...),
			Links: append([]runs.GraphLink(nil), r.Graph.Links...),
		}
		out.Graph = &g
	}
	return out
}
