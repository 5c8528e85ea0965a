// Package core implements the research pipeline: filter extraction, catalog
// search, professor extraction, relationship building and graph assembly,
// coordinated by the Orchestrator and reported step by step through the run
// registry.
package core

import (
	"context"
	"time"

	"github.com/mohammad-safakhou/netresearch/internal/openalex"
	"github.com/mohammad-safakhou/netresearch/internal/runs"
)

// Catalog is the slice of the scholarly catalog the pipeline uses. Every
// operation is best effort; see the openalex package for the contract.
type Catalog interface {
	ResolveTopics(ctx context.Context, topics []string) []string
	SearchWorks(ctx context.Context, conceptIDs []string, perPage int) openalex.WorksPage
	GetAuthor(ctx context.Context, id string) (openalex.Author, bool)
	GetAuthorWorks(ctx context.Context, id string, perPage int) openalex.WorksPage
	AuthorDelay() time.Duration
}

// FilterExtractor derives search filters from a query, optionally
// disambiguated by CV concepts.
type FilterExtractor interface {
	ExtractFilters(ctx context.Context, query string, cvConcepts []string) (runs.Filter, error)
}

// RunSaver persists a finished run. The orchestrator calls it exactly once
// per run and only logs failures; nil graphs are saved too so failed runs
// still leave a record.
type RunSaver interface {
	SaveRun(ctx context.Context, runID, query string, graph *runs.Graph) error
}

// Pacing holds the deliberate pauses between the in_progress and done
// publications of each stage. They exist purely so polling clients see the
// stage data before the stage flips to done; tests zero the whole struct.
type Pacing struct {
	Filters       time.Duration
	Search        time.Duration
	Extraction    time.Duration
	Relationships time.Duration
	Graph         time.Duration
}

// DefaultPacing returns the production pause schedule.
func DefaultPacing() Pacing {
	return Pacing{
		Filters:       1 * time.Second,
		Search:        1500 * time.Millisecond,
		Extraction:    1500 * time.Millisecond,
		Relationships: 1 * time.Second,
		Graph:         1 * time.Second,
	}
}

// runState carries data forward between stages of a single run. It is owned
// by the one goroutine executing that run and never shared.
type runState struct {
	runID    string
	query    string
	cvID     *string
	maxNodes int

	filters    runs.Filter
	works      []openalex.Work
	professors []runs.GraphNode
	links      []runs.GraphLink
}
