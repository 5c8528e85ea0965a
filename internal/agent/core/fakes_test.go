package core

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/mohammad-safakhou/netresearch/internal/openalex"
	"github.com/mohammad-safakhou/netresearch/internal/runs"
	"github.com/mohammad-safakhou/netresearch/internal/runs/inmemory"
)

// fakeCatalog scripts catalog answers per author id and records every call.
type fakeCatalog struct {
	concepts map[string]string
	works    []openalex.Work
	authors  map[string]openalex.Author

	resolvedTopics  []string
	worksPerPage    int
	authorFetches   []string
	authorWorkCalls []string
}

func (f *fakeCatalog) ResolveTopics(_ context.Context, topics []string) []string {
	f.resolvedTopics = append(f.resolvedTopics, topics...)
	var ids []string
	for _, t := range topics {
		if id, ok := f.concepts[t]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (f *fakeCatalog) SearchWorks(_ context.Context, conceptIDs []string, perPage int) openalex.WorksPage {
	f.worksPerPage = perPage
	if len(conceptIDs) == 0 {
		return openalex.WorksPage{Works: []openalex.Work{}}
	}
	works := f.works
	if len(works) > perPage {
		works = works[:perPage]
	}
	return openalex.WorksPage{Works: works, Meta: openalex.Meta{Count: len(works)}}
}

func (f *fakeCatalog) GetAuthor(_ context.Context, id string) (openalex.Author, bool) {
	f.authorFetches = append(f.authorFetches, id)
	a, ok := f.authors[id]
	return a, ok
}

func (f *fakeCatalog) GetAuthorWorks(_ context.Context, id string, perPage int) openalex.WorksPage {
	f.authorWorkCalls = append(f.authorWorkCalls, id)
	return openalex.WorksPage{Works: []openalex.Work{}}
}

func (f *fakeCatalog) AuthorDelay() time.Duration { return 0 }

type fakeLLM struct {
	filters runs.Filter
	err     error

	gotQuery    string
	gotConcepts []string
}

func (f *fakeLLM) ExtractFilters(_ context.Context, query string, cvConcepts []string) (runs.Filter, error) {
	f.gotQuery = query
	f.gotConcepts = cvConcepts
	return f.filters, f.err
}

type fakeSaver struct {
	calls int
	runID string
	query string
	graph *runs.Graph
	err   error
}

func (f *fakeSaver) SaveRun(_ context.Context, runID, query string, graph *runs.Graph) error {
	f.calls++
	f.runID = runID
	f.query = query
	f.graph = graph
	return f.err
}

func newTestOrchestrator(reg *inmemory.Registry, cat *fakeCatalog, llm *fakeLLM, saver *fakeSaver) *Orchestrator {
	// A nil *fakeSaver must stay a nil interface, not a typed nil.
	var rs RunSaver
	if saver != nil {
		rs = saver
	}
	o := NewOrchestrator(reg, reg, cat, llm, rs, log.New(io.Discard, "", 0))
	o.Pacing = Pacing{}
	return o
}

func intPtr(v int) *int          { return &v }
func strPtr(v string) *string    { return &v }
func authorID(n int) string      { return fmt.Sprintf("A%d", n) }
func authorURL(n int) string     { return "https://openalex.org/" + authorID(n) }
func workWithAuthors(authorURLs ...string) openalex.Work {
	w := openalex.Work{Title: "Some Work"}
	for _, u := range authorURLs {
		w.Authorships = append(w.Authorships, openalex.Authorship{Author: openalex.AuthorRef{ID: u}})
	}
	return w
}
