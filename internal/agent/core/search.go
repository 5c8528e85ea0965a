package core

import (
	"context"

	"github.com/mohammad-safakhou/netresearch/internal/openalex"
	"github.com/mohammad-safakhou/netresearch/internal/runs"
)

const (
	stepSearch = "search-1"

	// previewLimit caps how many papers the search step shows the client.
	// The full result set stays in the run state for extraction.
	previewLimit = 4

	abstractPlaceholder = "[Abstract to be populated]"
)

// executeSearch resolves the extracted topics to catalog concepts and
// fetches candidate works. It over-fetches 2*max_nodes works as headroom for
// later filtering and dedup. No topics or no resolvable concepts is a
// legitimately empty result, not an error.
func (o *Orchestrator) executeSearch(ctx context.Context, st *runState) error {
	var page openalex.WorksPage
	if len(st.filters.Topics) > 0 {
		conceptIDs := o.Catalog.ResolveTopics(ctx, st.filters.Topics)
		page = o.Catalog.SearchWorks(ctx, conceptIDs, 2*st.maxNodes)
	}
	st.works = page.Works

	preview := previewPapers(st.works, previewLimit)
	o.publish(st.runID, runs.Step{
		StepID:  stepSearch,
		Type:    runs.StepTypeSearch,
		Message: "Looking for relevant papers...",
		Status:  runs.StepInProgress,
		Papers:  preview,
	})
	o.pause(ctx, o.Pacing.Search)
	o.publish(st.runID, runs.Step{
		StepID:  stepSearch,
		Type:    runs.StepTypeSearch,
		Message: "Looking for relevant papers...",
		Status:  runs.StepDone,
		Papers:  preview,
	})
	return nil
}

// paperFromWork projects a catalog work down to the preview shape clients
// render. Abstracts are not fetched; the placeholder keeps the field shape
// stable for the front end.
func paperFromWork(w openalex.Work) runs.Paper {
	title := w.Title
	if title == "" {
		title = "Untitled"
	}
	var topic *string
	if w.PrimaryTopic != nil && w.PrimaryTopic.DisplayName != "" {
		t := w.PrimaryTopic.DisplayName
		topic = &t
	}
	return runs.Paper{
		Title:           title,
		Link:            w.DOI,
		Abstract:        abstractPlaceholder,
		PublicationYear: w.PublicationYear,
		Topic:           topic,
	}
}

func papersFromWorks(works []openalex.Work) []runs.Paper {
	out := make([]runs.Paper, 0, len(works))
	for _, w := range works {
		out = append(out, paperFromWork(w))
	}
	return out
}

func previewPapers(works []openalex.Work, limit int) []runs.Paper {
	if len(works) > limit {
		works = works[:limit]
	}
	return papersFromWorks(works)
}
