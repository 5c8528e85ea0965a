package core

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/netresearch/internal/runs"
)

const stepFilters = "filters-1"

// executeIntent derives the run's Filter from the query and the concepts of
// the attached CV, if any. There is no safe empty fallback here: downstream
// search is meaningless without topics, so failures propagate.
func (o *Orchestrator) executeIntent(ctx context.Context, st *runState) error {
	var cvConcepts []string
	if st.cvID != nil && o.CVs != nil {
		if cv, ok := o.CVs.GetCV(*st.cvID); ok {
			cvConcepts = cv.Concepts
		}
	}

	filters, err := o.LLM.ExtractFilters(ctx, st.query, cvConcepts)
	if err != nil {
		o.publish(st.runID, runs.Step{
			StepID:  stepFilters,
			Type:    runs.StepTypeFilters,
			Message: fmt.Sprintf("Failed to extract filters: %v", err),
			Status:  runs.StepDone,
		})
		return err
	}
	st.filters = filters

	payload := &runs.FilterPayload{
		Topics:            filters.Topics,
		GeographicalAreas: filters.GeographicalAreas,
	}
	o.publish(st.runID, runs.Step{
		StepID:  stepFilters,
		Type:    runs.StepTypeFilters,
		Message: "Understanding your research interests...",
		Status:  runs.StepInProgress,
		Filters: payload,
	})
	o.pause(ctx, o.Pacing.Filters)
	o.publish(st.runID, runs.Step{
		StepID:  stepFilters,
		Type:    runs.StepTypeFilters,
		Message: "Understanding your research interests...",
		Status:  runs.StepDone,
		Filters: payload,
	})
	return nil
}
