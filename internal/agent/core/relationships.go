package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/mohammad-safakhou/netresearch/internal/runs"
)

const stepRelationships = "relationships-1"

var errNoProfessors = errors.New("no professor nodes found for relationship building")

// executeRelationships builds the supervision links. Pure computation over
// the extracted nodes; the only failure mode is having nothing to work with.
func (o *Orchestrator) executeRelationships(ctx context.Context, st *runState) error {
	o.publish(st.runID, runs.Step{
		StepID:  stepRelationships,
		Type:    runs.StepTypeRelationships,
		Message: "Analyzing relationships...",
		Status:  runs.StepInProgress,
	})
	o.pause(ctx, o.Pacing.Relationships)

	if len(st.professors) == 0 {
		o.publish(st.runID, runs.Step{
			StepID:  stepRelationships,
			Type:    runs.StepTypeRelationships,
			Message: fmt.Sprintf("Failed to build relationships: %v", errNoProfessors),
			Status:  runs.StepDone,
		})
		return errNoProfessors
	}
	st.links = buildLinks(st.professors)

	o.publish(st.runID, runs.Step{
		StepID:  stepRelationships,
		Type:    runs.StepTypeRelationships,
		Message: "Analyzing relationships...",
		Status:  runs.StepDone,
	})
	return nil
}

// buildLinks groups professors by institution, elects one lead per group and
// wires the hierarchy:
//
//	lead -supervises-> every other member of its group
//	viewer -interested_in-> every lead
//
// Professors with no resolved institution take part in neither. The lead is
// the group member with the highest h-index; an absent h-index ranks lowest
// and ties go to the member encountered first. Links are intentionally not
// deduplicated.
func buildLinks(professors []runs.GraphNode) []runs.GraphLink {
	groups := make(map[string][]runs.GraphNode)
	var order []string
	for _, p := range professors {
		if p.InstitutionID == "" {
			continue
		}
		if _, ok := groups[p.InstitutionID]; !ok {
			order = append(order, p.InstitutionID)
		}
		groups[p.InstitutionID] = append(groups[p.InstitutionID], p)
	}

	links := []runs.GraphLink{}
	var leads []runs.GraphNode
	for _, instID := range order {
		members := groups[instID]
		lead := members[0]
		for _, m := range members[1:] {
			if hIndexRank(m) > hIndexRank(lead) {
				lead = m
			}
		}
		leads = append(leads, lead)
		for _, m := range members {
			if m.ID == lead.ID {
				continue
			}
			links = append(links, runs.GraphLink{
				Source: lead.ID,
				Target: m.ID,
				Label:  runs.LinkSupervises,
			})
		}
	}

	for _, lead := range leads {
		links = append(links, runs.GraphLink{
			Source: runs.ViewerNodeID,
			Target: lead.ID,
			Label:  runs.LinkInterestedIn,
		})
	}
	return links
}

func hIndexRank(p runs.GraphNode) int {
	if p.HIndex == nil {
		return -1
	}
	return *p.HIndex
}
