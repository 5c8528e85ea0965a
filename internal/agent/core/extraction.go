package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/netresearch/internal/openalex"
	"github.com/mohammad-safakhou/netresearch/internal/runs"
)

const (
	stepExtraction = "extraction-1"

	// authorsPerPaper biases extraction toward first and lead authors.
	authorsPerPaper = 2

	// recentPapersPerAuthor caps how many works each professor node carries.
	recentPapersPerAuthor = 3
)

// executeExtraction turns the searched works into professor nodes. The step
// is published in_progress with an empty list before any fetch so the client
// sees the stage start, then republished with the full batch once the
// sequential author fetches finish.
func (o *Orchestrator) executeExtraction(ctx context.Context, st *runState) error {
	o.publish(st.runID, runs.Step{
		StepID:  stepExtraction,
		Type:    runs.StepTypeExtraction,
		Message: "Extracting relevant professors...",
		Status:  runs.StepInProgress,
		Sources: []runs.ProfessorSummary{},
	})

	nodes, summaries := o.extractProfessors(ctx, st.works, st.maxNodes)
	st.professors = nodes

	o.publish(st.runID, runs.Step{
		StepID:  stepExtraction,
		Type:    runs.StepTypeExtraction,
		Message: "Extracting relevant professors...",
		Status:  runs.StepInProgress,
		Sources: summaries,
	})
	o.pause(ctx, o.Pacing.Extraction)
	o.publish(st.runID, runs.Step{
		StepID:  stepExtraction,
		Type:    runs.StepTypeExtraction,
		Message: "Extracting relevant professors...",
		Status:  runs.StepDone,
		Sources: summaries,
	})
	return nil
}

// extractProfessors scans at most maxPapers works, collects the first two
// author ids of each, dedupes them, and resolves every distinct id to a full
// node plus a display summary. Authors the catalog cannot resolve are
// skipped silently; a politeness pause separates the fetches.
func (o *Orchestrator) extractProfessors(ctx context.Context, works []openalex.Work, maxPapers int) ([]runs.GraphNode, []runs.ProfessorSummary) {
	nodes := []runs.GraphNode{}
	summaries := []runs.ProfessorSummary{}

	ids := authorIDsFromWorks(works, maxPapers, authorsPerPaper)
	for i, id := range ids {
		if i > 0 {
			o.pause(ctx, o.Catalog.AuthorDelay())
		}
		author, ok := o.Catalog.GetAuthor(ctx, id)
		if !ok {
			continue
		}
		authorWorks := o.Catalog.GetAuthorWorks(ctx, id, recentPapersPerAuthor)
		nodes = append(nodes, professorNode(author, authorWorks.Works))
		summaries = append(summaries, professorSummary(author))
	}
	return nodes, summaries
}

// authorIDsFromWorks collects distinct author ids from the leading works,
// preserving first-seen order.
func authorIDsFromWorks(works []openalex.Work, maxPapers, perPaper int) []string {
	if len(works) > maxPapers {
		works = works[:maxPapers]
	}
	var ids []string
	seen := make(map[string]struct{})
	for _, w := range works {
		authorships := w.Authorships
		if len(authorships) > perPaper {
			authorships = authorships[:perPaper]
		}
		for _, a := range authorships {
			if a.Author.ID == "" {
				continue
			}
			id := openalex.AuthorIDFromURL(a.Author.ID)
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// affiliation picks the institution a professor is grouped under: the first
// affiliation typed "education", else the first listed, else none.
func affiliation(a openalex.Author) *openalex.Institution {
	for i := range a.LastKnownInstitutions {
		if a.LastKnownInstitutions[i].Type == "education" {
			return &a.LastKnownInstitutions[i]
		}
	}
	if len(a.LastKnownInstitutions) > 0 {
		return &a.LastKnownInstitutions[0]
	}
	return nil
}

func professorNode(a openalex.Author, authorWorks []openalex.Work) runs.GraphNode {
	name := a.DisplayName
	if name == "" {
		name = "Unknown Author"
	}

	var institution *string
	var institutionID string
	if inst := affiliation(a); inst != nil {
		n := inst.DisplayName
		institution = &n
		institutionID = inst.ID
	}

	description := "Academic researcher"
	if institution != nil {
		description = "Researcher at " + *institution
	}
	if a.WorksCount != nil && *a.WorksCount > 0 {
		description += fmt.Sprintf(" with %d publications", *a.WorksCount)
	}

	// The catalog has no author emails; guess one so the contact block is
	// never empty, and carry the ORCID URL as the website.
	contact := &runs.Contact{
		Email:   strings.ReplaceAll(strings.ToLower(name), " ", ".") + "@example.com",
		Website: a.IDs.ORCID,
	}

	var hIndex *int
	if a.SummaryStats != nil {
		hIndex = a.SummaryStats.HIndex
	}
	if len(authorWorks) > recentPapersPerAuthor {
		authorWorks = authorWorks[:recentPapersPerAuthor]
	}
	var papers []runs.Paper
	if len(authorWorks) > 0 {
		papers = papersFromWorks(authorWorks)
	}

	return runs.GraphNode{
		ID:            openalex.AuthorIDFromURL(a.ID),
		Name:          name,
		Type:          runs.NodeTypeProfessor,
		Institution:   institution,
		InstitutionID: institutionID,
		Description:   description,
		Contacts:      contact,
		WorksCount:    a.WorksCount,
		CitedByCount:  a.CitedByCount,
		HIndex:        hIndex,
		LinkORCID:     a.ORCID,
		Papers:        papers,
	}
}

func professorSummary(a openalex.Author) runs.ProfessorSummary {
	name := a.DisplayName
	if name == "" {
		name = "Unknown Author"
	}
	var institution *string
	if inst := affiliation(a); inst != nil {
		n := inst.DisplayName
		institution = &n
	}

	worksCount := 0
	if a.WorksCount != nil {
		worksCount = *a.WorksCount
	}
	hIndex := "N/A"
	if a.SummaryStats != nil && a.SummaryStats.HIndex != nil {
		hIndex = fmt.Sprintf("%d", *a.SummaryStats.HIndex)
	}

	return runs.ProfessorSummary{
		Name:        name,
		Institution: institution,
		Description: fmt.Sprintf("%d publications, h-index: %s", worksCount, hIndex),
	}
}
