package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/netresearch/internal/openalex"
	"github.com/mohammad-safakhou/netresearch/internal/runs"
	"github.com/mohammad-safakhou/netresearch/internal/runs/inmemory"
)

func stepsByID(r runs.Run, stepID string) []runs.Step {
	var out []runs.Step
	for _, s := range r.Steps {
		if s.StepID == stepID {
			out = append(out, s)
		}
	}
	return out
}

func roboticsCatalog() *fakeCatalog {
	inst := func(id, name string) []openalex.Institution {
		return []openalex.Institution{{ID: id, DisplayName: name, Type: "education"}}
	}
	h := func(a openalex.Author, hIndex int) openalex.Author {
		a.SummaryStats = &openalex.SummaryStats{HIndex: intPtr(hIndex)}
		return a
	}
	a1 := simpleAuthor("A1", "Ada One")
	a1.LastKnownInstitutions = inst("I1", "ETH Zurich")
	a2 := simpleAuthor("A2", "Bob Two")
	a2.LastKnownInstitutions = inst("I1", "ETH Zurich")
	a3 := simpleAuthor("A3", "Cyd Three")
	a3.LastKnownInstitutions = inst("I2", "MIT")

	return &fakeCatalog{
		concepts: map[string]string{"Robotics": "C121332964"},
		works: []openalex.Work{
			workWithAuthors(authorURL(1), authorURL(2)),
			workWithAuthors(authorURL(3)),
			workWithAuthors(authorURL(4)), // never scanned: beyond max_nodes
			workWithAuthors(authorURL(5)),
		},
		authors: map[string]openalex.Author{
			"A1": h(a1, 10),
			"A2": h(a2, 30),
			"A3": h(a3, 5),
		},
	}
}

func TestExecuteRoboticsScenario(t *testing.T) {
	reg := inmemory.New()
	cat := roboticsCatalog()
	saver := &fakeSaver{}
	o := newTestOrchestrator(reg, cat, &fakeLLM{filters: runs.Filter{Topics: []string{"Robotics"}}}, saver)

	reg.Create("run-1", "Robotics", nil, 2)
	o.Execute(context.Background(), "run-1")

	run, ok := reg.Get("run-1")
	if !ok {
		t.Fatal("run vanished")
	}
	if run.Status != runs.RunCompleted {
		t.Fatalf("status %s, want completed", run.Status)
	}

	// 2*max_nodes works requested, ≤4 in the preview.
	if cat.worksPerPage != 4 {
		t.Fatalf("requested %d works, want 4", cat.worksPerPage)
	}

	// max_nodes=2 papers scanned, first 2 authors each: A1, A2, A3.
	if len(cat.authorFetches) != 3 {
		t.Fatalf("fetched authors %v, want A1 A2 A3", cat.authorFetches)
	}

	if run.Graph == nil {
		t.Fatal("no graph stored")
	}
	if len(run.Graph.Nodes) != 4 { // 3 professors + viewer
		t.Fatalf("graph has %d nodes, want 4", len(run.Graph.Nodes))
	}
	// Groups: {A1,A2} and {A3} → 1 supervises + 2 interested_in.
	if len(run.Graph.Links) != 3 {
		t.Fatalf("graph has %d links, want 3", len(run.Graph.Links))
	}
	var supervises *runs.GraphLink
	for i, l := range run.Graph.Links {
		if l.Label == runs.LinkSupervises {
			supervises = &run.Graph.Links[i]
		}
	}
	if supervises == nil || supervises.Source != "A2" || supervises.Target != "A1" {
		t.Fatalf("unexpected supervises link %+v", supervises)
	}

	if saver.calls != 1 || saver.runID != "run-1" || saver.query != "Robotics" || saver.graph == nil {
		t.Fatalf("unexpected save %+v", saver)
	}
}

func TestExecuteStepSequence(t *testing.T) {
	reg := inmemory.New()
	o := newTestOrchestrator(reg, roboticsCatalog(), &fakeLLM{filters: runs.Filter{Topics: []string{"Robotics"}}}, nil)

	reg.Create("run-1", "Robotics", nil, 2)
	o.Execute(context.Background(), "run-1")
	run, _ := reg.Get("run-1")

	// Each stage publishes in_progress before done under a stable step id;
	// extraction publishes in_progress twice.
	wantCounts := map[string]int{
		stepFilters:       2,
		stepSearch:        2,
		stepExtraction:    3,
		stepRelationships: 2,
		stepGraph:         2,
	}
	for id, want := range wantCounts {
		got := stepsByID(run, id)
		if len(got) != want {
			t.Fatalf("step %s appended %d times, want %d", id, len(got), want)
		}
		if got[0].Status != runs.StepInProgress {
			t.Fatalf("step %s first status %s, want in_progress", id, got[0].Status)
		}
		if got[len(got)-1].Status != runs.StepDone {
			t.Fatalf("step %s last status %s, want done", id, got[len(got)-1].Status)
		}
	}

	latest := run.LatestSteps()
	order := []string{stepFilters, stepSearch, stepExtraction, stepRelationships, stepGraph}
	if len(latest) != len(order) {
		t.Fatalf("latest steps %d, want %d", len(latest), len(order))
	}
	for i, id := range order {
		if latest[i].StepID != id {
			t.Fatalf("stage order %v, want %v at %d", latest[i].StepID, id, i)
		}
	}

	// Filters payload travels on both publications.
	for _, s := range stepsByID(run, stepFilters) {
		if s.Filters == nil || len(s.Filters.Topics) != 1 || s.Filters.Topics[0] != "Robotics" {
			t.Fatalf("filters payload missing on %s step", s.Status)
		}
	}
	// Extraction starts with an explicitly empty professor list.
	if first := stepsByID(run, stepExtraction)[0]; first.Sources == nil || len(first.Sources) != 0 {
		t.Fatalf("first extraction publication should carry an empty list, got %+v", first.Sources)
	}
}

func TestExecuteFilterFailureCompletesRun(t *testing.T) {
	reg := inmemory.New()
	saver := &fakeSaver{}
	o := newTestOrchestrator(reg, &fakeCatalog{}, &fakeLLM{err: errors.New("no topics extracted from query")}, saver)

	reg.Create("run-1", "gibberish", nil, 10)
	o.Execute(context.Background(), "run-1")
	run, _ := reg.Get("run-1")

	if run.Status != runs.RunCompleted {
		t.Fatalf("failed run left in status %s", run.Status)
	}
	if run.Graph != nil {
		t.Fatal("failed run should have no graph")
	}

	// Stage records its own failure, then the orchestrator appends a
	// terminal error step.
	fs := stepsByID(run, stepFilters)
	if len(fs) != 1 || fs[0].Status != runs.StepDone || !strings.Contains(fs[0].Message, "Failed to extract filters") {
		t.Fatalf("unexpected filters failure step %+v", fs)
	}
	last := run.Steps[len(run.Steps)-1]
	if last.Type != runs.StepTypeIntent || !strings.HasPrefix(last.StepID, "error-") {
		t.Fatalf("unexpected terminal step %+v", last)
	}
	if !strings.Contains(last.Message, "no topics extracted") {
		t.Fatalf("error text not embedded: %q", last.Message)
	}

	// Persistence is still attempted, with a nil graph.
	if saver.calls != 1 || saver.graph != nil {
		t.Fatalf("unexpected save %+v", saver)
	}
}

func TestExecuteNoProfessorsFailsRelationships(t *testing.T) {
	reg := inmemory.New()
	// Topics resolve but the catalog has no works, so extraction finds
	// nobody and relationships refuses.
	cat := &fakeCatalog{concepts: map[string]string{"Robotics": "C1"}}
	o := newTestOrchestrator(reg, cat, &fakeLLM{filters: runs.Filter{Topics: []string{"Robotics"}}}, nil)

	reg.Create("run-1", "Robotics", nil, 2)
	o.Execute(context.Background(), "run-1")
	run, _ := reg.Get("run-1")

	if run.Status != runs.RunCompleted {
		t.Fatalf("status %s, want completed", run.Status)
	}
	if len(stepsByID(run, stepGraph)) != 0 {
		t.Fatal("graph stage ran after relationships failed")
	}
	rel := stepsByID(run, stepRelationships)
	final := rel[len(rel)-1]
	if !strings.Contains(final.Message, "Failed to build relationships") {
		t.Fatalf("unexpected relationships failure message %q", final.Message)
	}
}

func TestExecuteSaverFailureIsSwallowed(t *testing.T) {
	reg := inmemory.New()
	saver := &fakeSaver{err: errors.New("connection refused")}
	o := newTestOrchestrator(reg, roboticsCatalog(), &fakeLLM{filters: runs.Filter{Topics: []string{"Robotics"}}}, saver)

	reg.Create("run-1", "Robotics", nil, 2)
	o.Execute(context.Background(), "run-1")
	run, _ := reg.Get("run-1")

	if run.Status != runs.RunCompleted || run.Graph == nil {
		t.Fatal("persistence failure leaked into the run outcome")
	}
}

func TestExecuteWithoutSaver(t *testing.T) {
	reg := inmemory.New()
	o := newTestOrchestrator(reg, roboticsCatalog(), &fakeLLM{filters: runs.Filter{Topics: []string{"Robotics"}}}, nil)

	reg.Create("run-1", "Robotics", nil, 2)
	o.Execute(context.Background(), "run-1")
	run, _ := reg.Get("run-1")

	if run.Status != runs.RunCompleted || run.Graph == nil {
		t.Fatalf("run without persistence did not finish: status=%s graph=%v", run.Status, run.Graph)
	}
}

func TestExecuteZeroMaxNodes(t *testing.T) {
	reg := inmemory.New()
	cat := roboticsCatalog()
	saver := &fakeSaver{}
	o := newTestOrchestrator(reg, cat, &fakeLLM{filters: runs.Filter{Topics: []string{"Robotics"}}}, saver)

	// A zero node budget scans no papers, so extraction yields nobody and
	// relationships refuses; the run still completes and is persisted
	// without a graph.
	reg.Create("run-1", "Robotics", nil, 0)
	o.Execute(context.Background(), "run-1")
	run, _ := reg.Get("run-1")

	if run.Status != runs.RunCompleted {
		t.Fatalf("status %s, want completed", run.Status)
	}
	if run.Graph != nil {
		t.Fatalf("graph stored with a zero budget: %+v", run.Graph)
	}
	if len(cat.authorFetches) != 0 {
		t.Fatalf("authors fetched on a zero budget: %v", cat.authorFetches)
	}
	rel := stepsByID(run, stepRelationships)
	if len(rel) == 0 || !strings.Contains(rel[len(rel)-1].Message, "Failed to build relationships") {
		t.Fatalf("unexpected relationships steps %+v", rel)
	}
	if len(stepsByID(run, stepGraph)) != 0 {
		t.Fatal("graph stage ran after relationships failed")
	}
	if saver.calls != 1 || saver.graph != nil {
		t.Fatalf("unexpected save %+v", saver)
	}
}

func TestExecutePassesCVConceptsToLLM(t *testing.T) {
	reg := inmemory.New()
	llm := &fakeLLM{filters: runs.Filter{Topics: []string{"Robotics"}}}
	o := newTestOrchestrator(reg, roboticsCatalog(), llm, nil)

	reg.StoreCV(runs.CVRecord{CVID: "cv-1", Concepts: []string{"SLAM", "Control Theory"}})
	cvID := "cv-1"
	reg.Create("run-1", "Robotics", &cvID, 2)
	o.Execute(context.Background(), "run-1")

	if len(llm.gotConcepts) != 2 || llm.gotConcepts[0] != "SLAM" {
		t.Fatalf("cv concepts not passed through: %v", llm.gotConcepts)
	}
}

func TestExecuteUnknownRunIsNoop(t *testing.T) {
	reg := inmemory.New()
	saver := &fakeSaver{}
	o := newTestOrchestrator(reg, &fakeCatalog{}, &fakeLLM{}, saver)
	o.Execute(context.Background(), "nope")
	if saver.calls != 0 {
		t.Fatal("save attempted for unknown run")
	}
}
