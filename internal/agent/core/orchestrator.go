package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mohammad-safakhou/netresearch/internal/runs"
	"github.com/mohammad-safakhou/netresearch/internal/telemetry"
)

// Orchestrator executes the five-stage research pipeline for one run at a
// time. Runs are independent: callers launch Execute in its own goroutine
// per run, and concurrent runs share only the registry and the catalog
// client. Inside a run everything is sequential.
type Orchestrator struct {
	Registry runs.Registry
	CVs      runs.CVStore
	Catalog  Catalog
	LLM      FilterExtractor
	Saver    RunSaver // nil disables persistence
	Pacing   Pacing
	Logger   *log.Logger
}

// NewOrchestrator wires an Orchestrator with production pacing.
func NewOrchestrator(registry runs.Registry, cvs runs.CVStore, catalog Catalog, llm FilterExtractor, saver RunSaver, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	return &Orchestrator{
		Registry: registry,
		CVs:      cvs,
		Catalog:  catalog,
		LLM:      llm,
		Saver:    saver,
		Pacing:   DefaultPacing(),
		Logger:   logger,
	}
}

// Execute runs the pipeline for a run already created in the registry. The
// run always ends completed: a stage failure is recorded as a terminal error
// step, never as a stuck running run. Whatever graph exists (possibly none)
// is persisted best effort either way.
func (o *Orchestrator) Execute(ctx context.Context, runID string) {
	run, ok := o.Registry.Get(runID)
	if !ok {
		o.Logger.Printf("run %s: not in registry, nothing to do", runID)
		return
	}
	st := &runState{
		runID:    runID,
		query:    run.Query,
		cvID:     run.CVID,
		maxNodes: run.MaxNodes,
	}

	telemetry.RunsStarted.Inc()
	started := time.Now()

	err := o.runStages(ctx, st)
	if err != nil {
		o.Logger.Printf("run %s: %v", runID, err)
		o.publish(runID, runs.Step{
			StepID:  fmt.Sprintf("error-%d", time.Now().Unix()),
			Type:    runs.StepTypeIntent,
			Message: fmt.Sprintf("Error: %v", err),
			Status:  runs.StepDone,
		})
		telemetry.RunsCompleted.WithLabelValues("error").Inc()
	} else {
		telemetry.RunsCompleted.WithLabelValues("ok").Inc()
	}
	telemetry.RunDuration.Observe(time.Since(started).Seconds())

	// Terminal no matter what happened above; pollers must never see a run
	// stuck in running.
	o.Registry.SetStatus(runID, runs.RunCompleted)

	o.saveRun(ctx, st)
}

func (o *Orchestrator) runStages(ctx context.Context, st *runState) error {
	stages := []struct {
		name string
		fn   func(context.Context, *runState) error
	}{
		{"filters", o.executeIntent},
		{"search", o.executeSearch},
		{"extraction", o.executeExtraction},
		{"relationships", o.executeRelationships},
		{"graph", o.executeGraph},
	}
	for _, stage := range stages {
		started := time.Now()
		err := stage.fn(ctx, st)
		telemetry.StageDuration.WithLabelValues(stage.name).Observe(time.Since(started).Seconds())
		if err != nil {
			return err
		}
	}
	return nil
}

// saveRun hands the finished run to the persistence collaborator. Failures
// are logged and swallowed: the in-memory registry stays the source of truth
// for this process's lifetime.
func (o *Orchestrator) saveRun(ctx context.Context, st *runState) {
	if o.Saver == nil {
		return
	}
	run, ok := o.Registry.Get(st.runID)
	if !ok {
		o.Logger.Printf("run %s: gone from registry before save", st.runID)
		return
	}
	if err := o.Saver.SaveRun(ctx, st.runID, st.query, run.Graph); err != nil {
		o.Logger.Printf("run %s: save failed: %v", st.runID, err)
		return
	}
	o.Logger.Printf("run %s: saved (query %q)", st.runID, st.query)
}

func (o *Orchestrator) publish(runID string, step runs.Step) {
	step.Timestamp = time.Now().UTC()
	o.Registry.AppendStep(runID, step)
}

func (o *Orchestrator) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
