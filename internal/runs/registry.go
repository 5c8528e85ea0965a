package runs

// Registry tracks live runs. It is volatile working state, not a system of
// record: contents do not survive a restart, and completed runs are only
// persisted elsewhere.
//
// Concurrency contract: a single writer per run (the pipeline goroutine that
// owns it) and any number of concurrent readers. Get must return a snapshot
// that later writes cannot mutate, and a reader polling the same run must
// never see a previously-visible step disappear.
type Registry interface {
	// Create registers a run in running state with no steps. Creating an id
	// that already exists replaces it wholesale; last write wins.
	Create(runID, query string, cvID *string, maxNodes int)

	// AppendStep appends to the run's step log. Unknown run ids are ignored.
	AppendStep(runID string, step Step)

	// SetStatus updates the run status. Unknown run ids are ignored.
	SetStatus(runID string, status RunStatus)

	// SetGraph attaches the final graph, replacing any previous one.
	// Unknown run ids are ignored.
	SetGraph(runID string, graph Graph)

	// Get returns a defensive snapshot of the run.
	Get(runID string) (Run, bool)

	// List returns snapshots of every tracked run, in no particular order.
	List() []Run

	// Reset drops every tracked run and reports how many were dropped.
	Reset() int
}
