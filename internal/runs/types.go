package runs

import "time"

// RunStatus is the lifecycle state of a run. Runs start running and become
// completed exactly once, whether the pipeline succeeded or not; failures are
// reported through step messages, not through a separate status.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
)

// StepType identifies which pipeline stage produced a step.
type StepType string

const (
	StepTypeIntent        StepType = "intent"
	StepTypeFilters       StepType = "filters"
	StepTypeSearch        StepType = "search"
	StepTypeExtraction    StepType = "extraction"
	StepTypeRelationships StepType = "relationships"
	StepTypeGraph         StepType = "graph"
)

// StepStatus is the visibility state of a single step.
type StepStatus string

const (
	StepInProgress StepStatus = "in_progress"
	StepDone       StepStatus = "done"
)

// Filter is what intent extraction derives from the query (and CV, when one
// is attached). Derived once per run and immutable afterwards.
type Filter struct {
	Topics            []string `json:"topics"`
	GeographicalAreas []string `json:"geographical_areas"`
	Institutions      []string `json:"institutions"`
}

// FilterPayload is the slice of Filter that filters steps carry to clients.
type FilterPayload struct {
	Topics            []string `json:"topics"`
	GeographicalAreas []string `json:"geographical_areas"`
}

// Paper is the preview projection of a catalog work.
type Paper struct {
	Title           string  `json:"title"`
	Link            *string `json:"link"`
	Abstract        string  `json:"abstract"`
	PublicationYear *int    `json:"publication_year"`
	Topic           *string `json:"topic"`
}

// ProfessorSummary is the lightweight projection published while extraction
// is still fetching full author profiles.
type ProfessorSummary struct {
	Name        string  `json:"name"`
	Institution *string `json:"institution"`
	Description string  `json:"description"`
}

// Contact holds reachability info for a professor node.
type Contact struct {
	Email   string  `json:"email"`
	Website *string `json:"website,omitempty"`
}

// GraphNode is a node in the final graph: either a professor mapped from a
// catalog author, or the single synthetic viewer node.
//
// InstitutionID is the raw catalog institution id used to group nodes during
// relationship building. It never reaches clients.
type GraphNode struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	Institution   *string  `json:"institution,omitempty"`
	InstitutionID string   `json:"-"`
	Description   string   `json:"description"`
	Contacts      *Contact `json:"contacts,omitempty"`
	WorksCount    *int     `json:"works_count,omitempty"`
	CitedByCount  *int     `json:"cited_by_count,omitempty"`
	HIndex        *int     `json:"h_index,omitempty"`
	LinkORCID     *string  `json:"link_orcid,omitempty"`
	Papers        []Paper  `json:"papers,omitempty"`
}

// Node types used in graphs.
const (
	NodeTypeProfessor = "professor"
	NodeTypeUser      = "user"
)

// ViewerNodeID is the id of the synthetic node representing the person
// exploring the graph.
const ViewerNodeID = "user-node"

// GraphLink connects two node ids. Links are directional and intentionally
// not deduplicated.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

// Link labels.
const (
	LinkSupervises   = "supervises"
	LinkInterestedIn = "interested_in"
)

// Graph is the final product of a run.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// Step is one append-only progress record. Stages re-publish under a stable
// StepID as they advance; every append is kept, and readers that want the
// current picture keep the latest step per StepID.
//
// At most one payload field is set, matching Type. Steps of type intent,
// relationships and graph carry none.
type Step struct {
	StepID    string     `json:"step_id"`
	Type      StepType   `json:"step_type"`
	Message   string     `json:"message"`
	Status    StepStatus `json:"status"`
	Timestamp time.Time  `json:"timestamp"`

	Filters *FilterPayload     `json:"filters,omitempty"`
	Papers  []Paper            `json:"papers,omitempty"`
	Sources []ProfessorSummary `json:"sources,omitempty"`
}

// Run is a snapshot of one pipeline execution.
type Run struct {
	RunID     string    `json:"run_id"`
	Query     string    `json:"query"`
	CVID      *string   `json:"cv_id,omitempty"`
	MaxNodes  int       `json:"max_nodes"`
	Status    RunStatus `json:"status"`
	Steps     []Step    `json:"steps"`
	Graph     *Graph    `json:"graph_data,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LatestSteps projects the append-only log down to the newest step per
// StepID, ordered by each id's first appearance.
func (r Run) LatestSteps() []Step {
	idx := make(map[string]int)
	var out []Step
	for _, s := range r.Steps {
		if i, ok := idx[s.StepID]; ok {
			out[i] = s
			continue
		}
		idx[s.StepID] = len(out)
		out = append(out, s)
	}
	return out
}
