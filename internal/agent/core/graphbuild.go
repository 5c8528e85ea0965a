package core

import (
	"context"

	"github.com/mohammad-safakhou/netresearch/internal/runs"
)

const stepGraph = "graph-1"

// executeGraph assembles the final graph and writes it into the registry.
// This is the terminal data-producing stage.
func (o *Orchestrator) executeGraph(ctx context.Context, st *runState) error {
	o.publish(st.runID, runs.Step{
		StepID:  stepGraph,
		Type:    runs.StepTypeGraph,
		Message: "Building the final graph...",
		Status:  runs.StepInProgress,
	})
	o.pause(ctx, o.Pacing.Graph)

	graph := buildGraph(st.professors, st.links)
	o.Registry.SetGraph(st.runID, graph)

	o.publish(st.runID, runs.Step{
		StepID:  stepGraph,
		Type:    runs.StepTypeGraph,
		Message: "Building the final graph...",
		Status:  runs.StepDone,
	})
	return nil
}

// buildGraph combines the professor nodes, the single synthetic viewer node
// and the relationship links. Deterministic: identical inputs produce an
// identical graph.
func buildGraph(professors []runs.GraphNode, links []runs.GraphLink) runs.Graph {
	nodes := make([]runs.GraphNode, 0, len(professors)+1)
	nodes = append(nodes, professors...)
	nodes = append(nodes, viewerNode())
	if links == nil {
		links = []runs.GraphLink{}
	}
	return runs.Graph{Nodes: nodes, Links: links}
}

// viewerNode is the synthetic node representing the querying user.
func viewerNode() runs.GraphNode {
	return runs.GraphNode{
		ID:          runs.ViewerNodeID,
		Name:        "User",
		Type:        runs.NodeTypeUser,
		Description: "You - the researcher exploring this network",
	}
}
