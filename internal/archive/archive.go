// Package archive keeps an in-memory full-text index over persisted runs so
// past queries and the professors they surfaced can be searched again. The
// index is rebuilt from the store at startup; losing it costs nothing but a
// rebuild.
package archive

import (
	"log"
	"sync"

	"github.com/blevesearch/bleve"

	"github.com/mohammad-safakhou/netresearch/internal/runs"
)

// runDoc is the indexed projection of a saved run.
type runDoc struct {
	Query      string   `json:"query"`
	Professors []string `json:"professors"`
	Topics     []string `json:"topics"`
}

// Hit is one search result.
type Hit struct {
	RunID string  `json:"run_id"`
	Query string  `json:"query"`
	Score float64 `json:"score"`
}

// Archive wraps a memory-only bleve index.
type Archive struct {
	mu     sync.RWMutex
	index  bleve.Index
	docs   map[string]runDoc
	logger *log.Logger
}

func New(logger *log.Logger) (*Archive, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[ARCHIVE] ", log.LstdFlags)
	}
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Archive{index: index, docs: make(map[string]runDoc), logger: logger}, nil
}

// IndexRun adds or replaces a run in the index. Professor names and the
// topic labels of their papers become searchable alongside the query text.
func (a *Archive) IndexRun(runID, query string, graph *runs.Graph) {
	doc := runDoc{Query: query}
	if graph != nil {
		for _, n := range graph.Nodes {
			if n.Type != runs.NodeTypeProfessor {
				continue
			}
			doc.Professors = append(doc.Professors, n.Name)
			for _, p := range n.Papers {
				if p.Topic != nil {
					doc.Topics = append(doc.Topics, *p.Topic)
				}
			}
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.docs[runID] = doc
	if err := a.index.Index(runID, doc); err != nil {
		a.logger.Printf("index run %s: %v", runID, err)
	}
}

// Search runs a query-string search and returns at most k hits.
func (a *Archive) Search(q string, k int) ([]Hit, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	query := bleve.NewQueryStringQuery(q)
	searchReq := bleve.NewSearchRequestOptions(query, k*3, 0, false)
	res, err := a.index.Search(searchReq)
	if err != nil {
		return nil, err
	}
	var out []Hit
	for _, hit := range res.Hits {
		out = append(out, Hit{
			RunID: hit.ID,
			Query: a.docs[hit.ID].Query,
			Score: hit.Score,
		})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

// Size reports how many runs are indexed.
func (a *Archive) Size() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.docs)
}
