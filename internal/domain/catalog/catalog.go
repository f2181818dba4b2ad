package catalog

import (
	"detective_lab/internal/common"
	"detective_lab/internal/domain/model"

	"github.com/gosimple/slug"
)

// Catalog is the fixed, ordered set of cases. It is built once and never mutated.
type Catalog struct {
	cases []model.Case
	index map[string]int
}

// New validates cases and builds a catalog. Ids default to the slug of the title.
// A prerequisite must name a case declared earlier, which keeps the graph acyclic.
func New(cases []model.Case) (*Catalog, error) {
	c := &Catalog{
		cases: make([]model.Case, 0, len(cases)),
		index: make(map[string]int, len(cases)),
	}
	for _, cs := range cases {
		if cs.Title == "" {
			return nil, common.Errorf("case without title: %w", common.ErrValidation)
		}
		if cs.ID == "" {
			cs.ID = slug.Make(cs.Title)
		}
		if _, dup := c.index[cs.ID]; dup {
			return nil, common.Errorf("duplicate case id %q: %w", cs.ID, common.ErrValidation)
		}
		if cs.Prerequisite != "" {
			if _, ok := c.index[cs.Prerequisite]; !ok {
				return nil, common.Errorf("case %q requires %q which is not declared before it: %w", cs.ID, cs.Prerequisite, common.ErrValidation)
			}
		}
		if cs.Predicate.Check == nil || len(cs.Predicate.Params) == 0 {
			return nil, common.Errorf("case %q has no predicate or declares no parameters: %w", cs.ID, common.ErrValidation)
		}
		if cs.Reward < 0 {
			return nil, common.Errorf("case %q has a negative reward: %w", cs.ID, common.ErrValidation)
		}
		c.index[cs.ID] = len(c.cases)
		c.cases = append(c.cases, cs)
	}
	return c, nil
}

// Chain gives every case without a prerequisite the case declared right before it.
func Chain(cases []model.Case) []model.Case {
	out := make([]model.Case, len(cases))
	copy(out, cases)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = slug.Make(out[i].Title)
		}
		if i > 0 && out[i].Prerequisite == "" {
			out[i].Prerequisite = out[i-1].ID
		}
	}
	return out
}

// List returns the cases in declaration order.
func (c *Catalog) List() []model.Case {
	out := make([]model.Case, len(c.cases))
	copy(out, c.cases)
	return out
}

func (c *Catalog) Get(id string) (model.Case, error) {
	i, ok := c.index[id]
	if !ok {
		return model.Case{}, common.Errorf("case %q: %w", id, common.ErrNotFound)
	}
	return c.cases[i], nil
}

// IsUnlocked reports whether the case can be attempted given the solved set.
// Unknown ids are never unlocked.
func (c *Catalog) IsUnlocked(id string, solved model.SolvedSet) bool {
	cs, err := c.Get(id)
	if err != nil {
		return false
	}
	return cs.Prerequisite == "" || solved.Contains(cs.Prerequisite)
}

func (c *Catalog) Overview(progress *model.ProgressRecord) []model.CaseOverview {
	solved := model.SolvedSet{}
	if progress != nil {
		solved = progress.Solved()
	}
	out := make([]model.CaseOverview, 0, len(c.cases))
	for _, cs := range c.cases {
		out = append(out, model.CaseOverview{
			ID:           cs.ID,
			Title:        cs.Title,
			Concept:      cs.Concept,
			Prerequisite: cs.Prerequisite,
			Locked:       !c.IsUnlocked(cs.ID, solved),
			Solved:       solved.Contains(cs.ID),
		})
	}
	return out
}

// Graph returns the solved cases in catalog order and the prerequisite edges
// whose both ends are solved.
func (c *Catalog) Graph(solved model.SolvedSet) model.CaseGraph {
	graph := model.CaseGraph{Nodes: []model.GraphNode{}, Edges: []model.GraphEdge{}}
	for _, cs := range c.cases {
		if !solved.Contains(cs.ID) {
			continue
		}
		graph.Nodes = append(graph.Nodes, model.GraphNode{ID: cs.ID, Title: cs.Title})
		if cs.Prerequisite != "" && solved.Contains(cs.Prerequisite) {
			graph.Edges = append(graph.Edges, model.GraphEdge{From: cs.Prerequisite, To: cs.ID})
		}
	}
	return graph
}
