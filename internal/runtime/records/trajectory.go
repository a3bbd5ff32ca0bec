package records

import (
	"fmt"
	"sort"

	"github.com/kimvieware/phaseflow/internal/runtime/envelope"
	errspkg "github.com/kimvieware/phaseflow/internal/runtime/errors"
)

const trajectoryRecord = "trajectory"

// Edge is a branch from one basic block address to another.
type Edge struct {
	Source uint64
	Dest   uint64
}

// EdgeSet is an unordered set of branch edges.
type EdgeSet map[Edge]struct{}

// NewEdgeSet returns a set holding edges; duplicates collapse.
func NewEdgeSet(edges ...Edge) EdgeSet {
	s := make(EdgeSet, len(edges))
	for _, e := range edges {
		s.Add(e)
	}
	return s
}

func (s EdgeSet) Add(e Edge) { s[e] = struct{}{} }

func (s EdgeSet) Has(e Edge) bool {
	_, ok := s[e]
	return ok
}

func (s EdgeSet) Len() int { return len(s) }

// Sorted returns the edges ordered by source, then destination.
func (s EdgeSet) Sorted() []Edge {
	out := make([]Edge, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Dest < out[j].Dest
	})
	return out
}

// Trajectory is one symbolic execution path through the system under test.
type Trajectory struct {
	PathID          string
	BasicBlocks     []uint64
	PathCondition   string
	BranchesCovered EdgeSet
	Constraints     []string
	Cost            float64
	IsFeasible      bool
}

// NewTrajectory returns a feasible, zero-cost trajectory with empty
// collections.
func NewTrajectory(pathID string, blocks []uint64, condition string) Trajectory {
	return Trajectory{
		PathID:          pathID,
		BasicBlocks:     blocks,
		PathCondition:   condition,
		BranchesCovered: EdgeSet{},
		Constraints:     []string{},
		IsFeasible:      true,
	}
}

// Len is the number of basic blocks on the path.
func (t Trajectory) Len() int { return len(t.BasicBlocks) }

// Fields returns the portable form. Branches are emitted as sorted
// [source, dest] pairs.
func (t Trajectory) Fields() envelope.Fields {
	blocks := make([]any, len(t.BasicBlocks))
	for i, b := range t.BasicBlocks {
		blocks[i] = b
	}
	edges := t.BranchesCovered.Sorted()
	branches := make([]any, len(edges))
	for i, e := range edges {
		branches[i] = []any{e.Source, e.Dest}
	}
	constraints := make([]any, len(t.Constraints))
	for i, c := range t.Constraints {
		constraints[i] = c
	}
	return envelope.Fields{
		"path_id":          t.PathID,
		"basic_blocks":     blocks,
		"path_condition":   t.PathCondition,
		"branches_covered": branches,
		"constraints":      constraints,
		"cost":             t.Cost,
		"is_feasible":      t.IsFeasible,
	}
}

// TrajectoryFromFields decodes the portable form.
func TrajectoryFromFields(f envelope.Fields) (Trajectory, error) {
	if f == nil {
		return Trajectory{}, errspkg.NewDecodeError(trajectoryRecord, "", "not an object")
	}
	r := envelope.NewReader(trajectoryRecord, f)

	pathID, err := r.RequiredString("path_id")
	if err != nil {
		return Trajectory{}, err
	}
	blocks, err := r.Uint64List("basic_blocks", true)
	if err != nil {
		return Trajectory{}, err
	}
	condition, err := r.RequiredString("path_condition")
	if err != nil {
		return Trajectory{}, err
	}
	pairs, err := r.PairList("branches_covered")
	if err != nil {
		return Trajectory{}, err
	}
	constraints, err := r.StringList("constraints")
	if err != nil {
		return Trajectory{}, err
	}
	cost, err := r.OptionalFloat("cost", 0)
	if err != nil {
		return Trajectory{}, err
	}
	if cost < 0 {
		return Trajectory{}, errspkg.NewDecodeError(trajectoryRecord, "cost", "must not be negative")
	}
	feasible, err := r.OptionalBool("is_feasible", true)
	if err != nil {
		return Trajectory{}, err
	}

	branches := make(EdgeSet, len(pairs))
	for _, p := range pairs {
		branches.Add(Edge{Source: p[0], Dest: p[1]})
	}

	return Trajectory{
		PathID:          pathID,
		BasicBlocks:     blocks,
		PathCondition:   condition,
		BranchesCovered: branches,
		Constraints:     constraints,
		Cost:            cost,
		IsFeasible:      feasible,
	}, nil
}

func (t Trajectory) String() string {
	return fmt.Sprintf("Trajectory(%s, length=%d, branches=%d, cost=%.2f)",
		t.PathID, t.Len(), t.BranchesCovered.Len(), t.Cost)
}
