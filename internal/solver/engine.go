package solver

import (
	"context"

	"github.com/haricheung/stripsbridge/internal/search"
	"github.com/haricheung/stripsbridge/internal/strips"
)

// Engine grounds a STRIPS problem and searches the resulting task.
// Search returns a nil slice and nil error when the task has no solution.
type Engine interface {
	Ground(p *strips.Problem) (*search.Task, error)
	Search(ctx context.Context, t *search.Task, strategy search.Strategy, h search.Heuristic) ([]*search.Operator, error)
}

// localEngine runs the in-process grounder and search.
type localEngine struct{}

func (localEngine) Ground(p *strips.Problem) (*search.Task, error) { return search.Ground(p) }

func (localEngine) Search(ctx context.Context, t *search.Task, strategy search.Strategy, h search.Heuristic) ([]*search.Operator, error) {
	return search.Search(ctx, t, strategy, h)
}

// DefaultEngine is the in-process engine Solve uses unless WithEngine overrides it.
func DefaultEngine() Engine { return localEngine{} }
