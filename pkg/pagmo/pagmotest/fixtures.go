package pagmotest

import "github.com/jdiez17/pagmo/pkg/pagmo/types"

// BoxProblem is a trivial box-constrained Problem test double: n
// dimensions, each bounded to [0, 1], fitness equal to the sum of the
// decision vector.
type BoxProblem struct {
	Dimensions int
}

func (p BoxProblem) Bounds() (lower, upper []float64) {
	lower = make([]float64, p.Dimensions)
	upper = make([]float64, p.Dimensions)
	for i := range upper {
		upper[i] = 1
	}
	return lower, upper
}

func (p BoxProblem) Fitness(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v
	}
	return sum
}

func (p BoxProblem) Clone() types.Problem { return p }

// NoopAlgorithm is an Algorithm test double that leaves the population
// untouched, so tests can isolate network behaviour from local search.
type NoopAlgorithm struct{}

func (NoopAlgorithm) Evolve(pop *types.Population) {}
func (NoopAlgorithm) Name() string                 { return "noop" }
func (NoopAlgorithm) Clone() types.Algorithm       { return NoopAlgorithm{} }

// CountingAlgorithm counts how many times Evolve has run, so tests can
// assert on tick-to-local-step correspondence without depending on
// actual numerical behaviour.
type CountingAlgorithm struct {
	Calls int
}

func (a *CountingAlgorithm) Evolve(pop *types.Population) { a.Calls++ }
func (a *CountingAlgorithm) Name() string                 { return "counting" }
func (a *CountingAlgorithm) Clone() types.Algorithm       { return &CountingAlgorithm{} }
