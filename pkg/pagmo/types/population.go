package types

import (
	"fmt"
	"math/rand"
)

// Individual is one candidate solution: a decision vector, its
// velocity (used by some algorithms, otherwise left at zero length),
// and its fitness as evaluated against the population's problem at
// insertion time.
type Individual struct {
	DecisionVector []float64
	Velocity       []float64
	Fitness        float64
}

// Population is an ordered sequence of individuals plus a reference to
// the problem they were evaluated against. Every individual's decision
// vector length must equal the problem's bound length; Insert panics
// otherwise, per the spec's "programming error at the API boundary"
// classification for this invariant.
type Population struct {
	problem     Problem
	individuals []Individual
}

// NewPopulation creates an empty population bound to problem.
func NewPopulation(problem Problem) *Population {
	return &Population{problem: problem}
}

// NewRandomPopulation creates a population of n individuals with
// uniformly random decision vectors within the problem's bounds and
// zero-length velocities. rng must be the island's own isolated random
// source, never a process-global one (see SPEC_FULL.md §5).
func NewRandomPopulation(problem Problem, n int, rng *rand.Rand) *Population {
	pop := NewPopulation(problem)
	lower, upper := problem.Bounds()
	dim := len(lower)
	for i := 0; i < n; i++ {
		x := make([]float64, dim)
		for j := 0; j < dim; j++ {
			x[j] = lower[j] + rng.Float64()*(upper[j]-lower[j])
		}
		pop.Insert(Individual{
			DecisionVector: x,
			Fitness:        problem.Fitness(x),
		})
	}
	return pop
}

// Problem returns the population's bound problem.
func (p *Population) Problem() Problem {
	return p.problem
}

// Size returns the number of individuals.
func (p *Population) Size() int {
	return len(p.individuals)
}

// At returns the individual at index i.
func (p *Population) At(i int) Individual {
	return p.individuals[i]
}

// Individuals returns the population's individuals. The returned slice
// must not be mutated by the caller.
func (p *Population) Individuals() []Individual {
	return p.individuals
}

// Insert appends x to the population. It panics if x's decision vector
// length does not match the problem's bound length: per spec.md §7
// point 6, a population size mismatch on insert is a programming
// error at the API boundary, not a recoverable condition.
func (p *Population) Insert(x Individual) {
	lower, _ := p.problem.Bounds()
	if len(x.DecisionVector) != len(lower) {
		panic(fmt.Sprintf("pagmo: invariant violation: cannot insert individual of size %d into population with problem dimension %d",
			len(x.DecisionVector), len(lower)))
	}
	p.individuals = append(p.individuals, x)
}

// Replace discards the current individuals and installs replacement
// wholesale, keeping the population's existing Problem reference. This
// is the operation the island engine performs when a network message
// is decoded (spec.md §4.5, "replace the local population wholesale").
func (p *Population) Replace(replacement []Individual) {
	p.individuals = replacement
}

// Equal reports whether two populations hold the same individuals in
// the same order, bitwise on every float64 field. Used by tests to
// check the round-trip and replacement invariants in spec.md §8; not
// needed by the island engine itself.
func (p *Population) Equal(other *Population) bool {
	if p.Size() != other.Size() {
		return false
	}
	for i := range p.individuals {
		a, b := p.individuals[i], other.individuals[i]
		if a.Fitness != b.Fitness {
			return false
		}
		if !equalFloatSlice(a.DecisionVector, b.DecisionVector) {
			return false
		}
		if !equalFloatSlice(a.Velocity, b.Velocity) {
			return false
		}
	}
	return true
}

func equalFloatSlice(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
