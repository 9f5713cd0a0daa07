// Package solver implements the nonsmooth nonlinear conjugate gradient (NNCG)
// method for the velocity-level complementarity problem built from contacts
// and joints.
//
// Every iteration is a projected Gauss-Seidel sweep over the rows. The change
// produced by the sweep is combined with the previous search direction using
// beta = rnew/rold, where r is the squared norm of the multiplier changes,
// and the direction is restarted whenever beta exceeds 1. The right hand side
// is normalised by its norm during the iterations and the result scaled back
// once at the end.
//
// References:
//   - Silcowitz-Hansen, Niebe, Erleben: "A nonsmooth nonlinear conjugate gradient
//     method for interactive contact force problems" (2010)
package solver

import (
	"math"

	"github.com/akmonengine/quill/actor"
)

const (
	DefaultMaxIterations = 50
	DefaultMaxRestarts   = 13250
	DefaultEpsilon       = 1e-31

	// minDiagonal guards rows with a degenerate Jacobian
	minDiagonal = 1e-14
)

// NNCG is the solver configuration. It keeps no state between calls.
type NNCG struct {
	MaxIterations int
	MaxRestarts   int
	// Epsilon bounds the squared norm of the multiplier changes of a sweep
	Epsilon float64
}

func NewNNCG() *NNCG {
	return &NNCG{
		MaxIterations: DefaultMaxIterations,
		MaxRestarts:   DefaultMaxRestarts,
		Epsilon:       DefaultEpsilon,
	}
}

// Stats describes a solve
type Stats struct {
	Iterations int
	Restarts   int
	// Residual is the squared norm of the last sweep's multiplier changes
	Residual float64
	// Norm is the norm of the right hand side used for the normalisation
	Norm float64
}

// Solve computes the multipliers of every row and the resulting Delta
// accumulator of every body. Row Lambda values are used as a warm start.
// The solver never fails: it stops on convergence or on the iteration and
// restart caps and leaves its best state.
func (s *NNCG) Solve(rows *Rows, bodies []*actor.Body) Stats {
	var stats Stats

	for _, body := range bodies {
		body.Delta = actor.Accumulator{}
		body.Search = actor.Accumulator{}
		body.Previous = actor.Accumulator{}
	}

	norm := 0.0
	for i := range rows.rows {
		row := &rows.rows[i]
		a, b := bodies[row.Body1], bodies[row.Body2]
		row.Fext = row.Velocity(a.External, b.External)
		row.d, row.residual = 0, 0
		norm += (row.B + row.Fext) * (row.B + row.Fext)
	}
	norm = math.Sqrt(norm)
	stats.Norm = norm

	if norm < 1e-300 {
		// zero right hand side: nothing pushes on any row
		for i := range rows.rows {
			rows.rows[i].Lambda = 0
		}
		return stats
	}
	inverse := 1 / norm

	// warm start in normalised units
	for i := range rows.rows {
		row := &rows.rows[i]
		row.Lambda *= inverse
		row.lower, row.upper = row.Lower*inverse, row.Upper*inverse
		if row.Lambda != 0 {
			row.apply(&bodies[row.Body1].Delta, &bodies[row.Body2].Delta, row.Lambda)
		}
	}

	rnew, beta := 0.0, 0.0
	for {
		for _, body := range bodies {
			body.Previous = body.Delta
		}

		rold := rnew
		rnew = 0
		for i := range rows.rows {
			row := &rows.rows[i]
			a, b := &bodies[row.Body1].Delta, &bodies[row.Body2].Delta

			alpha := beta * row.d
			row.Lambda += alpha
			row.d = alpha + row.residual

			if row.Diagonal < minDiagonal {
				row.residual = 0
				continue
			}

			w := row.Velocity(*a, *b)
			delta := -((row.B+row.Fext)*inverse + w) / row.Diagonal

			if row.Coupling != NoCoupling {
				coupled := &rows.rows[row.Coupling]
				bound := math.Abs(coupled.Lambda) * row.Mu
				row.lower, row.upper = -bound, bound
			}

			lambda := max(row.lower, min(row.Lambda+delta, row.upper))
			delta = lambda - row.Lambda

			row.apply(a, b, delta)
			row.Lambda = lambda
			rnew += delta * delta
			row.residual = delta
		}
		stats.Iterations++
		stats.Residual = rnew

		if rnew < s.Epsilon || stats.Iterations >= s.MaxIterations || stats.Restarts > s.MaxRestarts {
			break
		}

		if rold == 0 {
			beta = 0
		} else {
			beta = rnew / rold
		}
		if beta > 1 || stats.Iterations == 1 {
			beta = 0
			stats.Restarts++
		}

		// search = beta*search + sweep change, and the body half of the
		// beta*d step that the rows take at the start of the next sweep
		for _, body := range bodies {
			change := body.Delta.Sub(body.Previous)
			body.Search = body.Search.Scale(beta)
			body.Delta = body.Delta.Add(body.Search)
			body.Search = body.Search.Add(change)
		}
	}

	// back to physical units
	for i := range rows.rows {
		row := &rows.rows[i]
		row.apply(&bodies[row.Body1].Delta, &bodies[row.Body2].Delta, (norm-1)*row.Lambda)
		row.Lambda *= norm
		if row.Coupling != NoCoupling {
			row.Lower, row.Upper = row.lower*norm, row.upper*norm
		}
	}

	return stats
}
