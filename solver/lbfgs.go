// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/curioloop/benchmark-group-logreg/objective"
)

// lbfgs minimizes the logistic loss plus the smoothed penalty
//
//	α Σ_g w_g (sqrt(‖β_g‖² + μ²) - μ)
//
// with the limited memory BFGS method of gonum. The smoothed problem only
// approximates the group lasso, its minimizer is dense with entries of
// order μ on the groups that the exact problem zeroes out.
//
// The method keeps no state between calls, every advance starts from zero.
type lbfgs struct {
	in     *objective.Input
	tol    float64
	mu     float64
	memory int

	w []float64
}

func (s *lbfgs) init(in *objective.Input, cfg *Config) error {
	s.in, s.tol, s.mu, s.memory = in, cfg.Tol, cfg.Smoothing, cfg.Memory
	s.w = make([]float64, in.NumFeatures())
	return nil
}

func (s *lbfgs) reset() { clear(s.w) }

func (s *lbfgs) resumable() bool { return false }

func (s *lbfgs) coef() []float64 { return s.w }

func (s *lbfgs) advance(n int) (int, bool, error) {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return s.eval(x, nil)
		},
		Grad: func(grad, x []float64) {
			s.eval(x, grad)
		},
	}
	settings := &optimize.Settings{
		// The starting location is reported as the first major iteration.
		MajorIterations:   n + 1,
		GradientThreshold: s.tol,
		Converger:         optimize.NeverTerminate{},
	}

	method := &optimize.LBFGS{Store: s.memory, GradStopThreshold: s.tol}
	res, err := optimize.Minimize(problem, make([]float64, len(s.w)), settings, method)
	if res == nil {
		return 0, false, err
	}
	copy(s.w, res.X)
	done := max(res.MajorIterations-1, 0)

	switch {
	case err == nil:
		return done, res.Status != optimize.IterationLimit, nil
	case errors.Is(err, optimize.ErrLinesearcherFailure),
		errors.Is(err, optimize.ErrNoProgress),
		errors.Is(err, optimize.ErrNonDescentDirection):
		// The line search stalls once the smoothed problem is solved to
		// machine precision, the location is kept.
		return done, false, fmt.Errorf("%w: %v", ErrNotConverged, err)
	}
	return done, false, err
}

// eval returns the smoothed objective at x, storing its gradient into grad
// when grad is not nil.
func (s *lbfgs) eval(x, grad []float64) float64 {
	in := s.in
	m := in.Margins(nil, x)
	f := in.DatafitFromMargins(m)
	if grad != nil {
		in.GradientFromMargins(grad, m)
	}

	part := in.Partition
	for g := 0; g < part.NumGroups(); g++ {
		lambda := in.Alpha * in.Weight(g)
		if lambda == 0 {
			continue
		}
		idx := part.Group(g)
		h := math.Hypot(objective.GroupNorm(x, idx), s.mu)
		f += lambda * (h - s.mu)
		if grad != nil {
			for _, j := range idx {
				grad[j] += lambda * x[j] / h
			}
		}
	}
	return f
}
