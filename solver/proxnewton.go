// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/benchmark-group-logreg/objective"
)

const (
	pnMaxInner     = 20   // coordinate descent passes per direction
	pnInnerRatio   = 0.3  // inner passes stop below this fraction of the outer violation
	pnMaxBacktrack = 20   // step halvings per line search
	pnArmijo       = 1e-4 // sufficient decrease constant
)

// proxNewton is the proximal Newton method. Each outer iteration minimizes
// the quadratic model of the logistic loss around w plus the group penalty
// with block coordinate descent, then backtracks along the direction until
// the objective decreases sufficiently.
//
// # Reference:
//
//   - J. Lee, Y. Sun, M. Saunders. Proximal Newton-type methods for
//     minimizing composite functions. SIAM J. Optimization, 2014.
//   - https://github.com/scikit-learn-contrib/skglm/blob/main/skglm/solvers/group_prox_newton.py
type proxNewton struct {
	in  *objective.Input
	tol float64

	cols []*mat.Dense // per group column copies of X
	lips []float64    // per group Lipschitz constants of the model

	w    []float64 // p
	d    []float64 // p, direction
	grad []float64 // p
	tmp  []float64 // p

	xw []float64 // n, margins X·w
	xd []float64 // n, X·d
	h  []float64 // n, Hessian weights
	mt []float64 // n
}

func (s *proxNewton) init(in *objective.Input, cfg *Config) error {
	n, p := in.X.Dims()
	s.in, s.tol = in, cfg.Tol

	part := in.Partition
	s.cols = make([]*mat.Dense, part.NumGroups())
	for g := range s.cols {
		if idx := part.Group(g); len(idx) > 0 {
			s.cols[g] = columns(in.X, idx)
		}
	}
	s.lips = make([]float64, part.NumGroups())

	s.w = make([]float64, p)
	s.d = make([]float64, p)
	s.grad = make([]float64, p)
	s.tmp = make([]float64, p)
	s.xw = make([]float64, n)
	s.xd = make([]float64, n)
	s.h = make([]float64, n)
	s.mt = make([]float64, n)
	return nil
}

func (s *proxNewton) reset() {
	clear(s.w)
	clear(s.xw)
}

func (s *proxNewton) resumable() bool { return true }

func (s *proxNewton) coef() []float64 { return s.w }

func (s *proxNewton) advance(n int) (int, bool, error) {
	for k := 0; k < n; k++ {
		s.in.GradientFromMargins(s.grad, s.xw)
		viol := s.in.KKTViolation(s.w, s.grad)
		if viol <= s.tol {
			return k, true, nil
		}
		if err := s.hessian(); err != nil {
			return k, false, err
		}
		s.direction(viol)
		if !s.backtrack() {
			return k, false, fmt.Errorf("%w: line search failed at iteration %d", ErrNotConverged, k+1)
		}
	}
	s.in.GradientFromMargins(s.grad, s.xw)
	return n, s.in.KKTViolation(s.w, s.grad) <= s.tol, nil
}

// hessian refreshes the Hessian weights at w and the group constants
// L_g = ‖diag(√h) X_g‖₂².
func (s *proxNewton) hessian() error {
	s.in.HessianWeights(s.h, s.xw)
	for i, v := range s.h {
		s.mt[i] = math.Sqrt(v)
	}
	for g, cols := range s.cols {
		if cols == nil {
			continue
		}
		var scaled mat.Dense
		scaled.Apply(func(i, _ int, v float64) float64 { return s.mt[i] * v }, cols)
		sn, err := spectralNorm(&scaled)
		if err != nil {
			return err
		}
		s.lips[g] = sn * sn
	}
	return nil
}

// direction minimizes ∇f·d + ½ dᵀXᵀdiag(h)Xd + penalty(w+d) over d by
// proximal block coordinate descent started from d = 0.
func (s *proxNewton) direction(viol float64) {
	clear(s.d)
	clear(s.xd)

	raw := s.in.X.RawMatrix()
	rows, stride, data := raw.Rows, raw.Stride, raw.Data
	part := s.in.Partition

	for pass := 0; pass < pnMaxInner; pass++ {
		worst := 0.
		for g, lip := range s.lips {
			if lip == 0 {
				continue
			}
			idx := part.Group(g)

			for i := range s.mt {
				s.mt[i] = s.h[i] * s.xd[i]
			}
			for _, j := range idx {
				sum := 0.
				for i := 0; i < rows; i++ {
					sum += data[i*stride+j] * s.mt[i]
				}
				s.tmp[j] = s.w[j] + s.d[j] - (s.grad[j]+sum)/lip
			}

			blockSoftThreshold(s.tmp, s.tmp, idx, s.in.Alpha*s.in.Weight(g)/lip)

			change := 0.
			for _, j := range idx {
				delta := s.tmp[j] - s.w[j] - s.d[j]
				if delta == 0 {
					continue
				}
				change += delta * delta
				for i := 0; i < rows; i++ {
					s.xd[i] += data[i*stride+j] * delta
				}
				s.d[j] += delta
			}
			worst = math.Max(worst, lip*math.Sqrt(change))
		}
		if worst <= pnInnerRatio*viol {
			break
		}
	}
}

// backtrack halves the step t until
//
//	F(w + t d) ≤ F(w) + c t (∇f·d + penalty(w+d) - penalty(w))
//
// and moves w there. It reports false when no step is accepted.
func (s *proxNewton) backtrack() bool {
	in := s.in
	pw := in.Penalty(s.w)
	f0 := in.DatafitFromMargins(s.xw) + pw

	for j := range s.tmp {
		s.tmp[j] = s.w[j] + s.d[j]
	}
	decrease := floats.Dot(s.grad, s.d) + in.Penalty(s.tmp) - pw
	// Rounding of F near a solution.
	slack := 1e-15 * math.Abs(f0)

	t := 1.
	for k := 0; k < pnMaxBacktrack; k++ {
		for j := range s.tmp {
			s.tmp[j] = s.w[j] + t*s.d[j]
		}
		for i := range s.mt {
			s.mt[i] = s.xw[i] + t*s.xd[i]
		}
		if f := in.DatafitFromMargins(s.mt) + in.Penalty(s.tmp); f <= f0+pnArmijo*t*decrease+slack {
			copy(s.w, s.tmp)
			copy(s.xw, s.mt)
			return true
		}
		t /= 2
	}
	return false
}
