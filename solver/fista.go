// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"math"

	"github.com/curioloop/benchmark-group-logreg/objective"
)

// fista is the accelerated proximal gradient method with constant step 1/L,
// L = ‖X‖₂² / 4n being the Lipschitz constant of the whole datafit gradient.
//
// # Reference:
//
//   - A. Beck, M. Teboulle. A Fast Iterative Shrinkage-Thresholding Algorithm
//     for Linear Inverse Problems. SIAM J. Imaging Sciences, 2009.
//   - https://github.com/yngvem/group-lasso
type fista struct {
	in  *objective.Input
	tol float64
	lip float64

	t    float64
	w    []float64 // p, current iterate
	prev []float64 // p
	z    []float64 // p, extrapolated point
	grad []float64 // p
	m    []float64 // n
}

func (s *fista) init(in *objective.Input, cfg *Config) error {
	n, p := in.X.Dims()
	s.in, s.tol = in, cfg.Tol

	sn, err := spectralNorm(in.X)
	if err != nil {
		return err
	}
	s.lip = sn * sn / (4 * float64(n))
	if s.lip == 0 {
		s.lip = 1
	}

	s.w = make([]float64, p)
	s.prev = make([]float64, p)
	s.z = make([]float64, p)
	s.grad = make([]float64, p)
	s.m = make([]float64, n)
	return nil
}

func (s *fista) reset() {
	clear(s.w)
	clear(s.prev)
	clear(s.z)
	s.t = 1
}

func (s *fista) resumable() bool { return true }

func (s *fista) coef() []float64 { return s.w }

func (s *fista) advance(n int) (int, bool, error) {
	part := s.in.Partition
	for k := 0; k < n; k++ {
		s.in.GradientFromMargins(s.grad, s.in.Margins(s.m, s.z))
		for j := range s.z {
			s.z[j] -= s.grad[j] / s.lip
		}

		copy(s.prev, s.w)
		for g := 0; g < part.NumGroups(); g++ {
			blockSoftThreshold(s.w, s.z, part.Group(g), s.in.Alpha*s.in.Weight(g)/s.lip)
		}

		t := (1 + math.Sqrt(1+4*s.t*s.t)) / 2
		mom := (s.t - 1) / t
		for j := range s.z {
			s.z[j] = s.w[j] + mom*(s.w[j]-s.prev[j])
		}
		s.t = t

		s.in.GradientFromMargins(s.grad, s.in.Margins(s.m, s.w))
		if s.in.KKTViolation(s.w, s.grad) <= s.tol {
			return k + 1, true, nil
		}
	}
	return n, false, nil
}
