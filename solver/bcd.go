// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"errors"

	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/benchmark-group-logreg/objective"
)

// bcd is a proximal block coordinate descent over the groups.
// Each epoch visits the groups in order and takes a proximal gradient step
// on one group with its own step size 1/L_g, where L_g = ‖X_g‖₂² / 4n bounds
// the curvature of the logistic loss restricted to the group.
//
// # Reference:
//
//   - https://github.com/scikit-learn-contrib/skglm/blob/main/skglm/solvers/group_bcd.py
type bcd struct {
	in  *objective.Input
	tol float64

	lips []float64 // per group Lipschitz constant, 0 for empty groups

	w    []float64 // p
	xw   []float64 // n, margins X·w
	r    []float64 // n
	grad []float64 // p
	tmp  []float64 // p
}

func (s *bcd) init(in *objective.Input, cfg *Config) error {
	n, p := in.X.Dims()
	s.in, s.tol = in, cfg.Tol

	part := in.Partition
	s.lips = make([]float64, part.NumGroups())
	for g := range s.lips {
		idx := part.Group(g)
		if len(idx) == 0 {
			continue
		}
		sn, err := spectralNorm(columns(in.X, idx))
		if err != nil {
			return err
		}
		s.lips[g] = sn * sn / (4 * float64(n))
	}

	s.w = make([]float64, p)
	s.xw = make([]float64, n)
	s.r = make([]float64, n)
	s.grad = make([]float64, p)
	s.tmp = make([]float64, p)
	return nil
}

func (s *bcd) reset() {
	clear(s.w)
	clear(s.xw)
}

func (s *bcd) resumable() bool { return true }

func (s *bcd) coef() []float64 { return s.w }

func (s *bcd) advance(n int) (int, bool, error) {
	for k := 0; k < n; k++ {
		s.epoch()
		s.in.GradientFromMargins(s.grad, s.xw)
		if s.in.KKTViolation(s.w, s.grad) <= s.tol {
			return k + 1, true, nil
		}
	}
	return n, false, nil
}

func (s *bcd) epoch() {
	raw := s.in.X.RawMatrix()
	rows, stride, data := raw.Rows, raw.Stride, raw.Data
	part := s.in.Partition

	for g, lip := range s.lips {
		if lip == 0 {
			continue
		}
		idx := part.Group(g)

		s.in.Residuals(s.r, s.xw)
		for _, j := range idx {
			sum := 0.
			for i := 0; i < rows; i++ {
				sum += data[i*stride+j] * s.r[i]
			}
			s.tmp[j] = s.w[j] - sum/lip
		}

		blockSoftThreshold(s.tmp, s.tmp, idx, s.in.Alpha*s.in.Weight(g)/lip)

		for _, j := range idx {
			delta := s.tmp[j] - s.w[j]
			if delta == 0 {
				continue
			}
			for i := 0; i < rows; i++ {
				s.xw[i] += data[i*stride+j] * delta
			}
			s.w[j] = s.tmp[j]
		}
	}
}

// columns copies the columns idx of X into a new matrix.
func columns(X *mat.Dense, idx []int) *mat.Dense {
	n, _ := X.Dims()
	sub := mat.NewDense(n, len(idx), nil)
	col := make([]float64, n)
	for k, j := range idx {
		mat.Col(col, j, X)
		sub.SetCol(k, col)
	}
	return sub
}

// spectralNorm returns the largest singular value of X.
func spectralNorm(X mat.Matrix) (float64, error) {
	var svd mat.SVD
	if !svd.Factorize(X, mat.SVDNone) {
		return 0, errors.New("singular value decomposition failed")
	}
	return svd.Values(nil)[0], nil
}
