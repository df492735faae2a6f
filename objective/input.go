// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package objective

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/benchmark-group-logreg/partition"
)

// Input is the data handed from the objective to a solver:
// X, y, alpha and the group partition, plus optional per-group weights.
// Solvers must treat every field as read-only.
type Input struct {
	X         *mat.Dense
	Y         []float64
	Alpha     float64
	Partition *partition.Partition
	// Weights has one entry per group; nil means uniform weight 1.
	Weights []float64
}

// Check validates the shapes of the input.
func (in *Input) Check() error {
	if in.X == nil || in.Partition == nil {
		return fmt.Errorf("%w: design and partition are required", ErrShape)
	}
	n, p := in.X.Dims()
	switch {
	case len(in.Y) != n:
		return fmt.Errorf("%w: %d labels for %d samples", ErrShape, len(in.Y), n)
	case in.Partition.NumFeatures() != p:
		return fmt.Errorf("%w: partition covers %d features, design has %d",
			ErrShape, in.Partition.NumFeatures(), p)
	case in.Weights != nil && len(in.Weights) != in.Partition.NumGroups():
		return fmt.Errorf("%w: %d weights for %d groups",
			ErrShape, len(in.Weights), in.Partition.NumGroups())
	case in.Alpha < 0 || math.IsNaN(in.Alpha):
		return fmt.Errorf("%w: regularization must be non-negative", ErrConfig)
	}
	if err := in.Partition.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrShape, err)
	}
	for g, w := range in.Weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: invalid weight %v for group %d", ErrConfig, w, g)
		}
	}
	return nil
}

// NumFeatures returns the coefficient dimension.
func (in *Input) NumFeatures() int {
	_, p := in.X.Dims()
	return p
}

// Weight returns the penalty weight of group g.
func (in *Input) Weight(g int) float64 {
	if in.Weights == nil {
		return 1
	}
	return in.Weights[g]
}

// Margins computes m = X·beta into dst, allocating when dst is nil.
func (in *Input) Margins(dst, beta []float64) []float64 {
	n, p := in.X.Dims()
	if dst == nil {
		dst = make([]float64, n)
	}
	mat.NewVecDense(n, dst).MulVec(in.X, mat.NewVecDense(p, beta))
	return dst
}

// DatafitFromMargins returns the mean logistic loss for margins m = X·beta.
func (in *Input) DatafitFromMargins(m []float64) float64 {
	sum := 0.
	for i, v := range m {
		sum += logLoss(in.Y[i] * v)
	}
	return sum / float64(len(m))
}

// Residuals stores r = -y ⊙ σ(-y ⊙ m) / n into dst, the derivative of the
// datafit with respect to the margins. A nil dst is allocated.
func (in *Input) Residuals(dst, m []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(m))
	}
	n := float64(len(m))
	for i, v := range m {
		dst[i] = -in.Y[i] * sigmoid(-in.Y[i]*v) / n
	}
	return dst
}

// HessianWeights stores h = σ(m) ⊙ (1 - σ(m)) / n into dst, so that the
// datafit Hessian is Xᵀ diag(h) X. A nil dst is allocated.
func (in *Input) HessianWeights(dst, m []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(m))
	}
	n := float64(len(m))
	for i, v := range m {
		s := sigmoid(v)
		dst[i] = s * (1 - s) / n
	}
	return dst
}

// GradientFromMargins stores ∇f(beta) = Xᵀr into grad, r being the Residuals of m.
func (in *Input) GradientFromMargins(grad, m []float64) {
	n, p := in.X.Dims()
	r := in.Residuals(nil, m)
	mat.NewVecDense(p, grad).MulVec(in.X.T(), mat.NewVecDense(n, r))
}

// Penalty returns Σ_g alpha·w_g·‖beta_g‖₂.
func (in *Input) Penalty(beta []float64) float64 {
	sum := 0.
	for g := 0; g < in.Partition.NumGroups(); g++ {
		if w := in.Weight(g); w != 0 {
			sum += w * GroupNorm(beta, in.Partition.Group(g))
		}
	}
	return in.Alpha * sum
}

// KKTViolation measures how far beta is from optimality: the largest
// group-wise distance between -∇f(beta) and the subdifferential of the penalty.
// grad must hold ∇f(beta).
func (in *Input) KKTViolation(beta, grad []float64) float64 {
	worst := 0.
	buf := make([]float64, 0, in.NumFeatures())
	for g := 0; g < in.Partition.NumGroups(); g++ {
		idx := in.Partition.Group(g)
		lambda := in.Alpha * in.Weight(g)
		gradNorm := GroupNorm(grad, idx)

		var v float64
		switch bNorm := GroupNorm(beta, idx); {
		case lambda == 0:
			v = gradNorm
		case bNorm == 0:
			v = math.Max(0, gradNorm-lambda)
		default:
			buf = buf[:0]
			for _, j := range idx {
				buf = append(buf, grad[j]+lambda*beta[j]/bNorm)
			}
			v = floats.Norm(buf, 2)
		}
		worst = math.Max(worst, v)
	}
	return worst
}

// GroupNorm returns the euclidean norm of v restricted to idx.
func GroupNorm(v []float64, idx []int) float64 {
	scale, ssq := 0., 1.
	for _, j := range idx {
		if v[j] == 0 {
			continue
		}
		a := math.Abs(v[j])
		if scale < a {
			ssq = 1 + ssq*(scale/a)*(scale/a)
			scale = a
		} else {
			ssq += (a / scale) * (a / scale)
		}
	}
	return scale * math.Sqrt(ssq)
}

// logLoss evaluates log(1 + exp(-z)) without overflow.
func logLoss(z float64) float64 {
	if z > 0 {
		return math.Log1p(math.Exp(-z))
	}
	return -z + math.Log1p(math.Exp(z))
}

// sigmoid evaluates 1 / (1 + exp(-z)) without overflow.
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
