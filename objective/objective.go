// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package objective evaluates the group lasso penalized logistic regression
//
//	P(β) = 1/n Σᵢ log(1 + exp(-yᵢ xᵢᵀβ)) + α Σ_g w_g ‖β_g‖₂
//
// over a ragged partition of the features, and the regularization level
// α_max above which β = 0 is the solution.
package objective

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/benchmark-group-logreg/dataset"
	"github.com/curioloop/benchmark-group-logreg/mtrand"
	"github.com/curioloop/benchmark-group-logreg/partition"
)

var (
	// ErrShape is returned when vector, matrix or partition lengths disagree.
	ErrShape = errors.New("objective: shape mismatch")

	// ErrConfig is returned for invalid objective parameters.
	ErrConfig = errors.New("objective: invalid configuration")
)

// AlphaMaxNorm selects the norm applied to X_gᵀy when computing α_max.
type AlphaMaxNorm int

const (
	// NormL2 gives the exact critical level of the group lasso penalty.
	NormL2 AlphaMaxNorm = iota
	// NormInf takes the largest absolute correlation inside each group.
	NormInf
)

func (n AlphaMaxNorm) String() string {
	switch n {
	case NormL2:
		return "l2"
	case NormInf:
		return "inf"
	}
	return fmt.Sprintf("AlphaMaxNorm(%d)", int(n))
}

// ParseNorm converts "l2" or "inf" into an AlphaMaxNorm.
func ParseNorm(s string) (AlphaMaxNorm, error) {
	switch s {
	case "l2", "2", "":
		return NormL2, nil
	case "inf", "linf":
		return NormInf, nil
	}
	return 0, fmt.Errorf("%w: unknown norm %q", ErrConfig, s)
}

// Config specifies the objective parameters of one benchmark configuration.
type Config struct {
	// NGroups is the number of groups drawn when the dataset provides no partition.
	NGroups int
	// Shuffle and Seed control the generated partition.
	Shuffle bool
	Seed    uint64
	// Alpha is the regularization strength, used when Rho is zero.
	// Alpha = 0 gives the unpenalized logistic regression.
	Alpha float64
	// Rho sets the regularization strength to Rho × α_max, with 0 < Rho ≤ 1.
	Rho float64
	// Weights optionally scales the norm of each group, default all ones.
	Weights []float64
	// Norm selects the α_max strategy.
	Norm AlphaMaxNorm
}

// New validates the configuration and creates an objective awaiting data.
func (c *Config) New() (obj *Objective, err error) {

	switch {
	case c.NGroups < 0:
		err = errors.New("number of groups must not less than 0")
	case c.Alpha < 0 || math.IsNaN(c.Alpha) || math.IsInf(c.Alpha, 0):
		err = errors.New("alpha must be a finite value not less than 0")
	case c.Rho < 0 || c.Rho > 1 || math.IsNaN(c.Rho):
		err = errors.New("rho must be in (0, 1]")
	case c.Alpha > 0 && c.Rho > 0:
		err = errors.New("alpha and rho are mutually exclusive")
	case c.Seed > mtrand.MaxSeed:
		err = fmt.Errorf("seed must be between 0 and %d", uint64(mtrand.MaxSeed))
	case c.Norm != NormL2 && c.Norm != NormInf:
		err = errors.New("unknown alpha max norm")
	}
	for g, w := range c.Weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			err = fmt.Errorf("weight of group %d must be finite and not less than 0", g)
			break
		}
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}

	obj = &Objective{Config: *c}
	obj.Weights = slices.Clone(c.Weights)
	return
}

// Objective holds (X, y, partition, α) as read-only state between calls to
// Compute. It is safe for concurrent evaluation once SetData has returned.
type Objective struct {
	Config
	in       Input
	alphaMax float64
}

func (o *Objective) Name() string {
	if o.Rho > 0 {
		return fmt.Sprintf("group-logreg[rho=%g,norm=%s]", o.Rho, o.Norm)
	}
	return fmt.Sprintf("group-logreg[alpha=%g]", o.Alpha)
}

// SetData binds the dataset, generating a partition when the dataset has none,
// and resolves the regularization strength.
func (o *Objective) SetData(d *dataset.Data) error {

	if err := d.Check(); err != nil {
		return fmt.Errorf("%w: %v", ErrShape, err)
	}

	_, p := d.Dims()
	part := d.Partition
	if part == nil {
		if o.NGroups == 0 {
			return fmt.Errorf("%w: dataset has no partition and no number of groups is set", ErrConfig)
		}
		var err error
		if part, err = partition.Random(o.NGroups, p, o.Shuffle, o.Seed); err != nil {
			return err
		}
	}

	in := Input{X: d.X, Y: d.Y, Partition: part, Weights: o.Weights}
	if err := in.Check(); err != nil {
		return err
	}

	amax, err := AlphaMax(d.X, d.Y, part, o.Norm, o.Weights)
	if err != nil {
		return err
	}

	in.Alpha = o.Alpha
	if o.Rho > 0 {
		in.Alpha = o.Rho * amax
	}

	o.in, o.alphaMax = in, amax
	return nil
}

// Compute returns the penalized objective value at beta.
func (o *Objective) Compute(beta []float64) (float64, error) {
	if err := o.checkBeta(beta); err != nil {
		return math.NaN(), err
	}
	m := o.in.Margins(nil, beta)
	return o.in.DatafitFromMargins(m) + o.in.Penalty(beta), nil
}

// Datafit returns the mean logistic loss at beta.
func (o *Objective) Datafit(beta []float64) (float64, error) {
	if err := o.checkBeta(beta); err != nil {
		return math.NaN(), err
	}
	return o.in.DatafitFromMargins(o.in.Margins(nil, beta)), nil
}

// Penalty returns the weighted group lasso penalty at beta.
func (o *Objective) Penalty(beta []float64) (float64, error) {
	if err := o.checkBeta(beta); err != nil {
		return math.NaN(), err
	}
	return o.in.Penalty(beta), nil
}

// Gradient stores the gradient of the datafit at beta into grad.
func (o *Objective) Gradient(beta, grad []float64) error {
	if err := o.checkBeta(beta); err != nil {
		return err
	}
	if len(grad) != len(beta) {
		return fmt.Errorf("%w: gradient has %d entries, want %d", ErrShape, len(grad), len(beta))
	}
	o.in.GradientFromMargins(grad, o.in.Margins(nil, beta))
	return nil
}

// KKTViolation returns the optimality violation of beta, zero at a solution.
func (o *Objective) KKTViolation(beta []float64) (float64, error) {
	grad := make([]float64, len(beta))
	if err := o.Gradient(beta, grad); err != nil {
		return math.NaN(), err
	}
	return o.in.KKTViolation(beta, grad), nil
}

// OneSolution returns a trivially feasible point, the zero vector.
func (o *Objective) OneSolution() []float64 {
	return make([]float64, o.in.NumFeatures())
}

// Input returns the data a solver is configured with.
func (o *Objective) Input() Input { return o.in }

// AlphaValue returns the resolved regularization strength.
func (o *Objective) AlphaValue() float64 { return o.in.Alpha }

// AlphaMaxValue returns α_max of the bound dataset.
func (o *Objective) AlphaMaxValue() float64 { return o.alphaMax }

// Partition returns the partition in use.
func (o *Objective) Partition() *partition.Partition { return o.in.Partition }

func (o *Objective) checkBeta(beta []float64) error {
	if o.in.X == nil {
		return errors.New("objective: no data set")
	}
	if p := o.in.NumFeatures(); len(beta) != p {
		return fmt.Errorf("%w: beta has %d entries, want %d", ErrShape, len(beta), p)
	}
	return nil
}

// AlphaMax returns max_g norm(X_gᵀy) / (2n·w_g), the smallest α at which
// β = 0 satisfies the optimality condition. Groups with zero weight are not
// penalized and are skipped. A nil weights means uniform weight 1.
func AlphaMax(X *mat.Dense, y []float64, p *partition.Partition, norm AlphaMaxNorm, weights []float64) (float64, error) {
	in := Input{X: X, Y: y, Partition: p, Weights: weights}
	if err := in.Check(); err != nil {
		return math.NaN(), err
	}

	var ord float64
	switch norm {
	case NormL2:
		ord = 2
	case NormInf:
		ord = math.Inf(1)
	default:
		return math.NaN(), fmt.Errorf("%w: unknown norm %d", ErrConfig, norm)
	}

	n, nf := X.Dims()
	xty := make([]float64, nf)
	mat.NewVecDense(nf, xty).MulVec(X.T(), mat.NewVecDense(n, y))

	amax := 0.
	buf := make([]float64, 0, nf)
	for g := 0; g < p.NumGroups(); g++ {
		w := in.Weight(g)
		idx := p.Group(g)
		if w == 0 || len(idx) == 0 {
			continue
		}
		buf = buf[:0]
		for _, j := range idx {
			buf = append(buf, xty[j])
		}
		amax = math.Max(amax, floats.Norm(buf, ord)/(2*float64(n))/w)
	}
	return amax, nil
}
