// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dataset

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/benchmark-group-logreg/mtrand"
	"github.com/curioloop/benchmark-group-logreg/partition"
)

// Correlation specifies a design whose columns follow an AR(1) process,
// so that corr(X[:, i], X[:, j]) = Rho^|i-j|, with a sparse ground truth
// and a gaussian noise of given signal-to-noise ratio.
//
// # Reference:
//
//   - https://github.com/benchopt/benchopt/blob/main/benchopt/datasets/simulated.py
type Correlation struct {
	NSamples, NFeatures int
	// Correlation between consecutive features, in [0, 1).
	Rho float64
	// Signal-to-noise ratio, 0 means pure noise and +Inf means no noise.
	SNR float64
	// Fraction of non-zero coefficients in the ground truth.
	Density float64
	Seed    uint64
}

// Generate draws the design X, the noisy response and the ground truth.
func (c *Correlation) Generate() (X *mat.Dense, Y, wTrue []float64, err error) {

	n, p := c.NSamples, c.NFeatures

	switch {
	case n <= 0 || p <= 0:
		err = errors.New("dataset: dimensions must greater than 0")
	case c.Rho < 0 || c.Rho >= 1:
		err = errors.New("dataset: correlation must be in [0, 1)")
	case c.SNR < 0:
		err = errors.New("dataset: snr must not less than 0")
	case c.Density <= 0 || c.Density > 1:
		err = errors.New("dataset: density must be in (0, 1]")
	case c.Seed > mtrand.MaxSeed:
		err = fmt.Errorf("dataset: seed must be between 0 and %d", uint64(mtrand.MaxSeed))
	}
	if err != nil {
		return
	}

	rng := mtrand.New(c.Seed)
	sigma := math.Sqrt(1 - c.Rho*c.Rho)

	X = mat.NewDense(n, p, nil)
	u := rng.Normals(nil, n)
	g := make([]float64, n)
	X.SetCol(0, u)
	for j := 1; j < p; j++ {
		rng.Normals(g, n)
		for i := range u {
			// explicit conversions keep the two roundings of u*rho + sigma*g
			u[i] = float64(u[i]*c.Rho) + float64(sigma*g[i])
		}
		X.SetCol(j, u)
	}

	nnz := max(1, int(c.Density*float64(p)))
	support, err := rng.Choice(p, nnz)
	if err != nil {
		return nil, nil, nil, err
	}
	wTrue = make([]float64, p)
	for k, v := range rng.Normals(nil, nnz) {
		wTrue[support[k]] = v
	}

	Y = make([]float64, n)
	mat.NewVecDense(n, Y).MulVec(X, mat.NewVecDense(p, wTrue))

	noise := rng.Normals(nil, n)
	switch {
	case c.SNR == 0:
		copy(Y, noise)
	case !math.IsInf(c.SNR, 1):
		nn, ny := floats.Norm(noise, 2), floats.Norm(Y, 2)
		for i, v := range noise {
			Y[i] += v / nn * ny / c.SNR
		}
	}
	return
}

// Simulated is a correlated gaussian design with labels sign(Xw + noise).
type Simulated struct {
	NSamples, NFeatures int
	// Correlation between consecutive features, 0.3 when zero.
	Rho  float64
	Seed uint64
	// NGroups attaches a shuffled random partition when positive.
	NGroups int
}

func (s *Simulated) Name() string {
	return fmt.Sprintf("simulated[n_samples=%d,n_features=%d]", s.NSamples, s.NFeatures)
}

// Data generates the design and binarizes the response by its sign.
func (s *Simulated) Data() (*Data, error) {
	rho := s.Rho
	if rho == 0 {
		rho = 0.3
	}
	c := Correlation{
		NSamples: s.NSamples, NFeatures: s.NFeatures,
		Rho: rho, SNR: 3, Density: 0.2,
		Seed: s.Seed,
	}
	X, Y, _, err := c.Generate()
	if err != nil {
		return nil, err
	}
	for i, v := range Y {
		Y[i] = sign(v)
	}

	d := &Data{X: X, Y: Y}
	if s.NGroups > 0 {
		if d.Partition, err = partition.Random(s.NGroups, s.NFeatures, true, s.Seed); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
