// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchmark runs every solver of a parameter grid on every
// (dataset, objective) pair and records the objective value reached after a
// growing number of iterations.
package benchmark

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/curioloop/benchmark-group-logreg/dataset"
	"github.com/curioloop/benchmark-group-logreg/objective"
	"github.com/curioloop/benchmark-group-logreg/solver"
)

// Grid enumerates the benchmark configurations: the cartesian product of
// datasets, objective parameter sets and solver names.
type Grid struct {
	Datasets   []dataset.Dataset
	Objectives []objective.Config
	Solvers    []string
}

// Size returns the number of (dataset, objective, solver) units.
func (g *Grid) Size() int {
	return len(g.Datasets) * len(g.Objectives) * len(g.Solvers)
}

// Termination specifies when the sampling of a convergence curve stops.
type Termination struct {
	// The sampling stops after MaxRuns points. Defaults to 25.
	MaxRuns int
	// The sampling stops when the objective decreased by less than
	//   Eps × |f(0)|
	// during more than Patience consecutive points. Defaults to 1e-10 and 5.
	Eps      float64
	Patience int
	// The sampling stops once a single run takes longer than Timeout, if positive.
	Timeout time.Duration
}

// Config specifies a benchmark run.
type Config struct {
	Stop   Termination
	Solver solver.Config
	Logger *solver.Logger
}

// Point is one sample of a convergence curve.
type Point struct {
	Iter      int
	Time      time.Duration
	Objective float64
}

// Curve is the convergence curve of one solver on one configuration.
type Curve struct {
	Dataset   string
	Objective string
	Solver    string
	Alpha     float64
	// Partition identifies the group partition the curve was measured on.
	Partition uint64
	// Groups summarizes the partition: number of groups and size range.
	Groups  int
	MinSize int
	MaxSize int
	Points  []Point
}

// Key identifies the configuration of the curve.
func (c *Curve) Key() uint64 {
	return xxhash.Sum64String(fmt.Sprintf("%s|%s|%s|%016x", c.Dataset, c.Objective, c.Solver, c.Partition))
}

// Final returns the last sampled point.
func (c *Curve) Final() Point {
	if len(c.Points) == 0 {
		return Point{Objective: math.NaN()}
	}
	return c.Points[len(c.Points)-1]
}

// NextIter returns the iteration count sampled after cur.
func NextIter(cur int) int {
	return max(cur+1, int(1.5*float64(cur)))
}

func (c *Config) normalize() error {
	s := &c.Stop
	switch {
	case s.MaxRuns < 0:
		return errors.New("benchmark: max runs must not less than 0")
	case s.Patience < 0:
		return errors.New("benchmark: patience must not less than 0")
	case s.Eps < 0 || math.IsNaN(s.Eps):
		return errors.New("benchmark: eps must not less than 0")
	}
	if s.MaxRuns == 0 {
		s.MaxRuns = 25
	}
	if s.Patience == 0 {
		s.Patience = 5
	}
	if s.Eps == 0 {
		s.Eps = 1e-10
	}
	if c.Logger == nil {
		c.Logger = &solver.Logger{Level: solver.LogNoop}
	}
	if c.Solver.Logger == nil {
		c.Solver.Logger = c.Logger
	}
	return nil
}

// Run evaluates every unit of the grid, one after the other.
func Run(grid Grid, cfg Config) ([]Curve, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	log := cfg.Logger

	curves := make([]Curve, 0, grid.Size())
	for _, ds := range grid.Datasets {
		data, err := ds.Data()
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", ds.Name(), err)
		}

		for k := range grid.Objectives {
			obj, err := grid.Objectives[k].New()
			if err != nil {
				return nil, err
			}
			if err = obj.SetData(data); err != nil {
				return nil, fmt.Errorf("dataset %s, objective %s: %w", ds.Name(), obj.Name(), err)
			}

			for _, name := range grid.Solvers {
				s, err := solver.New(name, cfg.Solver)
				if err != nil {
					return nil, err
				}
				log.Logf(solver.LogLast, "Running %s on %s with %s (alpha=%.4e)\n",
					name, ds.Name(), obj.Name(), obj.AlphaValue())

				c, err := runSolver(s, obj, &cfg)
				if err != nil {
					return nil, fmt.Errorf("dataset %s, objective %s, solver %s: %w",
						ds.Name(), obj.Name(), name, err)
				}
				c.Dataset = ds.Name()
				curves = append(curves, c)
			}
		}
	}
	return curves, nil
}

// runSolver samples the convergence curve of s on obj.
func runSolver(s solver.Solver, obj *objective.Objective, cfg *Config) (Curve, error) {
	part := obj.Partition()
	sizes := part.Sizes()
	c := Curve{
		Objective: obj.Name(),
		Solver:    s.Name(),
		Alpha:     obj.AlphaValue(),
		Partition: part.Fingerprint(),
		Groups:    len(sizes),
		MinSize:   slices.Min(sizes),
		MaxSize:   slices.Max(sizes),
	}
	if err := s.SetObjective(obj.Input()); err != nil {
		return c, err
	}

	stop, log := cfg.Stop, cfg.Logger
	var (
		first, prev float64
		stalled     int
	)
	for run, n := 0, 0; run < stop.MaxRuns; run, n = run+1, NextIter(n) {
		start := time.Now()
		if err := s.Run(n); err != nil {
			return c, err
		}
		elapsed := time.Since(start)

		f, err := obj.Compute(s.Result())
		if err != nil {
			return c, err
		}
		c.Points = append(c.Points, Point{Iter: n, Time: elapsed, Objective: f})
		log.Logf(solver.LogEval, "%s: n_iter=%6d  time=%10.4fs  objective=%.12e\n",
			s.Name(), n, elapsed.Seconds(), f)

		if math.IsNaN(f) || math.IsInf(f, 0) {
			log.Logf(solver.LogLast, "%s: objective diverged at %d iterations\n", s.Name(), n)
			break
		}
		if run == 0 {
			first, prev = f, f
			continue
		}
		if (prev-f)/math.Max(math.Abs(first), math.SmallestNonzeroFloat64) < stop.Eps {
			stalled++
		} else {
			stalled = 0
		}
		prev = f
		if stalled > stop.Patience {
			break
		}
		if stop.Timeout > 0 && elapsed > stop.Timeout {
			log.Logf(solver.LogLast, "%s: run time over %s at %d iterations\n", s.Name(), stop.Timeout, n)
			break
		}
	}
	return c, nil
}
