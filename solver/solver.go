// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package solver adapts group lasso logistic regression solvers to the
// configure / advance / extract lifecycle driven by a benchmark harness.
//
// Every Solver is sampled at growing iteration counts: Run(n) leaves the
// solver in the state reached after n iterations from the zero vector, and
// Result returns the corresponding coefficients. Resumable backends continue
// from their current state instead of starting again.
package solver

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/curioloop/benchmark-group-logreg/objective"
)

var (
	// ErrUnknown is returned by New for an unregistered solver name.
	ErrUnknown = errors.New("solver: unknown solver")

	// ErrNotConverged marks a backend stop before the optimality criterion is
	// met. Adapter.Run logs and suppresses it, other backend errors are returned.
	ErrNotConverged = errors.New("solver: not converged")
)

// Solver is the contract between the harness and an optimization backend.
type Solver interface {
	Name() string
	// SetObjective configures the solver once per benchmark configuration.
	SetObjective(in objective.Input) error
	// Run brings the solver to the state reached after nIter iterations.
	// Run(0) yields the zero vector without invoking the backend.
	Run(nIter int) error
	// Result returns the current coefficient vector.
	Result() []float64
}

// Config specifies the stopping criterion and backend options.
type Config struct {
	// The iteration stops when the optimality violation satisfied:
	//   max_g dist(-∇f(β)_g, ∂(α w_g ‖β_g‖)) ≤ Tol
	// Defaults to 1e-9 when zero.
	Tol float64
	// Smoothing μ of the L-BFGS penalty α w_g (sqrt(‖β_g‖² + μ²) - μ).
	// Defaults to 1e-6 when zero.
	Smoothing float64
	// Memory is the number of L-BFGS corrections, 10 when zero.
	Memory int
	// Logger receives run summaries and suppressed backend warnings.
	Logger *Logger
}

func (c Config) normalize() (Config, error) {
	var err error
	switch {
	case c.Tol < 0 || math.IsNaN(c.Tol):
		err = errors.New("tolerance must not less than 0")
	case c.Smoothing < 0 || math.IsNaN(c.Smoothing):
		err = errors.New("smoothing must not less than 0")
	case c.Memory < 0:
		err = errors.New("memory must not less than 0")
	}
	if err != nil {
		return c, fmt.Errorf("solver: %w", err)
	}
	if c.Tol == 0 {
		c.Tol = 1e-9
	}
	if c.Smoothing == 0 {
		c.Smoothing = 1e-6
	}
	if c.Memory == 0 {
		c.Memory = 10
	}
	if c.Logger == nil {
		c.Logger = &Logger{Level: LogNoop}
	}
	return c, nil
}

var registry = map[string]func() backend{
	"bcd":        func() backend { return new(bcd) },
	"fista":      func() backend { return new(fista) },
	"lbfgs":      func() backend { return new(lbfgs) },
	"proxnewton": func() backend { return new(proxNewton) },
}

// Names lists the registered solvers.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates the named solver.
func New(name string, cfg Config) (*Adapter, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknown, name, Names())
	}
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}
	return &Adapter{name: name, cfg: cfg, impl: factory()}, nil
}

// backend is the iterative method behind an Adapter.
type backend interface {
	// init binds the input and precomputes step sizes.
	init(in *objective.Input, cfg *Config) error
	// reset moves the iterate back to the zero vector.
	reset()
	// resumable reports whether advance continues from the current state.
	resumable() bool
	// advance performs up to n iterations, stopping early on convergence.
	// Non-resumable backends start from zero and treat n as the total count.
	// An early stop without convergence is reported as ErrNotConverged.
	advance(n int) (done int, conv bool, err error)
	// coef returns the current iterate. The slice is owned by the backend.
	coef() []float64
}

// Summary describes the state reached by the last Run.
type Summary struct {
	NumIter   int     // Iterations performed since the zero vector.
	Converged bool    // Whether the stopping criterion was met.
	Violation float64 // Optimality violation of Result.
}

// Adapter drives a backend incrementally. An Adapter is owned by a single
// benchmark unit and is not safe for concurrent use.
type Adapter struct {
	name string
	cfg  Config
	impl backend

	in  objective.Input
	set bool

	iter int
	conv bool
	w    []float64
	sum  Summary
}

func (a *Adapter) Name() string { return a.name }

// SetObjective validates and binds the input, leaving the solver at zero.
func (a *Adapter) SetObjective(in objective.Input) error {
	if err := in.Check(); err != nil {
		return err
	}
	a.in = in
	if err := a.impl.init(&a.in, &a.cfg); err != nil {
		a.set = false
		return fmt.Errorf("solver %s: %w", a.name, err)
	}
	a.set = true
	a.restart()
	a.w = make([]float64, in.NumFeatures())
	return nil
}

func (a *Adapter) restart() {
	a.impl.reset()
	a.iter, a.conv = 0, false
}

// Run brings the solver to iteration nIter.
func (a *Adapter) Run(nIter int) error {
	switch {
	case !a.set:
		return fmt.Errorf("solver %s: objective is not set", a.name)
	case nIter < 0:
		return fmt.Errorf("solver %s: negative iteration count %d", a.name, nIter)
	case nIter == 0:
		clear(a.w)
		a.sum = Summary{Violation: a.violation(a.w)}
		return nil
	}

	log := a.cfg.Logger
	if !a.impl.resumable() || nIter < a.iter {
		a.restart()
	}

	if !a.conv && nIter > a.iter {
		steps := nIter - a.iter
		if !a.impl.resumable() {
			steps = nIter
		}
		done, conv, err := a.impl.advance(steps)
		switch {
		case errors.Is(err, ErrNotConverged):
			// Early samples routinely stop before convergence, the iterate is still usable.
			log.Logf(LogEval, "solver %s: suppressed backend warning at %d iterations: %v\n", a.name, nIter, err)
		case err != nil:
			a.restart()
			return fmt.Errorf("solver %s: %w", a.name, err)
		}
		a.iter += done
		a.conv = conv
	}

	a.w = append(a.w[:0], a.impl.coef()...)
	a.sum = Summary{NumIter: a.iter, Converged: a.conv, Violation: a.violation(a.w)}

	if !a.conv {
		log.Logf(LogEval, "solver %s: not converged after %d iterations, violation %.3e\n",
			a.name, a.iter, a.sum.Violation)
	}
	log.Logf(LogLast, "solver %s: n_iter=%d iter=%d converged=%t violation=%.3e\n",
		a.name, nIter, a.iter, a.conv, a.sum.Violation)
	return nil
}

// Result returns a copy of the current coefficients.
func (a *Adapter) Result() []float64 {
	return slices.Clone(a.w)
}

// Summary returns the state reached by the last Run.
func (a *Adapter) Summary() Summary { return a.sum }

func (a *Adapter) violation(w []float64) float64 {
	grad := make([]float64, len(w))
	a.in.GradientFromMargins(grad, a.in.Margins(nil, w))
	return a.in.KKTViolation(w, grad)
}

// blockSoftThreshold shrinks v[idx] towards zero by u in euclidean norm,
// writing the result into dst[idx].
func blockSoftThreshold(dst, v []float64, idx []int, u float64) {
	norm := objective.GroupNorm(v, idx)
	if norm <= u {
		for _, j := range idx {
			dst[j] = 0
		}
		return
	}
	scale := 1 - u/norm
	for _, j := range idx {
		dst[j] = scale * v[j]
	}
}
