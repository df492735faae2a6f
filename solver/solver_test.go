// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package solver

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/benchmark-group-logreg/dataset"
	"github.com/curioloop/benchmark-group-logreg/objective"
)

func problem(t *testing.T, rho float64) *objective.Objective {
	t.Helper()
	d, err := (&dataset.Simulated{NSamples: 60, NFeatures: 12, NGroups: 4}).Data()
	require.NoError(t, err)
	o, err := (&objective.Config{Rho: rho}).New()
	require.NoError(t, err)
	require.NoError(t, o.SetData(d))
	return o
}

func configured(t *testing.T, name string, cfg Config, o *objective.Objective) *Adapter {
	t.Helper()
	s, err := New(name, cfg)
	require.NoError(t, err)
	require.NoError(t, s.SetObjective(o.Input()))
	return s
}

// spy counts backend calls.
type spy struct {
	w        []float64
	advances int
	resets   int
	fail     error
}

func (s *spy) init(in *objective.Input, _ *Config) error {
	s.w = make([]float64, in.NumFeatures())
	return nil
}
func (s *spy) reset()          { s.resets++; clear(s.w) }
func (s *spy) resumable() bool { return true }
func (s *spy) coef() []float64 { return s.w }
func (s *spy) advance(n int) (int, bool, error) {
	s.advances++
	for j := range s.w {
		s.w[j] += float64(n)
	}
	if s.fail != nil {
		return 0, false, s.fail
	}
	return n, false, fmt.Errorf("%w: stopped early", ErrNotConverged)
}

func TestNew(t *testing.T) {
	assert.Equal(t, []string{"bcd", "fista", "lbfgs", "proxnewton"}, Names())

	_, err := New("cd", Config{})
	assert.True(t, errors.Is(err, ErrUnknown))

	_, err = New("bcd", Config{Tol: -1})
	assert.Error(t, err)

	s, err := New("fista", Config{})
	require.NoError(t, err)
	assert.Equal(t, "fista", s.Name())
	assert.Error(t, s.Run(1))
}

func TestRunZeroSkipsBackend(t *testing.T) {
	o := problem(t, 0.1)
	sp := &spy{}
	cfg, err := Config{}.normalize()
	require.NoError(t, err)
	a := &Adapter{name: "spy", cfg: cfg, impl: sp}
	require.NoError(t, a.SetObjective(o.Input()))

	require.NoError(t, a.Run(3))
	assert.Equal(t, 1, sp.advances)
	assert.Equal(t, 3., a.Result()[0])

	require.NoError(t, a.Run(0))
	assert.Equal(t, 1, sp.advances)
	assert.Equal(t, make([]float64, 12), a.Result())

	require.NoError(t, a.Run(5))
	assert.Equal(t, 2, sp.advances)
	assert.Equal(t, 5., a.Result()[0])

	require.NoError(t, a.Run(2))
	assert.Equal(t, 3, sp.advances)
	assert.Equal(t, 2., a.Result()[0])

	assert.Error(t, a.Run(-1))
}

func TestResumeMatchesFreshRun(t *testing.T) {
	o := problem(t, 0.1)
	for _, name := range []string{"bcd", "fista", "lbfgs", "proxnewton"} {
		inc := configured(t, name, Config{}, o)
		for _, n := range []int{1, 2, 5, 10} {
			require.NoError(t, inc.Run(n))
		}
		fresh := configured(t, name, Config{}, o)
		require.NoError(t, fresh.Run(10))
		assert.Equal(t, fresh.Result(), inc.Result(), name)

		require.NoError(t, inc.Run(3))
		fresh = configured(t, name, Config{}, o)
		require.NoError(t, fresh.Run(3))
		assert.Equal(t, fresh.Result(), inc.Result(), name)
	}
}

func TestSolversAgree(t *testing.T) {
	o := problem(t, 0.1)

	bcd := configured(t, "bcd", Config{Tol: 1e-10}, o)
	require.NoError(t, bcd.Run(10000))
	require.True(t, bcd.Summary().Converged)
	assert.LessOrEqual(t, bcd.Summary().Violation, 1e-10)

	fista := configured(t, "fista", Config{Tol: 1e-8}, o)
	require.NoError(t, fista.Run(100000))
	require.True(t, fista.Summary().Converged)

	lbfgs := configured(t, "lbfgs", Config{Tol: 1e-10, Smoothing: 1e-5}, o)
	require.NoError(t, lbfgs.Run(2000))

	newton := configured(t, "proxnewton", Config{Tol: 1e-10}, o)
	require.NoError(t, newton.Run(200))
	assert.Less(t, newton.Summary().Violation, 1e-6)

	fb, err := o.Compute(bcd.Result())
	require.NoError(t, err)
	ff, err := o.Compute(fista.Result())
	require.NoError(t, err)
	fl, err := o.Compute(lbfgs.Result())
	require.NoError(t, err)

	assert.InDelta(t, fb, ff, 1e-8)
	assert.InDelta(t, fb, fl, 1e-4)

	fn, err := o.Compute(newton.Result())
	require.NoError(t, err)
	assert.InDelta(t, fb, fn, 1e-8)
	assert.True(t, floats.EqualApprox(bcd.Result(), newton.Result(), 1e-4))

	f0, _ := o.Compute(o.OneSolution())
	assert.Less(t, fb, f0)
	assert.True(t, floats.EqualApprox(bcd.Result(), fista.Result(), 1e-4))
}

func TestBCDMonotone(t *testing.T) {
	o := problem(t, 0.05)
	s := configured(t, "bcd", Config{}, o)
	prev, _ := o.Compute(o.OneSolution())
	for n := 1; n <= 20; n++ {
		require.NoError(t, s.Run(n))
		f, err := o.Compute(s.Result())
		require.NoError(t, err)
		if f > prev+1e-14 {
			t.Fatalf("objective increased at %d: %v > %v", n, f, prev)
		}
		prev = f
	}
}

func TestAlphaMaxGivesZeroSolution(t *testing.T) {
	for _, name := range []string{"bcd", "proxnewton"} {
		for _, tt := range []struct {
			rho  float64
			zero bool
		}{{1, true}, {0.5, false}} {
			o := problem(t, tt.rho)
			s := configured(t, name, Config{}, o)
			require.NoError(t, s.Run(1000))

			norm := floats.Norm(s.Result(), 2)
			if tt.zero {
				assert.Less(t, norm, 1e-8, "%s rho=%v", name, tt.rho)
			} else {
				assert.Greater(t, norm, 1e-3, "%s rho=%v", name, tt.rho)
			}
		}
	}
}

func TestProxNewtonMonotone(t *testing.T) {
	o := problem(t, 0.05)
	s := configured(t, "proxnewton", Config{}, o)
	prev, _ := o.Compute(o.OneSolution())
	for n := 1; n <= 8; n++ {
		require.NoError(t, s.Run(n))
		f, err := o.Compute(s.Result())
		require.NoError(t, err)
		if f > prev+1e-14 {
			t.Fatalf("objective increased at %d: %v > %v", n, f, prev)
		}
		prev = f
	}
}

func TestBackendErrorsReturned(t *testing.T) {
	o := problem(t, 0.1)
	boom := errors.New("singular value decomposition failed")
	sp := &spy{fail: boom}
	cfg, err := Config{}.normalize()
	require.NoError(t, err)
	a := &Adapter{name: "spy", cfg: cfg, impl: sp}
	require.NoError(t, a.SetObjective(o.Input()))

	err = a.Run(4)
	assert.True(t, errors.Is(err, boom), "%v", err)
	assert.Equal(t, 0, a.Summary().NumIter)

	sp.fail = nil
	require.NoError(t, a.Run(4))
	assert.Equal(t, 4., a.Result()[0])
}

func TestSuppressedWarningsAreLogged(t *testing.T) {
	o := problem(t, 0.01)
	var buf bytes.Buffer
	s := configured(t, "bcd", Config{Logger: &Logger{Level: LogEval, Msg: &buf}}, o)

	require.NoError(t, s.Run(1))
	assert.False(t, s.Summary().Converged)
	assert.Equal(t, 1, s.Summary().NumIter)
	assert.True(t, strings.Contains(buf.String(), "not converged after 1 iterations"), buf.String())

	buf.Reset()
	quiet := configured(t, "bcd", Config{Logger: &Logger{Level: LogNoop, Msg: &buf}}, o)
	require.NoError(t, quiet.Run(1))
	assert.Zero(t, buf.Len())
}

func TestSetObjectiveShape(t *testing.T) {
	o := problem(t, 0.1)
	in := o.Input()
	in.Y = in.Y[:10]
	s, err := New("bcd", Config{})
	require.NoError(t, err)
	assert.True(t, errors.Is(s.SetObjective(in), objective.ErrShape))
}
