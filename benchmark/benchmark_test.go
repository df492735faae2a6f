// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchmark

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curioloop/benchmark-group-logreg/dataset"
	"github.com/curioloop/benchmark-group-logreg/objective"
	"github.com/curioloop/benchmark-group-logreg/partition"
	"github.com/curioloop/benchmark-group-logreg/solver"
)

func TestNextIter(t *testing.T) {
	var got []int
	for n, k := 0, 0; k < 10; n, k = NextIter(n), k+1 {
		got = append(got, n)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 6, 9, 13, 19, 28}, got)
}

func TestRunGrid(t *testing.T) {
	grid := Grid{
		Datasets: []dataset.Dataset{
			&dataset.Simulated{NSamples: 40, NFeatures: 10},
		},
		Objectives: []objective.Config{
			{NGroups: 3, Rho: 0.1},
			{NGroups: 3, Rho: 0.5, Norm: objective.NormInf},
		},
		Solvers: []string{"bcd", "fista"},
	}
	require.Equal(t, 4, grid.Size())

	var logs bytes.Buffer
	curves, err := Run(grid, Config{
		Stop:   Termination{MaxRuns: 12},
		Logger: &solver.Logger{Level: solver.LogLast, Msg: &logs},
	})
	require.NoError(t, err)
	require.Len(t, curves, 4)

	want, err := partition.Random(3, 10, false, 0)
	require.NoError(t, err)

	keys := map[uint64]bool{}
	for _, c := range curves {
		require.NotEmpty(t, c.Points)
		assert.LessOrEqual(t, len(c.Points), 12)
		assert.Equal(t, 0, c.Points[0].Iter)
		assert.InDelta(t, 0.6931471805599453, c.Points[0].Objective, 1e-15)
		assert.Less(t, c.Final().Objective, c.Points[0].Objective)
		assert.Equal(t, want.Fingerprint(), c.Partition)
		assert.Equal(t, []int{3, 2, 4}, []int{c.Groups, c.MinSize, c.MaxSize})
		keys[c.Key()] = true
	}
	assert.Len(t, keys, 4)
	assert.True(t, strings.Contains(logs.String(), "Running bcd on simulated"), logs.String())

	var out bytes.Buffer
	require.NoError(t, WriteSummary(&out, curves))
	assert.Equal(t, 5, strings.Count(out.String(), "\n"))
	assert.Equal(t, 4, strings.Count(out.String(), "3 (2-4)"))

	out.Reset()
	require.NoError(t, WriteCurves(&out, curves))
	assert.True(t, strings.HasPrefix(out.String(), "key"))
}

func TestRunStopsOnStall(t *testing.T) {
	grid := Grid{
		Datasets:   []dataset.Dataset{&dataset.Simulated{NSamples: 30, NFeatures: 6}},
		Objectives: []objective.Config{{NGroups: 2, Rho: 1}},
		Solvers:    []string{"bcd"},
	}
	curves, err := Run(grid, Config{Stop: Termination{MaxRuns: 25, Patience: 2}})
	require.NoError(t, err)
	require.Len(t, curves, 1)

	// At alpha_max the zero vector is already optimal, no point makes progress.
	assert.Len(t, curves[0].Points, 4)
}

func TestRunErrors(t *testing.T) {
	grid := Grid{
		Datasets:   []dataset.Dataset{&dataset.Simulated{NSamples: 10, NFeatures: 4}},
		Objectives: []objective.Config{{NGroups: 2, Rho: 0.5}},
		Solvers:    []string{"newton"},
	}
	_, err := Run(grid, Config{})
	assert.True(t, errors.Is(err, solver.ErrUnknown))

	grid.Solvers = []string{"bcd"}
	grid.Objectives = []objective.Config{{NGroups: 4, Rho: 0.5}}
	_, err = Run(grid, Config{})
	assert.True(t, errors.Is(err, partition.ErrConfig))

	_, err = Run(grid, Config{Stop: Termination{MaxRuns: -1}})
	assert.Error(t, err)
}

func TestCurveFinalEmpty(t *testing.T) {
	var c Curve
	assert.True(t, math.IsNaN(c.Final().Objective))
}
