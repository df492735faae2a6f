// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curioloop/benchmark-group-logreg/objective"
	"github.com/curioloop/benchmark-group-logreg/solver"
)

func TestParseFlags(t *testing.T) {
	opt, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, "simulated", opt.dataset)
	assert.Equal(t, -1., opt.alpha)
	assert.Equal(t, 25, opt.maxRuns)
	assert.Equal(t, solver.LogLast, opt.verbose)

	opt, err = parseFlags([]string{"-rho", "0.1,0.2", "-solver", "bcd, fista", "-v", "1", "-alpha", "0"})
	require.NoError(t, err)
	assert.Equal(t, "0.1,0.2", opt.rhos)
	assert.Equal(t, []string{"bcd", "fista"}, splitList(opt.solvers))
	assert.Equal(t, solver.LogEval, opt.verbose)
	assert.Zero(t, opt.alpha)

	_, err = parseFlags([]string{"-max-runs", "many"})
	assert.Error(t, err)
	_, err = parseFlags([]string{"-solver", "bcd", "extra"})
	assert.Error(t, err)
	_, err = parseFlags([]string{"-h"})
	assert.True(t, errors.Is(err, flag.ErrHelp))
}

func runArgs(t *testing.T, args ...string) (string, error) {
	t.Helper()
	opt, err := parseFlags(append([]string{"-v", "-1"}, args...))
	require.NoError(t, err)
	var out bytes.Buffer
	err = run(&out, opt)
	return out.String(), err
}

func TestRunSimulated(t *testing.T) {
	out, err := runArgs(t,
		"-n-samples", "30", "-n-features", "8", "-n-groups", "2",
		"-rho", "0.5,1", "-solver", "bcd,proxnewton", "-max-runs", "4")
	require.NoError(t, err)

	// header plus rho × solver lines
	assert.Equal(t, 5, strings.Count(out, "\n"), out)
	assert.Equal(t, 2, strings.Count(out, "proxnewton"), out)
	assert.Equal(t, 2, strings.Count(out, "rho=0.5,norm=l2"), out)
	assert.Equal(t, 2, strings.Count(out, "rho=1,norm=l2"), out)
}

func TestRunFixedAlpha(t *testing.T) {
	out, err := runArgs(t,
		"-n-samples", "20", "-n-features", "6", "-n-groups", "2",
		"-alpha", "0", "-rho", "0.5", "-max-runs", "3", "-curves")
	require.NoError(t, err)
	assert.Contains(t, out, "group-logreg[alpha=0]")
	assert.NotContains(t, out, "rho=")
	assert.True(t, strings.HasPrefix(out, "key"), out)
}

func TestRunCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leukemia.csv")
	table := "g1,g2,g3,g4,class\n" +
		"0.1,1.2,-0.3,0.8,ALL\n" +
		"0.7,-0.2,0.5,0.1,AML\n" +
		"-0.4,0.9,1.1,-0.6,ALL\n" +
		"1.3,0.3,-0.8,0.2,AML\n" +
		"0.2,-1.1,0.4,0.9,ALL\n" +
		"-0.9,0.6,0.2,-0.3,AML\n"
	require.NoError(t, os.WriteFile(path, []byte(table), 0o644))

	out, err := runArgs(t,
		"-dataset", "csv", "-csv", path, "-header",
		"-n-groups", "1,3", "-rho", "0.5", "-max-runs", "3")
	require.NoError(t, err)

	// One dataset per group count, each carrying its own partition.
	assert.Equal(t, 3, strings.Count(out, "\n"), out)
	assert.Contains(t, out, "leukemia[n_groups=1]")
	assert.Contains(t, out, "leukemia[n_groups=3]")
	assert.Contains(t, out, "1 (4-4)")
	assert.Equal(t, 2, strings.Count(out, "rho=0.5,norm=l2"), out)
}

func TestRunErrors(t *testing.T) {
	for _, args := range [][]string{
		{"-dataset", "openml"},
		{"-norm", "l1"},
		{"-n-groups", "two"},
		{"-rho", "half"},
		{"-dataset", "csv"},
		{"-solver", "newton", "-n-samples", "10", "-n-features", "4", "-n-groups", "2"},
	} {
		_, err := runArgs(t, args...)
		assert.Error(t, err, "%v", args)
	}

	_, err := runArgs(t, "-norm", "l1")
	assert.True(t, errors.Is(err, objective.ErrConfig))
	_, err = runArgs(t, "-n-samples", "10", "-n-features", "4", "-n-groups", "2", "-seed", "4294967296")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed must be between 0 and 4294967295")
}
