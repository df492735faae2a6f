// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command grplogreg benchmarks group lasso logistic regression solvers.
//
//	grplogreg -dataset simulated -n-groups 100 -rho 0.1,0.01 -solver bcd,fista
//	grplogreg -dataset csv -csv leukemia.csv -header -n-groups 500,2000 -solver bcd
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/curioloop/benchmark-group-logreg/benchmark"
	"github.com/curioloop/benchmark-group-logreg/dataset"
	"github.com/curioloop/benchmark-group-logreg/objective"
	"github.com/curioloop/benchmark-group-logreg/solver"
)

func main() {
	opt, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err == nil {
		err = run(os.Stdout, opt)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "grplogreg:", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("grplogreg", flag.ContinueOnError)
	var (
		opt     options
		verbose int
	)
	fs.StringVar(&opt.dataset, "dataset", "simulated", "dataset: simulated or csv")
	fs.StringVar(&opt.csvPath, "csv", "", "path of the labelled csv table")
	fs.BoolVar(&opt.header, "header", false, "the csv table has a header row")
	fs.IntVar(&opt.labelCol, "label", -1, "csv column holding the class, negative counts from the end")
	fs.IntVar(&opt.nSamples, "n-samples", 500, "simulated number of samples")
	fs.IntVar(&opt.nFeatures, "n-features", 5000, "simulated number of features")
	fs.Uint64Var(&opt.seed, "seed", 0, "random seed of the simulated data and partitions, below 2^32")
	fs.StringVar(&opt.nGroups, "n-groups", "100", "comma separated numbers of groups")
	fs.BoolVar(&opt.shuffle, "shuffle", false, "shuffle features before grouping")
	fs.StringVar(&opt.rhos, "rho", "0.1", "comma separated fractions of alpha_max")
	fs.Float64Var(&opt.alpha, "alpha", -1, "fixed regularization, overrides -rho when not negative (0 disables the penalty)")
	fs.StringVar(&opt.norm, "norm", "l2", "alpha_max norm: l2 or inf")
	fs.StringVar(&opt.solvers, "solver", "bcd", "comma separated solvers: "+strings.Join(solver.Names(), ", "))
	fs.IntVar(&opt.maxRuns, "max-runs", 25, "maximum number of sampled points per curve")
	fs.IntVar(&opt.patience, "patience", 5, "points without progress before stopping")
	fs.DurationVar(&opt.timeout, "timeout", 0, "stop a curve once a single run exceeds this duration")
	fs.Float64Var(&opt.tol, "tol", 1e-9, "solver optimality tolerance")
	fs.BoolVar(&opt.curves, "curves", false, "print every sampled point")
	fs.IntVar(&verbose, "v", 0, "log level: -1 quiet, 0 runs, 1 points, 99 trace")

	if err := fs.Parse(args); err != nil {
		return opt, err
	}
	if fs.NArg() > 0 {
		return opt, fmt.Errorf("unexpected arguments %v", fs.Args())
	}
	opt.verbose = solver.LogLevel(verbose)
	return opt, nil
}

type options struct {
	dataset, csvPath    string
	header              bool
	labelCol            int
	nSamples, nFeatures int
	seed                uint64
	nGroups             string
	shuffle             bool
	rhos                string
	alpha               float64
	norm                string
	solvers             string
	maxRuns, patience   int
	timeout             time.Duration
	tol                 float64
	curves              bool
	verbose             solver.LogLevel
}

func run(w io.Writer, opt options) error {
	groups, err := parseInts(opt.nGroups)
	if err != nil {
		return fmt.Errorf("-n-groups: %w", err)
	}
	rhos, err := parseFloats(opt.rhos)
	if err != nil {
		return fmt.Errorf("-rho: %w", err)
	}
	norm, err := objective.ParseNorm(opt.norm)
	if err != nil {
		return err
	}

	grid := benchmark.Grid{Solvers: splitList(opt.solvers)}

	switch opt.dataset {
	case "simulated":
		grid.Datasets = append(grid.Datasets, &dataset.Simulated{
			NSamples: opt.nSamples, NFeatures: opt.nFeatures, Seed: opt.seed,
		})
	case "csv", "leukemia":
		// The table is loaded once per group count, each with its own partition.
		for _, g := range groups {
			grid.Datasets = append(grid.Datasets, &dataset.CSV{
				Path: opt.csvPath, Header: opt.header, LabelColumn: opt.labelCol, NGroups: g,
			})
		}
		groups = []int{0}
	default:
		return fmt.Errorf("unknown dataset %q", opt.dataset)
	}

	for _, g := range groups {
		base := objective.Config{NGroups: g, Shuffle: opt.shuffle, Seed: opt.seed, Norm: norm}
		if opt.alpha >= 0 {
			base.Alpha = opt.alpha
			grid.Objectives = append(grid.Objectives, base)
			continue
		}
		for _, rho := range rhos {
			c := base
			c.Rho = rho
			grid.Objectives = append(grid.Objectives, c)
		}
	}

	logger := &solver.Logger{Level: opt.verbose, Msg: w}
	res, err := benchmark.Run(grid, benchmark.Config{
		Stop: benchmark.Termination{
			MaxRuns: opt.maxRuns, Patience: opt.patience, Timeout: opt.timeout,
		},
		Solver: solver.Config{Tol: opt.tol},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	if opt.curves {
		if err = benchmark.WriteCurves(w, res); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return benchmark.WriteSummary(w, res)
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, f := range splitList(s) {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, f := range splitList(s) {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
