// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dataset provides the design matrices and binary labels that the
// group logistic objective is benchmarked on.
package dataset

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/benchmark-group-logreg/partition"
)

// ErrFormat is returned when a data source cannot be decoded.
var ErrFormat = errors.New("dataset: malformed input")

// Data is produced once per benchmark configuration and treated as immutable.
type Data struct {
	X *mat.Dense // n_samples × n_features design
	Y []float64  // labels in {-1, +1}
	// Partition is optional. When nil the objective generates one.
	Partition *partition.Partition
}

// Dims returns the number of samples and features.
func (d *Data) Dims() (nSamples, nFeatures int) {
	return d.X.Dims()
}

// Check verifies that the label and partition shapes agree with X.
func (d *Data) Check() error {
	if d.X == nil {
		return errors.New("dataset: design matrix is required")
	}
	n, p := d.X.Dims()
	switch {
	case len(d.Y) != n:
		return fmt.Errorf("dataset: %d labels for %d samples", len(d.Y), n)
	case d.Partition != nil && d.Partition.NumFeatures() != p:
		return fmt.Errorf("dataset: partition covers %d features, design has %d",
			d.Partition.NumFeatures(), p)
	}
	return nil
}

// Dataset is a named source of Data.
type Dataset interface {
	Name() string
	Data() (*Data, error)
}
