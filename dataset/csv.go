// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/benchmark-group-logreg/partition"
)

// CSV reads a labelled table such as the leukemia expression data exported
// from OpenML: one sample per row, numeric feature columns and one class column.
type CSV struct {
	Path string
	// Header marks the first row as column names.
	Header bool
	// LabelColumn is the index of the class column, negative values count
	// from the end. The zero value selects the first column, so use -1 for
	// the last one.
	LabelColumn int
	// NGroups attaches an unshuffled random partition when positive.
	NGroups int
}

func (c *CSV) Name() string {
	name := strings.TrimSuffix(filepath.Base(c.Path), filepath.Ext(c.Path))
	if c.NGroups > 0 {
		return fmt.Sprintf("%s[n_groups=%d]", name, c.NGroups)
	}
	return name
}

// Data loads the table. Partitions are generated without shuffling.
func (c *CSV) Data() (*Data, error) {
	if c.Path == "" {
		return nil, errors.New("dataset: csv path is required")
	}
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := ReadCSV(f, c.Header, c.LabelColumn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Path, err)
	}

	if c.NGroups > 0 {
		_, p := d.Dims()
		if d.Partition, err = partition.Random(c.NGroups, p, false, 0); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// ReadCSV decodes a labelled table from r.
func ReadCSV(r io.Reader, header bool, labelColumn int) (*Data, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var (
		values []float64
		labels []string
		nCols  = -1
		row    = 0
	)

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		row++
		if header && row == 1 {
			continue
		}

		if nCols < 0 {
			nCols = len(record)
			if nCols < 2 {
				return nil, fmt.Errorf("%w: need a label and at least one feature column", ErrFormat)
			}
			if labelColumn < 0 {
				labelColumn += nCols
			}
			if labelColumn < 0 || labelColumn >= nCols {
				return nil, fmt.Errorf("%w: label column out of range", ErrFormat)
			}
		}

		for k, field := range record {
			if k == labelColumn {
				labels = append(labels, strings.TrimSpace(field))
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %d: %v", ErrFormat, row, k, err)
			}
			values = append(values, v)
		}
	}

	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrFormat)
	}

	return &Data{
		X: mat.NewDense(len(labels), nCols-1, values),
		Y: Binarize(labels),
	}, nil
}

// Binarize maps class labels to {-1, +1}. Classes are sorted; with two
// classes the second one is positive, with more classes the first one is
// positive (one-vs-rest on the first indicator column), and a single class
// maps to -1 everywhere.
func Binarize(labels []string) []float64 {
	classes := slices.Clone(labels)
	slices.Sort(classes)
	classes = slices.Compact(classes)

	var pos string
	switch {
	case len(classes) == 2:
		pos = classes[1]
	case len(classes) > 2:
		pos = classes[0]
	}

	y := make([]float64, len(labels))
	for i, l := range labels {
		if len(classes) > 1 && l == pos {
			y[i] = 1
		} else {
			y[i] = -1
		}
	}
	return y
}
