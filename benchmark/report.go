// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchmark

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteSummary prints one line per curve with its final sample.
func WriteSummary(w io.Writer, curves []Curve) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "dataset\tobjective\tgroups (sizes)\tsolver\talpha\tn_iter\ttime (s)\tobjective value\tkey")
	for i := range curves {
		c := &curves[i]
		last := c.Final()
		fmt.Fprintf(tw, "%s\t%s\t%d (%d-%d)\t%s\t%.4e\t%d\t%.4f\t%.12e\t%016x\n",
			c.Dataset, c.Objective, c.Groups, c.MinSize, c.MaxSize, c.Solver, c.Alpha,
			last.Iter, last.Time.Seconds(), last.Objective, c.Key())
	}
	return tw.Flush()
}

// WriteCurves prints every sampled point, suitable for plotting.
func WriteCurves(w io.Writer, curves []Curve) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "key\tsolver\tn_iter\ttime (s)\tobjective value")
	for i := range curves {
		c := &curves[i]
		for _, p := range c.Points {
			fmt.Fprintf(tw, "%016x\t%s\t%d\t%.6f\t%.12e\n", c.Key(), c.Solver, p.Iter, p.Time.Seconds(), p.Objective)
		}
	}
	return tw.Flush()
}
