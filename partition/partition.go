// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package partition implements ragged partitions of feature indices into
// groups, stored in a compressed layout:
//
//	Indices  a permutation of [0, n_features)
//	Ptr      n_groups+1 non-decreasing offsets, Ptr[0] = 0, Ptr[n_groups] = n_features
//
// Group g occupies Indices[Ptr[g]:Ptr[g+1]], the same way a CSR matrix
// addresses the columns of a row.
package partition

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/curioloop/benchmark-group-logreg/mtrand"
)

var (
	// ErrConfig is returned when a partition cannot be generated from the
	// requested group and feature counts.
	ErrConfig = errors.New("partition: invalid configuration")

	// ErrShape is returned when pointer and index arrays are inconsistent.
	ErrShape = errors.New("partition: inconsistent shape")
)

// Partition is a ragged partition of [0, NumFeatures()) into NumGroups() groups.
// A Partition is read-only once built.
type Partition struct {
	Indices []int // grp_indices
	Ptr     []int // grp_ptr
}

// New validates the pointer and index arrays and wraps them into a Partition.
// The arrays are copied.
func New(ptr, indices []int) (*Partition, error) {
	p := &Partition{
		Indices: slices.Clone(indices),
		Ptr:     slices.Clone(ptr),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Contiguous builds a partition of consecutive features with the given group sizes.
func Contiguous(sizes ...int) (*Partition, error) {
	ptr := make([]int, len(sizes)+1)
	for g, sz := range sizes {
		if sz < 0 {
			return nil, fmt.Errorf("%w: negative size %d for group %d", ErrConfig, sz, g)
		}
		ptr[g+1] = ptr[g] + sz
	}
	indices := make([]int, ptr[len(sizes)])
	for i := range indices {
		indices[i] = i
	}
	return New(ptr, indices)
}

// Random partitions nFeatures indices into nGroups groups of random sizes.
//
// The procedure reseeds twice so that the result only depends on the arguments:
// the indices are shuffled right after the first reseed (when shuffle is set),
// and the nGroups+1 boundaries are drawn without replacement right after the
// second. The first and last boundaries are then overwritten by 0 and nFeatures.
func Random(nGroups, nFeatures int, shuffle bool, seed uint64) (*Partition, error) {
	switch {
	case nGroups <= 0:
		return nil, fmt.Errorf("%w: number of groups must be positive, got %d", ErrConfig, nGroups)
	case nGroups+1 > nFeatures:
		return nil, fmt.Errorf("%w: cannot draw %d distinct boundaries from %d features",
			ErrConfig, nGroups+1, nFeatures)
	case seed > mtrand.MaxSeed:
		return nil, fmt.Errorf("%w: seed must be between 0 and %d, got %d", ErrConfig, uint64(mtrand.MaxSeed), seed)
	}

	indices := make([]int, nFeatures)
	for i := range indices {
		indices[i] = i
	}

	rng := mtrand.New(seed)
	if shuffle {
		rng.Shuffle(nFeatures, func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	rng.Seed(seed)
	splits, err := rng.Choice(nFeatures, nGroups+1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	slices.Sort(splits)
	splits[0], splits[nGroups] = 0, nFeatures

	return &Partition{Indices: indices, Ptr: splits}, nil
}

// Validate checks the structural invariants of the partition.
func (p *Partition) Validate() error {
	n := len(p.Indices)
	switch {
	case len(p.Ptr) < 2:
		return fmt.Errorf("%w: pointer array needs at least 2 entries, got %d", ErrShape, len(p.Ptr))
	case p.Ptr[0] != 0:
		return fmt.Errorf("%w: first pointer must be 0, got %d", ErrShape, p.Ptr[0])
	case p.Ptr[len(p.Ptr)-1] != n:
		return fmt.Errorf("%w: last pointer must be %d, got %d", ErrShape, n, p.Ptr[len(p.Ptr)-1])
	}

	for g := 1; g < len(p.Ptr); g++ {
		if p.Ptr[g] < p.Ptr[g-1] || p.Ptr[g] > n {
			return fmt.Errorf("%w: pointer %d out of order or range", ErrShape, g)
		}
	}

	seen := make([]bool, n)
	for k, j := range p.Indices {
		if j < 0 || j >= n {
			return fmt.Errorf("%w: index %d at %d out of range", ErrShape, j, k)
		}
		if seen[j] {
			return fmt.Errorf("%w: duplicated index %d", ErrShape, j)
		}
		seen[j] = true
	}
	return nil
}

// NumGroups returns the number of groups.
func (p *Partition) NumGroups() int { return len(p.Ptr) - 1 }

// NumFeatures returns the number of partitioned features.
func (p *Partition) NumFeatures() int { return len(p.Indices) }

// Group returns the feature indices of group g. The slice aliases Indices.
func (p *Partition) Group(g int) []int {
	return p.Indices[p.Ptr[g]:p.Ptr[g+1]:p.Ptr[g+1]]
}

// Sizes returns the number of features of each group.
func (p *Partition) Sizes() []int {
	sizes := make([]int, p.NumGroups())
	for g := range sizes {
		sizes[g] = p.Ptr[g+1] - p.Ptr[g]
	}
	return sizes
}

// Fingerprint hashes the pointer and index arrays.
// Two partitions share a fingerprint when both arrays are equal.
func (p *Partition) Fingerprint() uint64 {
	h := xxhash.New()
	var buf [8]byte
	write := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		_, _ = h.Write(buf[:])
	}
	write(len(p.Ptr))
	for _, v := range p.Ptr {
		write(v)
	}
	write(len(p.Indices))
	for _, v := range p.Indices {
		write(v)
	}
	return h.Sum64()
}

func (p *Partition) String() string {
	return fmt.Sprintf("partition(groups=%d, features=%d, fingerprint=%016x)",
		p.NumGroups(), p.NumFeatures(), p.Fingerprint())
}
