// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mtrand provides a seeded pseudo-random stream that reproduces the
// draws of numpy's legacy RandomState bit-for-bit.
//
// Reference datasets and group partitions are produced by code calling
// np.random.seed followed by shuffle, choice and randn. Reproducing those
// arrays requires the same generator (MT19937 seeded with init_genrand),
// the same bounded integer sampler (masked rejection) and the same
// polar Box-Muller transform with its cached second deviate.
//
// # Reference:
//
//   - https://github.com/numpy/numpy/blob/main/numpy/random/mtrand.pyx
//   - https://github.com/numpy/numpy/blob/main/numpy/random/src/distributions/distributions.c
//   - https://github.com/numpy/numpy/blob/main/numpy/random/src/legacy/legacy-distributions.c
package mtrand

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mathext/prng"
)

// Stream is a numpy-compatible random stream.
// A Stream is not safe for concurrent use.
type Stream struct {
	src      *prng.MT19937
	hasGauss bool
	gauss    float64
}

// MaxSeed is the largest seed accepted by np.random.seed. Callers reject
// larger values since Seed drops the upper bits.
const MaxSeed = math.MaxUint32

// New returns a stream seeded like np.random.seed(seed).
func New(seed uint64) *Stream {
	s := &Stream{src: prng.NewMT19937()}
	s.Seed(seed)
	return s
}

// Seed resets the stream state. Only the lower 32 bits of seed are used,
// and any cached gaussian deviate is discarded.
func (s *Stream) Seed(seed uint64) {
	s.src.Seed(seed)
	s.hasGauss = false
	s.gauss = 0
}

// Uint32 returns the next raw 32 bit output of the generator.
func (s *Stream) Uint32() uint32 {
	return s.src.Uint32()
}

// Uint64 returns two consecutive outputs, high word first.
func (s *Stream) Uint64() uint64 {
	return s.src.Uint64()
}

// Interval returns a uniform integer in [0, max] using masked rejection
// sampling, consuming 32 bit words when max fits in 32 bits.
func (s *Stream) Interval(max uint64) uint64 {
	if max == 0 {
		return 0
	}

	mask := max
	mask |= mask >> 1
	mask |= mask >> 2
	mask |= mask >> 4
	mask |= mask >> 8
	mask |= mask >> 16
	mask |= mask >> 32

	for {
		var value uint64
		if max <= math.MaxUint32 {
			value = uint64(s.Uint32()) & mask
		} else {
			value = s.Uint64() & mask
		}
		if value <= max {
			return value
		}
	}
}

// Float64 returns a uniform value in [0, 1) with 53 bits of resolution.
func (s *Stream) Float64() float64 {
	a := s.Uint32() >> 5
	b := s.Uint32() >> 6
	return (float64(a)*67108864.0 + float64(b)) / 9007199254740992.0
}

// NormFloat64 returns a standard normal deviate using the polar method.
// Deviates are produced in pairs, the second one is cached for the next call.
func (s *Stream) NormFloat64() float64 {
	if s.hasGauss {
		tmp := s.gauss
		s.gauss = 0
		s.hasGauss = false
		return tmp
	}

	var x1, x2, r2 float64
	for {
		x1 = 2*s.Float64() - 1
		x2 = 2*s.Float64() - 1
		r2 = x1*x1 + x2*x2
		if r2 < 1 && r2 != 0 {
			break
		}
	}

	f := math.Sqrt(-2 * math.Log(r2) / r2)
	s.gauss = f * x1
	s.hasGauss = true
	return f * x2
}

// Normals fills dst with standard normal deviates and returns it.
// A nil dst allocates a slice of length n.
func (s *Stream) Normals(dst []float64, n int) []float64 {
	if dst == nil {
		dst = make([]float64, n)
	}
	for i := range dst {
		dst[i] = s.NormFloat64()
	}
	return dst
}

// Shuffle permutes n elements in place through swap, walking from the last
// element down to the second one.
func (s *Stream) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := int(s.Interval(uint64(i)))
		swap(i, j)
	}
}

// Perm returns a random permutation of [0, n).
func (s *Stream) Perm(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	s.Shuffle(n, func(i, j int) { p[i], p[j] = p[j], p[i] })
	return p
}

// ErrSampleSize is returned when more distinct samples than the population
// size are requested.
var ErrSampleSize = errors.New("mtrand: cannot take a larger sample than population without replacement")

// Choice draws size distinct integers from [0, n) the way
// choice(n, size, replace=False) does: the leading size entries of a full
// permutation.
func (s *Stream) Choice(n, size int) ([]int, error) {
	switch {
	case n < 0 || size < 0:
		return nil, errors.New("mtrand: negative dimensions")
	case size > n:
		return nil, ErrSampleSize
	}
	return s.Perm(n)[:size:size], nil
}
