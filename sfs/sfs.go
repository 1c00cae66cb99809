// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package sfs implements the N-dimensional site frequency spectrum
// container and its derived statistics.
//
// An SFS is a dense array of float64 values in row-major order over a
// shape (s0, ..., s{N-1}), where each sj is one plus the number of
// alleles in population j. The joint SFS of N populations assigns a
// value to each N-tuple of minor allele counts; a normalised SFS is a
// probability distribution over such tuples.
package sfs

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/SnellerInc/winsfs/ints"
)

// normTolerance is the absolute tolerance within which the sum of a
// normalised SFS must lie from 1.
const normTolerance = 10 * 2.220446049250313e-16 // 10 * f64 machine epsilon

// SFS is a dense, dynamically-shaped N-dimensional array of float64
// values in row-major order.
//
// The zero value is not useful; use Zeros, Uniform, New or one of the
// readers to construct one.
type SFS struct {
	shape   []int
	strides []int
	vals    []float64
	norm    bool
}

func strides(shape []int) []int {
	out := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		out[i] = acc
		acc *= shape[i]
	}
	return out
}

func checkShape(shape []int) {
	if len(shape) == 0 {
		panic("sfs: empty shape")
	}
	for _, s := range shape {
		if s <= 0 {
			panic(fmt.Sprintf("sfs: non-positive shape entry in %v", shape))
		}
	}
}

// Zeros returns a zero-initialised unnormalised SFS of the given shape.
func Zeros(shape []int) *SFS {
	checkShape(shape)
	shape = slices.Clone(shape)
	return &SFS{
		shape:   shape,
		strides: strides(shape),
		vals:    make([]float64, ints.Prod(shape)),
	}
}

// Uniform returns a normalised SFS of the given shape with all entries
// equal to the inverse of the number of entries.
func Uniform(shape []int) *SFS {
	s := Zeros(shape)
	v := 1 / float64(len(s.vals))
	for i := range s.vals {
		s.vals[i] = v
	}
	s.norm = true
	return s
}

// New returns an unnormalised SFS of the given shape backed by vals.
// The length of vals must equal the product of the shape.
func New(vals []float64, shape []int) (*SFS, error) {
	checkShape(shape)
	if n := ints.Prod(shape); len(vals) != n {
		return nil, fmt.Errorf("sfs: %d values do not fit shape %v (want %d)", len(vals), shape, n)
	}
	shape = slices.Clone(shape)
	return &SFS{
		shape:   shape,
		strides: strides(shape),
		vals:    vals,
	}, nil
}

// Clone returns a deep copy of s.
func (s *SFS) Clone() *SFS {
	return &SFS{
		shape:   slices.Clone(s.shape),
		strides: slices.Clone(s.strides),
		vals:    slices.Clone(s.vals),
		norm:    s.norm,
	}
}

// Shape returns the shape of s. The returned slice must not be modified.
func (s *SFS) Shape() []int { return s.shape }

// Strides returns the row-major strides of s.
// The returned slice must not be modified.
func (s *SFS) Strides() []int { return s.strides }

// Values returns the backing values of s in row-major order.
// Mutating the returned slice invalidates the normalisation marker.
func (s *SFS) Values() []float64 { return s.vals }

// Dim returns the number of dimensions of s.
func (s *SFS) Dim() int { return len(s.shape) }

// Normalised reports whether s is known to sum to one.
func (s *SFS) Normalised() bool { return s.norm }

// flat converts an N-dimensional index into a flat offset,
// panicking if the index is out of bounds.
func (s *SFS) flat(index []int) int {
	if len(index) != len(s.shape) {
		panic(fmt.Sprintf("sfs: index %v does not match shape %v", index, s.shape))
	}
	off := 0
	for j, i := range index {
		if i < 0 || i >= s.shape[j] {
			panic(fmt.Sprintf("sfs: index %v out of bounds for shape %v", index, s.shape))
		}
		off += i * s.strides[j]
	}
	return off
}

// Get returns the value at the given N-dimensional index.
// Get panics if the index is out of bounds.
func (s *SFS) Get(index ...int) float64 {
	return s.vals[s.flat(index)]
}

// Set sets the value at the given N-dimensional index.
// Set panics if the index is out of bounds.
func (s *SFS) Set(v float64, index ...int) {
	s.vals[s.flat(index)] = v
	s.norm = false
}

// Sum returns the sum of all values in s.
func (s *SFS) Sum() float64 {
	sum := 0.0
	for _, v := range s.vals {
		sum += v
	}
	return sum
}

func (s *SFS) sameShape(other *SFS) {
	if !slices.Equal(s.shape, other.shape) {
		panic(fmt.Sprintf("sfs: shape mismatch: %v != %v", s.shape, other.shape))
	}
}

// AddAssign adds other elementwise into s.
// The result is unnormalised.
// AddAssign panics if the shapes differ.
func (s *SFS) AddAssign(other *SFS) {
	s.sameShape(other)
	for i, v := range other.vals {
		s.vals[i] += v
	}
	s.norm = false
}

// SubAssign subtracts other elementwise from s.
// The result is unnormalised.
// SubAssign panics if the shapes differ.
func (s *SFS) SubAssign(other *SFS) {
	s.sameShape(other)
	for i, v := range other.vals {
		s.vals[i] -= v
	}
	s.norm = false
}

// Add returns the elementwise sum of a and b as a new unnormalised SFS.
// Add panics if the shapes differ.
func Add(a, b *SFS) *SFS {
	out := a.Clone()
	out.AddAssign(b)
	return out
}

// Sub returns the elementwise difference of a and b as a new
// unnormalised SFS. Sub panics if the shapes differ.
func Sub(a, b *SFS) *SFS {
	out := a.Clone()
	out.SubAssign(b)
	return out
}

// Scale multiplies every entry of s by k in place.
// The result is unnormalised.
func (s *SFS) Scale(k float64) *SFS {
	for i := range s.vals {
		s.vals[i] *= k
	}
	s.norm = false
	return s
}

// Zero sets every entry of s to zero in place.
func (s *SFS) Zero() {
	for i := range s.vals {
		s.vals[i] = 0
	}
	s.norm = false
}

// Normalise divides s by its sum in place so that it sums to one.
// s is marked normalised only if the resulting sum actually lies
// within tolerance of one, which fails if the sum was zero or
// non-finite.
func (s *SFS) Normalise() *SFS {
	sum := s.Sum()
	for i := range s.vals {
		s.vals[i] /= sum
	}
	s.norm = math.Abs(s.Sum()-1) <= normTolerance
	return s
}

// HasNaN reports whether any entry of s is NaN.
func (s *SFS) HasNaN() bool {
	for _, v := range s.vals {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// FormatFlat returns the values of s in row-major order, formatted
// with the given precision and joined by sep.
func (s *SFS) FormatFlat(sep string, prec int) string {
	var sb strings.Builder
	for i, v := range s.vals {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(strconv.FormatFloat(v, 'f', prec, 64))
	}
	return sb.String()
}
