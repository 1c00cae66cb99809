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

// Package ints provides int-related common functions.
package ints

import (
	"golang.org/x/exp/constraints"
)

// Min returns the smaller value of x and y
func Min[T constraints.Integer](x, y T) T {
	if x <= y {
		return x
	}
	return y
}

// Max returns the greater value of x and y
func Max[T constraints.Integer](x, y T) T {
	if x >= y {
		return x
	}
	return y
}

// Clamp returns x if it is in [lo, hi]. Otherwise, the nearest bounding value is returned
func Clamp[T constraints.Integer](x, lo, hi T) T {
	return Max(lo, Min(x, hi))
}

// Prod returns the product of the values in x,
// or 1 if x is empty.
func Prod[T constraints.Integer](x []T) T {
	p := T(1)
	for i := range x {
		p *= x[i]
	}
	return p
}

// Sum returns the sum of the values in x.
func Sum[T constraints.Integer](x []T) T {
	s := T(0)
	for i := range x {
		s += x[i]
	}
	return s
}

// Chunks partitions the half-open range [0, n) into
// at most k contiguous chunks of near-equal length
// and returns the chunk boundaries, beginning with 0
// and ending with n. The first n%k chunks are one
// element longer than the rest. Chunks panics if k
// is not positive.
func Chunks(n, k int) []int {
	if k <= 0 {
		panic("ints.Chunks: non-positive chunk count")
	}
	if k > n {
		k = Max(n, 1)
	}
	div, rem := n/k, n%k
	bounds := make([]int, k+1)
	for i := 1; i <= k; i++ {
		size := div
		if i <= rem {
			size++
		}
		bounds[i] = bounds[i-1] + size
	}
	return bounds
}
