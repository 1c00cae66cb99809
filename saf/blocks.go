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

package saf

import "fmt"

// Blocks specifies how sites are partitioned into blocks, either as a
// fixed number of near-equal blocks or as blocks of a fixed size.
// The specification is materialised lazily against a concrete site
// count, since that count may not be known when the specification is
// chosen.
type Blocks struct {
	number int
	size   int
}

// BlockCount specifies partitioning into exactly n blocks. The first
// sites%n blocks hold one site more than the rest.
// BlockCount panics if n is not positive.
func BlockCount(n int) Blocks {
	if n <= 0 {
		panic(fmt.Sprintf("saf: non-positive block count %d", n))
	}
	return Blocks{number: n}
}

// BlockSize specifies partitioning into blocks of m sites each, with
// a final partial block holding any remainder.
// BlockSize panics if m is not positive.
func BlockSize(m int) Blocks {
	if m <= 0 {
		panic(fmt.Sprintf("saf: non-positive block size %d", m))
	}
	return Blocks{size: m}
}

// IsCount reports whether b is a fixed-count specification, and the
// count if so.
func (b Blocks) IsCount() (int, bool) { return b.number, b.number > 0 }

// IsSize reports whether b is a fixed-size specification, and the
// size if so.
func (b Blocks) IsSize() (int, bool) { return b.size, b.size > 0 }

// Count returns the number of blocks obtained by materialising b
// against the given site count. Count panics if a fixed count cannot
// be materialised because it exceeds the number of sites.
func (b Blocks) Count(sites int) int {
	if b.number > 0 {
		if sites == 0 {
			return 0
		}
		if b.number > sites {
			panic(fmt.Sprintf("saf: tried to split SAF into more blocks %d than sites %d", b.number, sites))
		}
		return b.number
	}
	n := sites / b.size
	if sites%b.size != 0 {
		n++
	}
	return n
}

// ApproxSize returns the approximate number of sites per block when b
// is materialised against the given site count.
func (b Blocks) ApproxSize(sites int) int {
	if b.number > 0 {
		return sites / b.number
	}
	return b.size
}

// Sizes materialises b against the given site count and returns the
// per-block site counts. The sizes sum to sites, and every site
// belongs to exactly one block.
func (b Blocks) Sizes(sites int) []int {
	if sites == 0 {
		return nil
	}
	if b.number > 0 {
		n := b.Count(sites)
		div, rem := sites/n, sites%n
		out := make([]int, n)
		for i := range out {
			out[i] = div
			if i < rem {
				out[i]++
			}
		}
		return out
	}
	out := make([]int, 0, b.Count(sites))
	for sites >= b.size {
		out = append(out, b.size)
		sites -= b.size
	}
	if sites > 0 {
		out = append(out, sites)
	}
	return out
}
