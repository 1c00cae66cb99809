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

package sfs

// IndexIter iterates over the N-dimensional indices of an SFS in
// row-major order.
type IndexIter struct {
	shape []int
	index []int
	state int // 0 before first Next, 1 iterating, 2 done
}

// Indices returns an iterator over the indices of s in row-major
// order, i.e. in the same order as Values.
func (s *SFS) Indices() *IndexIter {
	return &IndexIter{
		shape: s.shape,
		index: make([]int, len(s.shape)),
	}
}

// Next advances the iterator and reports whether an index is
// available.
func (it *IndexIter) Next() bool {
	switch it.state {
	case 0:
		it.state = 1
		return true
	case 2:
		return false
	}
	for j := len(it.index) - 1; j >= 0; j-- {
		it.index[j]++
		if it.index[j] < it.shape[j] {
			return true
		}
		it.index[j] = 0
	}
	it.state = 2
	return false
}

// Index returns the current index.
// The returned slice is reused by subsequent calls to Next.
func (it *IndexIter) Index() []int { return it.index }

// Frequencies writes the allele frequencies corresponding to the
// current index into dst and returns it. The frequency in dimension j
// is index[j]/(shape[j]-1), or zero for a single-entry dimension.
func (it *IndexIter) Frequencies(dst []float64) []float64 {
	dst = dst[:0]
	for j, i := range it.index {
		if it.shape[j] > 1 {
			dst = append(dst, float64(i)/float64(it.shape[j]-1))
		} else {
			dst = append(dst, 0)
		}
	}
	return dst
}
