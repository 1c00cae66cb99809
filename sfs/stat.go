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

import (
	"fmt"

	"github.com/SnellerInc/winsfs/ints"
)

// F2 returns the f2 statistic of a normalised 2-dimensional SFS:
// the sum over all entries of p[i,j] * (f_i - f_j)^2, where f_i and
// f_j are the allele frequencies in the two populations.
func (s *SFS) F2() (float64, error) {
	if s.Dim() != 2 {
		return 0, fmt.Errorf("calculating F2 requires SFS with dimension 2, found SFS with dimension %d", s.Dim())
	}
	p := s.Clone().Normalise()
	sum := 0.0
	freqs := make([]float64, 0, 2)
	it := p.Indices()
	for i := 0; it.Next(); i++ {
		freqs = it.Frequencies(freqs)
		d := freqs[0] - freqs[1]
		sum += p.vals[i] * d * d
	}
	return sum, nil
}

// check3x3 returns the normalised values of a 3x3 SFS, or an error
// describing why the kinship statistic name cannot be calculated.
func (s *SFS) check3x3(name string) ([]float64, error) {
	if s.Dim() != 2 {
		return nil, fmt.Errorf("calculating %s requires SFS with dimension 2, found SFS with dimension %d", name, s.Dim())
	}
	if s.shape[0] != 3 || s.shape[1] != 3 {
		return nil, fmt.Errorf("calculating %s requires SFS with shape 3/3, found SFS with shape %d/%d", name, s.shape[0], s.shape[1])
	}
	return s.Clone().Normalise().vals, nil
}

// King returns the KING-robust kinship statistic of a 3x3 SFS of
// joint genotype proportions for a pair of individuals.
func (s *SFS) King() (float64, error) {
	v, err := s.check3x3("King")
	if err != nil {
		return 0, err
	}
	// flat layout: v[3*i+j] is the proportion of sites where the
	// first individual carries i and the second j minor alleles
	return (v[4] - 2*(v[2]+v[6])) / (v[1] + v[3] + 2*v[4] + v[5] + v[7]), nil
}

// R0 returns the R0 kinship statistic of a 3x3 SFS: the ratio of
// opposing homozygous sites to doubly heterozygous sites.
func (s *SFS) R0() (float64, error) {
	v, err := s.check3x3("R0")
	if err != nil {
		return 0, err
	}
	return (v[2] + v[6]) / v[4], nil
}

// R1 returns the R1 kinship statistic of a 3x3 SFS: the ratio of
// doubly heterozygous sites to all sites differing in genotype.
func (s *SFS) R1() (float64, error) {
	v, err := s.check3x3("R1")
	if err != nil {
		return 0, err
	}
	return v[4] / (v[1] + v[2] + v[3] + v[5] + v[6] + v[7]), nil
}

// Fold folds s onto the major allele and returns the folded spectrum.
//
// The entry at index i and the entry at its mirror (elementwise
// shape-1-i, i.e. the reverse position in the flat row-major layout)
// describe the same site under an unknown ancestral state, so their
// values are combined. The folding is onto the upper part of the
// spectrum: the lower part is set to zero, and entries on the fold
// line, where the two total allele counts are equal, keep half the
// combined value.
func (s *SFS) Fold() *SFS {
	total := 0
	for _, d := range s.shape {
		total += d - 1
	}
	out := Zeros(s.shape)
	n := len(s.vals)
	it := s.Indices()
	for i := 0; it.Next(); i++ {
		count := ints.Sum(it.Index())
		sum := s.vals[i] + s.vals[n-1-i]
		switch {
		case 2*count > total:
			out.vals[i] = sum
		case 2*count == total:
			out.vals[i] = sum / 2
		default:
			out.vals[i] = 0
		}
	}
	return out
}
