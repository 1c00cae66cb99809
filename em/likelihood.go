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

package em

// SumOf is a sum of per-site log-likelihoods together with the number
// of sites summed over.
type SumOf struct {
	Sum float64
	N   int
}

// Add returns the combined sum of s and other.
func (s SumOf) Add(other SumOf) SumOf {
	return SumOf{Sum: s.Sum + other.Sum, N: s.N + other.N}
}

// Normalise returns the log-likelihood normalised by the number of
// sites, i.e. the mean per-site log-likelihood.
func (s SumOf) Normalise() float64 {
	return s.Sum / float64(s.N)
}

// Status is the per-step output of the window EM scheduler: one
// log-likelihood sum per block, in block order. The standard EM
// functions produce a single-element status.
type Status []SumOf

// LogLikelihood returns the log-likelihood sum over all blocks in the
// status.
func (st Status) LogLikelihood() SumOf {
	var total SumOf
	for _, s := range st {
		total = total.Add(s)
	}
	return total
}

// WindowLogLikelihood returns the sum over blocks of the per-site
// normalised block log-likelihoods. This is the scalar compared
// across steps by the window log-likelihood stopping rule.
func (st Status) WindowLogLikelihood() float64 {
	sum := 0.0
	for _, s := range st {
		sum += s.Normalise()
	}
	return sum
}
