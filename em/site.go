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

// Package em implements expectation-maximisation estimation of the
// site frequency spectrum from SAF likelihoods, including the
// per-site kernel, sequential, parallel and streaming e-steps, the
// window EM scheduler, and stopping rules.
package em

import (
	"fmt"
	"math"

	"golang.org/x/exp/slices"

	"github.com/SnellerInc/winsfs/saf"
	"github.com/SnellerInc/winsfs/sfs"
)

// assertShape panics unless the site shape matches the SFS shape.
// A mismatch here is a programming error: shapes are validated at the
// boundaries that construct inputs.
func assertShape(p *sfs.SFS, site saf.Site) {
	if !slices.Equal(p.Shape(), site.Shape()) {
		panic(fmt.Sprintf("em: SFS shape %v does not match site shape %v", p.Shape(), site.Shape()))
	}
}

// SiteLikelihood returns the likelihood of a single site given a
// normalised SFS p: the sum over all index tuples (i0, ..., i{N-1})
// of p[i0,...,i{N-1}] times the product over populations j of the
// site's j-th likelihood vector at ij.
//
// SiteLikelihood panics if the shape of p does not match the site.
func SiteLikelihood(p *sfs.SFS, site saf.Site) float64 {
	assertShape(p, site)
	var pops [6][]float32
	sum := 0.0
	likelihoodInner(p.Values(), p.Strides(), site.Split(pops[:0]), &sum, 1)
	return sum
}

// SiteLogLikelihood returns the natural log of SiteLikelihood.
func SiteLogLikelihood(p *sfs.SFS, site saf.Site) float64 {
	return math.Log(SiteLikelihood(p, site))
}

// SitePosterior computes the posterior over index tuples for a single
// site given a normalised SFS p and adds it into posterior, using buf
// as scratch space. The contents of buf are overwritten. The shapes
// of posterior and buf are not checked, but must match p.
//
// The likelihood of the site is returned.
//
// SitePosterior panics if the shape of p does not match the site.
func SitePosterior(p *sfs.SFS, site saf.Site, posterior, buf *sfs.SFS) float64 {
	assertShape(p, site)
	var pops [6][]float32
	sum := 0.0
	posteriorInner(p.Values(), p.Strides(), site.Split(pops[:0]), buf.Values(), &sum, 1)
	// normalise and accumulate in one pass
	bv, pv := buf.Values(), posterior.Values()
	for i, v := range bv {
		v /= sum
		bv[i] = v
		pv[i] += v
	}
	return sum
}

// likelihoodInner accumulates the site likelihood recursively over
// dimensions: the head population's values scale descent into
// stride-offset subslices of the SFS, and the base case sums the
// final products. This is the simplified form of posteriorInner.
func likelihoodInner(vals []float64, strides []int, site [][]float32, sum *float64, acc float64) {
	if len(site) == 1 {
		for i, v := range site[0] {
			*sum += vals[i] * float64(v) * acc
		}
		return
	}
	stride := strides[0]
	for i, v := range site[0] {
		likelihoodInner(vals[i*stride:], strides[1:], site[1:], sum, float64(v)*acc)
	}
}

// posteriorInner is likelihoodInner with the unnormalised posterior
// products written into buf along the way. The caller divides buf by
// the returned sum to normalise.
func posteriorInner(vals []float64, strides []int, site [][]float32, buf []float64, sum *float64, acc float64) {
	if len(site) == 1 {
		for i, v := range site[0] {
			product := vals[i] * float64(v) * acc
			buf[i] = product
			*sum += product
		}
		return
	}
	stride := strides[0]
	for i, v := range site[0] {
		posteriorInner(vals[i*stride:], strides[1:], site[1:], buf[i*stride:], sum, float64(v)*acc)
	}
}
