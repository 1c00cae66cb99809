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

// Package saf implements in-memory storage for joint site allele
// frequency (SAF) likelihoods.
//
// A Saf holds, for each site, the SAF likelihood vectors of N
// populations laid out contiguously in site-major order: for each
// site, all s0 values of population 0, then all s1 values of
// population 1, and so on. Values are stored in linear space; SAF
// files on disk store natural logs, so readers exponentiate before
// filling a Saf.
package saf

import (
	"fmt"
	"math/rand"

	"golang.org/x/exp/slices"

	"github.com/SnellerInc/winsfs/ints"
)

// Saf owns contiguous site-major storage of joint SAF likelihoods.
type Saf struct {
	vals  []float32
	shape []int
}

// New returns a Saf over vals with the given per-population shape.
// The length of vals must be a multiple of the total site width.
func New(vals []float32, shape []int) (*Saf, error) {
	width := ints.Sum(shape)
	if width == 0 {
		return nil, fmt.Errorf("saf: empty shape")
	}
	if len(vals)%width != 0 {
		return nil, fmt.Errorf("saf: %d values do not fit site width %d", len(vals), width)
	}
	return &Saf{vals: vals, shape: slices.Clone(shape)}, nil
}

// Shape returns the per-population widths.
// The returned slice must not be modified.
func (s *Saf) Shape() []int { return s.shape }

// Width returns the number of values per site.
func (s *Saf) Width() int { return ints.Sum(s.shape) }

// Sites returns the number of sites stored.
func (s *Saf) Sites() int { return len(s.vals) / s.Width() }

// Site returns a view of the i-th site.
func (s *Saf) Site(i int) Site { return s.View().Site(i) }

// View returns a view over all sites of s.
func (s *Saf) View() View {
	return View{vals: s.vals, shape: s.shape}
}

// SwapSites swaps the storage of sites i and j in place.
func (s *Saf) SwapSites(i, j int) {
	if i == j {
		return
	}
	width := s.Width()
	a := s.vals[i*width : (i+1)*width]
	b := s.vals[j*width : (j+1)*width]
	for k := range a {
		a[k], b[k] = b[k], a[k]
	}
}

// Shuffle permutes the sites of s in place using a Fisher-Yates
// shuffle driven by rng.
func (s *Saf) Shuffle(rng *rand.Rand) {
	for i := s.Sites() - 1; i > 0; i-- {
		s.SwapSites(i, rng.Intn(i+1))
	}
}

// View borrows a contiguous run of sites from a Saf.
type View struct {
	vals  []float32
	shape []int
}

// Shape returns the per-population widths.
// The returned slice must not be modified.
func (v View) Shape() []int { return v.shape }

// Width returns the number of values per site.
func (v View) Width() int { return ints.Sum(v.shape) }

// Sites returns the number of sites in the view.
func (v View) Sites() int { return len(v.vals) / v.Width() }

// Site returns a view of the i-th site in v.
func (v View) Site(i int) Site {
	width := v.Width()
	return Site{vals: v.vals[i*width : (i+1)*width], shape: v.shape}
}

// Split splits v into a head view of the first k sites and a tail
// view of the rest. Split panics if k exceeds the number of sites.
func (v View) Split(k int) (head, tail View) {
	width := v.Width()
	if k < 0 || k*width > len(v.vals) {
		panic(fmt.Sprintf("saf: cannot split view of %d sites at %d", v.Sites(), k))
	}
	head = View{vals: v.vals[:k*width], shape: v.shape}
	tail = View{vals: v.vals[k*width:], shape: v.shape}
	return head, tail
}

// Range returns the subview of sites [lo, hi).
func (v View) Range(lo, hi int) View {
	width := v.Width()
	return View{vals: v.vals[lo*width : hi*width], shape: v.shape}
}

// Blocks returns the sequence of block views obtained by
// materialising spec against the sites of v. The returned views
// partition v in order.
func (v View) Blocks(spec Blocks) []View {
	sizes := spec.Sizes(v.Sites())
	out := make([]View, 0, len(sizes))
	rest := v
	for _, size := range sizes {
		var head View
		head, rest = rest.Split(size)
		out = append(out, head)
	}
	return out
}

// Site borrows the likelihood values of a single site across all
// populations.
type Site struct {
	vals  []float32
	shape []int
}

// NewSite returns a site over vals with the given per-population
// shape. The length of vals must equal the total site width.
func NewSite(vals []float32, shape []int) (Site, error) {
	if len(vals) != ints.Sum(shape) {
		return Site{}, fmt.Errorf("saf: %d values do not fit site shape %v", len(vals), shape)
	}
	return Site{vals: vals, shape: slices.Clone(shape)}, nil
}

// Shape returns the per-population widths.
// The returned slice must not be modified.
func (s Site) Shape() []int { return s.shape }

// Values returns the underlying width-slice of the site.
func (s Site) Values() []float32 { return s.vals }

// Split stores the N per-population sub-slices of the site in dst,
// replacing any previous contents while reusing its storage, and
// returns it. The sub-slices span the underlying buffer
// consecutively with lengths s0, ..., s{N-1}.
func (s Site) Split(dst [][]float32) [][]float32 {
	dst = dst[:0]
	off := 0
	for _, w := range s.shape {
		dst = append(dst, s.vals[off:off+w])
		off += w
	}
	return dst
}
