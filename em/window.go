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

import (
	"github.com/SnellerInc/winsfs/saf"
	"github.com/SnellerInc/winsfs/sfs"
)

// Window is a ring buffer of the most recent K block posteriors.
type Window struct {
	items []*sfs.SFS
	next  int // index of the oldest entry, i.e. the next overwritten
}

// ZeroWindow returns a window of k zero spectra of the given shape.
func ZeroWindow(shape []int, k int) *Window {
	items := make([]*sfs.SFS, k)
	for i := range items {
		items[i] = sfs.Zeros(shape)
	}
	return &Window{items: items}
}

// InitialWindow returns a window holding k copies of initial.
func InitialWindow(initial *sfs.SFS, k int) *Window {
	items := make([]*sfs.SFS, k)
	for i := range items {
		items[i] = initial.Clone()
	}
	return &Window{items: items}
}

// Update pops the oldest entry of the window and pushes x.
func (w *Window) Update(x *sfs.SFS) {
	w.items[w.next] = x
	w.next = (w.next + 1) % len(w.items)
}

// Sum returns the elementwise sum of the window entries.
//
// The sum is recomputed across all K entries on every call; a moving
// add-new-subtract-oldest sum cancels catastrophically when block
// posteriors differ by orders of magnitude across bins.
func (w *Window) Sum() *sfs.SFS {
	sum := sfs.Zeros(w.items[0].Shape())
	for _, item := range w.items {
		sum.AddAssign(item)
	}
	return sum
}

// WindowEM is the window EM scheduler. It traverses its input
// block-by-block, accumulating each block's posterior into a sliding
// window whose normalised sum is the running estimate.
type WindowEM struct {
	// WindowSize is the number of block posteriors summed to form
	// the running estimate.
	WindowSize int
	// Blocks specifies how the input is partitioned into blocks.
	Blocks saf.Blocks
	// Initial optionally seeds the window with K copies of an
	// initial SFS (typically the starting estimate scaled by the
	// approximate block size) so that the estimate after the first
	// block is already well behaved. When nil, the window starts
	// from zeros.
	Initial *sfs.SFS
	// Parallel selects the parallel in-memory e-step for each
	// block.
	Parallel bool
	// Inspect, if set, is invoked after each EM step with the step
	// number (counting from one), the step status, and the current
	// normalised estimate.
	Inspect func(step int, status Status, estimate *sfs.SFS)

	window *Window
}

func (w *WindowEM) init(shape []int) *Window {
	if w.window == nil {
		if w.Initial != nil {
			w.window = InitialWindow(w.Initial, w.WindowSize)
		} else {
			w.window = ZeroWindow(shape, w.WindowSize)
		}
	}
	return w.window
}

// Step performs a single window EM step over v starting from the
// normalised SFS p. It returns the per-block log-likelihoods and the
// final window estimate scaled by the total number of sites, i.e. the
// expected counts for the whole input.
func (w *WindowEM) Step(p *sfs.SFS, v saf.View) (Status, *sfs.SFS) {
	window := w.init(p.Shape())
	blocks := v.Blocks(w.Blocks)
	status := make(Status, 0, len(blocks))
	sites := 0
	for _, block := range blocks {
		sites += block.Sites()
		var sum SumOf
		var posterior *sfs.SFS
		if w.Parallel {
			sum, posterior = ParEStep(p, block)
		} else {
			sum, posterior = EStep(p, block)
		}
		window.Update(posterior)
		p = window.Sum().Normalise()
		status = append(status, sum)
	}
	if sites == 0 {
		return status, p.Clone()
	}
	return status, p.Clone().Scale(float64(sites))
}

// StreamStep is Step over a streaming site source. The reader must be
// positioned at its first site, and its site count is used to
// materialise the block specification.
func (w *WindowEM) StreamStep(p *sfs.SFS, r StreamReader) (Status, *sfs.SFS, error) {
	window := w.init(p.Shape())
	sizes := w.Blocks.Sizes(r.Sites())
	status := make(Status, 0, len(sizes))
	sites := 0
	for _, size := range sizes {
		sites += size
		sum, posterior, err := streamBlockEStep(p, r, size)
		if err != nil {
			return nil, nil, err
		}
		window.Update(posterior)
		p = window.Sum().Normalise()
		status = append(status, sum)
	}
	if sites == 0 {
		return status, p.Clone(), nil
	}
	return status, p.Clone().Scale(float64(sites)), nil
}

// Run drives repeated in-memory EM steps from initial until rule
// stops, returning the status of the last step and the final
// normalised estimate.
func (w *WindowEM) Run(initial *sfs.SFS, v saf.View, rule StoppingRule) (Status, *sfs.SFS) {
	p := initial.Clone().Normalise()
	for step := 1; ; step++ {
		status, posterior := w.Step(p, v)
		p = posterior.Normalise()
		if w.Inspect != nil {
			w.Inspect(step, status, p)
		}
		if rule.Stop(status, p) {
			return status, p
		}
	}
}

// StreamReader extends SiteReader with the declared site count, which
// the scheduler needs to materialise blocks before reading.
type StreamReader interface {
	SiteReader
	Sites() int
}

// RunStream drives repeated streaming EM steps from initial until
// rule stops, rewinding the reader between epochs. Any I/O error
// aborts the loop.
func (w *WindowEM) RunStream(initial *sfs.SFS, r StreamReader, rule StoppingRule) (Status, *sfs.SFS, error) {
	p := initial.Clone().Normalise()
	for step := 1; ; step++ {
		status, posterior, err := w.StreamStep(p, r)
		if err != nil {
			return nil, nil, err
		}
		p = posterior.Normalise()
		if w.Inspect != nil {
			w.Inspect(step, status, p)
		}
		if rule.Stop(status, p) {
			return status, p, nil
		}
		if err := r.Rewind(); err != nil {
			return nil, nil, err
		}
	}
}
