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

package shuffmt

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// Writer writes sites round-robin across the blocks of a
// pseudo-shuffled SAF file.
//
// A Writer must receive exactly the number of sites declared in its
// header: the file is pre-allocated at its final size and the blocks
// are written out of order, so an underfilled writer leaves silent
// zero-gaps in the data. Finish checks this invariant; a Writer that
// is discarded without a successful Finish (outside of unwinding from
// an earlier error via Abort) is a programming error.
type Writer struct {
	header  *Header
	files   []*os.File
	writers []*bufio.Writer
	scratch []byte
	current int
	done    bool
}

// Create creates path, pre-allocates it at the full size implied by
// header, writes the header, and positions one block writer at each
// block's starting offset. An existing file at path is truncated.
func Create(path string, header *Header) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := preallocate(f, header.FileSize()); err != nil {
		f.Close()
		return nil, fmt.Errorf("pre-allocating %s: %w", path, err)
	}
	if err := header.Write(f); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	offsets := header.BlockOffsets()
	files := make([]*os.File, 0, len(offsets))
	writers := make([]*bufio.Writer, 0, len(offsets))
	for _, off := range offsets {
		b, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err == nil {
			_, err = b.Seek(off, 0)
		}
		if err != nil {
			for _, prev := range files {
				prev.Close()
			}
			return nil, err
		}
		files = append(files, b)
		writers = append(writers, bufio.NewWriter(b))
	}
	return &Writer{
		header:  header,
		files:   files,
		writers: writers,
		scratch: make([]byte, 4*header.Width()),
		done:    header.Sites() == 0,
	}, nil
}

// Header returns the header the writer was created with.
func (w *Writer) Header() *Header { return w.header }

func (w *Writer) next() (*bufio.Writer, error) {
	if w.current >= w.header.Sites() {
		return nil, fmt.Errorf("shuffmt: writing more than the declared %d sites", w.header.Sites())
	}
	bw := w.writers[w.current%w.header.Blocks()]
	w.current++
	if w.current == w.header.Sites() {
		w.done = true
	}
	return bw, nil
}

func put(dst []byte, vals []float32) []byte {
	for _, v := range vals {
		binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
		dst = dst[4:]
	}
	return dst
}

// WriteSite writes the next site. The number of values must equal
// the total width declared in the header.
func (w *Writer) WriteSite(vals []float32) error {
	if len(vals) != w.header.Width() {
		return fmt.Errorf("shuffmt: site of %d values does not fit header shape %v", len(vals), w.header.Shape())
	}
	bw, err := w.next()
	if err != nil {
		return err
	}
	put(w.scratch, vals)
	_, err = bw.Write(w.scratch)
	return err
}

// WriteSiteSlices writes the next site from per-population slices,
// concatenating them in population order. The slice lengths must
// match the header shape entrywise.
func (w *Writer) WriteSiteSlices(pops [][]float32) error {
	shape := w.header.Shape()
	if len(pops) != len(shape) {
		return fmt.Errorf("shuffmt: %d population slices do not fit header shape %v", len(pops), shape)
	}
	for i, pop := range pops {
		if len(pop) != shape[i] {
			return fmt.Errorf("shuffmt: population slice of %d values does not fit header shape %v", len(pop), shape)
		}
	}
	bw, err := w.next()
	if err != nil {
		return err
	}
	dst := w.scratch
	for _, pop := range pops {
		dst = put(dst, pop)
	}
	_, err = bw.Write(w.scratch)
	return err
}

// Finish flushes and closes all block writers. It is an error to
// finish before exactly the declared number of sites has been
// written.
func (w *Writer) Finish() error {
	if !w.done {
		w.Abort()
		return fmt.Errorf("shuffmt: closing writer after %d of %d declared sites", w.current, w.header.Sites())
	}
	var first error
	for i := range w.writers {
		if err := w.writers[i].Flush(); err != nil && first == nil {
			first = err
		}
		if err := w.files[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	w.files, w.writers = nil, nil
	return first
}

// Abort closes all block writers without the exhaustion check, for
// unwinding after an earlier error. The file contents are
// unspecified afterwards.
func (w *Writer) Abort() {
	for _, f := range w.files {
		f.Close()
	}
	w.files, w.writers = nil, nil
}
