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

package angsd

import (
	"fmt"
	"math"
)

// Intersect reads sitewise across N SAF files, yielding only the
// sites present in all of them. Sites are matched on (contig,
// position), where the contig is its rank in each input's own index
// rather than its name, so matching is only correct when all inputs
// list the same contigs in the same order.
//
// Intersect implements the rewindable site source contract used by
// the streaming estimators: ReadSite fills a single contiguous
// width-buffer with the per-population likelihood vectors in
// population order, exponentiated into linear space.
type Intersect struct {
	readers []*Reader
	records []SiteRecord
}

// NewIntersect returns an intersection over the given readers.
func NewIntersect(readers []*Reader) (*Intersect, error) {
	if len(readers) == 0 {
		return nil, fmt.Errorf("angsd: intersection of no readers")
	}
	return &Intersect{
		readers: readers,
		records: make([]SiteRecord, len(readers)),
	}, nil
}

// Readers returns the underlying readers.
func (in *Intersect) Readers() []*Reader { return in.readers }

// Shape returns the per-population widths, i.e. alleles+1 for each
// input in order.
func (in *Intersect) Shape() []int {
	shape := make([]int, len(in.readers))
	for i, r := range in.readers {
		shape[i] = r.Width()
	}
	return shape
}

// Width returns the summed width of all inputs.
func (in *Intersect) Width() int {
	width := 0
	for _, r := range in.readers {
		width += r.Width()
	}
	return width
}

// next advances the readers until all current records agree on
// (contig, position), reporting false when any input is exhausted.
func (in *Intersect) next() (bool, error) {
	for i := range in.readers {
		ok, err := in.readers[i].Read(&in.records[i])
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	for {
		max, aligned := in.records[0], true
		for i := 1; i < len(in.records); i++ {
			if recordLess(max, in.records[i]) {
				max = in.records[i]
			}
		}
		for i := range in.records {
			if recordLess(in.records[i], max) {
				aligned = false
				ok, err := in.readers[i].Read(&in.records[i])
				if err != nil {
					return false, err
				}
				if !ok {
					return false, nil
				}
			}
		}
		if aligned {
			return true, nil
		}
	}
}

func recordLess(a, b SiteRecord) bool {
	if a.Contig != b.Contig {
		return a.Contig < b.Contig
	}
	return a.Position < b.Position
}

// ReadSiteLog fills buf with the next intersecting site's
// log-likelihood values in population order and reports whether a
// site was read. The length of buf must equal the summed width.
func (in *Intersect) ReadSiteLog(buf []float32) (bool, error) {
	if len(buf) != in.Width() {
		return false, fmt.Errorf("angsd: buffer of %d values does not fit shape %v", len(buf), in.Shape())
	}
	ok, err := in.next()
	if err != nil || !ok {
		return false, err
	}
	off := 0
	for i := range in.records {
		for _, v := range in.records[i].Values {
			buf[off] = float32(v)
			off++
		}
	}
	return true, nil
}

// ReadSite is ReadSiteLog with the values exponentiated into linear
// space.
func (in *Intersect) ReadSite(buf []float32) (bool, error) {
	ok, err := in.ReadSiteLog(buf)
	if err != nil || !ok {
		return false, err
	}
	for i, v := range buf {
		buf[i] = float32(math.Exp(float64(v)))
	}
	return true, nil
}

// Rewind repositions every underlying reader at its first site.
func (in *Intersect) Rewind() error {
	for _, r := range in.readers {
		if err := r.Rewind(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all underlying readers.
func (in *Intersect) Close() error {
	var first error
	for _, r := range in.readers {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
