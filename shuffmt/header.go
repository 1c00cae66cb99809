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

// Package shuffmt reads and writes the pseudo-shuffled SAF format.
//
// The format does not give a true random shuffle of the sites in the
// input SAF file(s), but moves them around enough to break blocks of
// linkage disequilibrium, in constant memory. A file of the exact
// final size is pre-allocated and split into B blocks; consecutive
// input sites are written round-robin across the blocks, so that a
// sequential read interleaves sites from far-apart input regions.
//
// The on-disk layout is a fixed-size header followed by the site
// data. All multi-byte integers are little-endian:
//
//	8 bytes  magic number "safvshuf"
//	8 bytes  site count (u64)
//	1 byte   shape length (u8)
//	4 bytes  per shape entry (u32)
//	2 bytes  block count (u16)
//
// Each site occupies width*4 bytes of little-endian float32 values in
// population-major order, where width is the sum of the shape.
package shuffmt

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"golang.org/x/exp/slices"

	"github.com/SnellerInc/winsfs/ints"
)

// Magic is the magic number written as the first 8 bytes of a
// pseudo-shuffled SAF file.
var Magic = [8]byte{'s', 'a', 'f', 'v', 's', 'h', 'u', 'f'}

// Header describes the size and layout of a pseudo-shuffled SAF file.
type Header struct {
	sites  int
	shape  []int
	blocks int
}

// NewHeader returns a header for a file of the given site count,
// per-population shape, and block count. The block count must be at
// least one and no greater than the number of sites (unless the file
// is empty), and must fit in 16 bits.
func NewHeader(sites int, shape []int, blocks int) (*Header, error) {
	if blocks < 1 {
		return nil, fmt.Errorf("shuffmt: block count %d is not positive", blocks)
	}
	if blocks > sites && sites > 0 {
		return nil, fmt.Errorf("shuffmt: block count %d exceeds site count %d", blocks, sites)
	}
	if blocks > math.MaxUint16 {
		return nil, fmt.Errorf("shuffmt: block count %d exceeds %d", blocks, math.MaxUint16)
	}
	if len(shape) == 0 || len(shape) > math.MaxUint8 {
		return nil, fmt.Errorf("shuffmt: shape length %d not in 1..%d", len(shape), math.MaxUint8)
	}
	for _, s := range shape {
		if s <= 0 || uint64(s) > math.MaxUint32 {
			return nil, fmt.Errorf("shuffmt: bad shape entry in %v", shape)
		}
	}
	return &Header{sites: sites, shape: slices.Clone(shape), blocks: blocks}, nil
}

// Sites returns the number of sites in the file.
func (h *Header) Sites() int { return h.sites }

// Shape returns the per-population widths of each site.
// The returned slice must not be modified.
func (h *Header) Shape() []int { return h.shape }

// Blocks returns the number of blocks used for shuffling.
func (h *Header) Blocks() int { return h.blocks }

// Width returns the total number of values per site.
func (h *Header) Width() int { return ints.Sum(h.shape) }

// Size returns the byte length of the header as written to a file.
func (h *Header) Size() int64 {
	return int64(8 + 8 + 1 + 4*len(h.shape) + 2)
}

// DataSize returns the byte length of the site data following the
// header.
func (h *Header) DataSize() int64 {
	return int64(h.sites) * int64(h.Width()) * 4
}

// FileSize returns the byte length of the entire file.
func (h *Header) FileSize() int64 {
	return h.Size() + h.DataSize()
}

// BlockSites returns the number of sites in each block: the first
// sites%blocks blocks hold one site more than the rest.
func (h *Header) BlockSites() []int {
	div, rem := h.sites/h.blocks, h.sites%h.blocks
	out := make([]int, h.blocks)
	for i := range out {
		out[i] = div
		if i < rem {
			out[i]++
		}
	}
	return out
}

// BlockOffsets returns the starting byte offset of each block. The
// first block begins immediately after the header; later offsets are
// prefix sums of the preceding block byte sizes.
func (h *Header) BlockOffsets() []int64 {
	width := int64(h.Width())
	out := make([]int64, h.blocks)
	off := h.Size()
	for i, sites := range h.BlockSites() {
		out[i] = off
		off += int64(sites) * width * 4
	}
	return out
}

// Write writes the header, including the magic number, to w.
func (h *Header) Write(w io.Writer) error {
	buf := make([]byte, h.Size())
	copy(buf, Magic[:])
	binary.LittleEndian.PutUint64(buf[8:], uint64(h.sites))
	buf[16] = uint8(len(h.shape))
	off := 17
	for _, s := range h.shape {
		binary.LittleEndian.PutUint32(buf[off:], uint32(s))
		off += 4
	}
	binary.LittleEndian.PutUint16(buf[off:], uint16(h.blocks))
	_, err := w.Write(buf)
	return err
}

// ReadHeader reads a header, including the magic number, from r.
func ReadHeader(r io.Reader) (*Header, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, fmt.Errorf("invalid or unsupported SAF magic number (found %q, expected %q)", magic[:], Magic[:])
	}
	var fixed [9]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return nil, err
	}
	sites := binary.LittleEndian.Uint64(fixed[:8])
	shapeLen := int(fixed[8])
	shapeBuf := make([]byte, 4*shapeLen)
	if _, err := io.ReadFull(r, shapeBuf); err != nil {
		return nil, err
	}
	shape := make([]int, shapeLen)
	for i := range shape {
		shape[i] = int(binary.LittleEndian.Uint32(shapeBuf[4*i:]))
	}
	var blocksBuf [2]byte
	if _, err := io.ReadFull(r, blocksBuf[:]); err != nil {
		return nil, err
	}
	blocks := int(binary.LittleEndian.Uint16(blocksBuf[:]))
	return NewHeader(int(sites), shape, blocks)
}
