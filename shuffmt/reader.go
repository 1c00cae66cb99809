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
	"io"
	"math"
	"os"
)

// Reader reads sites sequentially from a pseudo-shuffled SAF file,
// i.e. in the interleaved order the writer produced. Values are
// exponentiated on read: the file stores natural logs, and the
// returned likelihoods are in linear space.
type Reader struct {
	f       *os.File
	br      *bufio.Reader
	header  *Header
	scratch []byte
	read    int
}

// Open opens a pseudo-shuffled SAF file and reads its header.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReaderSize(f, 1<<20)
	header, err := ReadHeader(br)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Reader{
		f:       f,
		br:      br,
		header:  header,
		scratch: make([]byte, 4*header.Width()),
	}, nil
}

// Header returns the file header.
func (r *Reader) Header() *Header { return r.header }

// Sites returns the declared number of sites.
func (r *Reader) Sites() int { return r.header.Sites() }

// Shape returns the per-population widths of each site.
func (r *Reader) Shape() []int { return r.header.Shape() }

// ReadSite fills buf with the next site's likelihood values in
// linear space and reports whether a site was read. Once the
// declared number of sites has been read, ReadSite reports false.
// The length of buf must equal the header width.
func (r *Reader) ReadSite(buf []float32) (bool, error) {
	if len(buf) != r.header.Width() {
		return false, fmt.Errorf("shuffmt: buffer of %d values does not fit header shape %v", len(buf), r.header.Shape())
	}
	if r.read >= r.header.Sites() {
		return false, nil
	}
	if _, err := io.ReadFull(r.br, r.scratch); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return false, err
	}
	for i := range buf {
		bits := binary.LittleEndian.Uint32(r.scratch[4*i:])
		buf[i] = float32(math.Exp(float64(math.Float32frombits(bits))))
	}
	r.read++
	return true, nil
}

// Rewind positions the reader at the first site, immediately after
// the header.
func (r *Reader) Rewind() error {
	if _, err := r.f.Seek(r.header.Size(), 0); err != nil {
		return err
	}
	r.br.Reset(r.f)
	r.read = 0
	return nil
}

// Close closes the underlying file.
func (r *Reader) Close() error { return r.f.Close() }

// IsShuffled reports whether the first 8 bytes of magic match the
// pseudo-shuffle magic number.
func IsShuffled(magic []byte) bool {
	return len(magic) >= 8 && string(magic[:8]) == string(Magic[:])
}
