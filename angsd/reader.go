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
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// Reader iterates sitewise over one SAF file.
type Reader struct {
	index *Index

	posFile *os.File
	valFile *os.File
	pos     *gzip.Reader
	val     *gzip.Reader

	contig    int // index into index.Records
	contigPos int // sites read within the current contig
	scratch   []byte
}

// SiteRecord is one site of a SAF file: its contig (as the rank of
// the contig in the index), position, and the full vector of
// alleles+1 natural log-likelihoods. For banded inputs, entries
// outside the stored band are -Inf.
type SiteRecord struct {
	Contig   int
	Position int64
	Values   []float64
}

// Open opens the SAF file identified by any of its member paths.
func Open(memberPath string) (*Reader, error) {
	prefix := MemberPrefix(memberPath)
	idxFile, err := os.Open(prefix + ".saf.idx")
	if err != nil {
		return nil, err
	}
	index, err := ReadIndex(idxFile)
	idxFile.Close()
	if err != nil {
		return nil, fmt.Errorf("reading %s.saf.idx: %w", prefix, err)
	}

	r := &Reader{index: index}
	if r.posFile, err = os.Open(prefix + ".saf.pos.gz"); err != nil {
		return nil, err
	}
	if r.valFile, err = os.Open(prefix + ".saf.gz"); err != nil {
		r.posFile.Close()
		return nil, err
	}
	if err := r.reset(); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) reset() error {
	var err error
	if r.pos == nil {
		r.pos, err = gzip.NewReader(r.posFile)
	} else {
		err = r.pos.Reset(r.posFile)
	}
	if err != nil {
		return err
	}
	r.pos.Multistream(true)
	if r.val == nil {
		r.val, err = gzip.NewReader(r.valFile)
	} else {
		err = r.val.Reset(r.valFile)
	}
	if err != nil {
		return err
	}
	r.val.Multistream(true)
	r.contig, r.contigPos = 0, 0
	return nil
}

// Index returns the parsed index of the file.
func (r *Reader) Index() *Index { return r.index }

// Width returns the number of likelihood values per site.
func (r *Reader) Width() int { return r.index.Alleles + 1 }

// advance moves the contig cursor past exhausted contigs and reports
// whether any site remains.
func (r *Reader) advance() bool {
	for r.contig < len(r.index.Records) && r.contigPos >= r.index.Records[r.contig].Sites {
		r.contig++
		r.contigPos = 0
	}
	return r.contig < len(r.index.Records)
}

// Read reads the next site record into rec, reusing rec.Values when
// it has sufficient capacity, and reports whether a site was read.
func (r *Reader) Read(rec *SiteRecord) (bool, error) {
	if !r.advance() {
		return false, nil
	}
	var posBuf [8]byte
	if _, err := io.ReadFull(r.pos, posBuf[:]); err != nil {
		return false, eofIsUnexpected(err)
	}
	rec.Contig = r.contig
	rec.Position = int64(binary.LittleEndian.Uint64(posBuf[:]))

	width := r.Width()
	if cap(rec.Values) < width {
		rec.Values = make([]float64, width)
	}
	rec.Values = rec.Values[:width]

	switch r.index.Version {
	case V3:
		if err := r.readValues(rec.Values); err != nil {
			return false, err
		}
	case V4:
		var band [8]byte
		if _, err := io.ReadFull(r.val, band[:]); err != nil {
			return false, eofIsUnexpected(err)
		}
		start := int(int32(binary.LittleEndian.Uint32(band[:4])))
		length := int(int32(binary.LittleEndian.Uint32(band[4:])))
		if start < 0 || length < 0 || start+length > width {
			return false, fmt.Errorf("band [%d, %d) out of range for %d alleles", start, start+length, r.index.Alleles)
		}
		for i := range rec.Values {
			rec.Values[i] = negInf
		}
		if err := r.readValues(rec.Values[start : start+length]); err != nil {
			return false, err
		}
	}
	r.contigPos++
	return true, nil
}

func (r *Reader) readValues(dst []float64) error {
	need := 8 * len(dst)
	if cap(r.scratch) < need {
		r.scratch = make([]byte, need)
	}
	buf := r.scratch[:need]
	if _, err := io.ReadFull(r.val, buf); err != nil {
		return eofIsUnexpected(err)
	}
	for i := range dst {
		dst[i] = float64frombytes(buf[8*i:])
	}
	return nil
}

// Rewind positions the reader back at the first site by seeking the
// data members to their start and resetting the decompressors.
func (r *Reader) Rewind() error {
	if _, err := r.posFile.Seek(0, 0); err != nil {
		return err
	}
	if _, err := r.valFile.Seek(0, 0); err != nil {
		return err
	}
	return r.reset()
}

// Close closes the underlying member files.
func (r *Reader) Close() error {
	err1 := r.posFile.Close()
	err2 := r.valFile.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
