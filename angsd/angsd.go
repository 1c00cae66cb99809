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

// Package angsd reads SAF files in the formats written by ANGSD.
//
// A SAF "file" is a set of three member files sharing a prefix: an
// index (.saf.idx) describing the contigs, a position file
// (.saf.pos.gz) and a value file (.saf.gz). The two data members are
// BGZF-compressed, i.e. concatenated gzip members, which the gzip
// reader consumes natively in multistream mode. Values are natural
// log-likelihoods.
//
// Two format versions are supported, distinguished by the index
// magic number: version 3 stores the full vector of alleles+1 values
// per site, version 4 stores only the contiguous band of
// non-negligible values around the mode, and readers rehydrate the
// missing entries to -Inf.
package angsd

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
)

// Magic numbers identifying the index member of each supported
// format version.
var (
	MagicV3 = [8]byte{'s', 'a', 'f', 'v', '3', 0, 0, 0}
	MagicV4 = [8]byte{'s', 'a', 'f', 'v', '4', 0, 0, 0}
)

// Version is a SAF format version.
type Version int

const (
	// V3 is the full format: alleles+1 values per site.
	V3 Version = 3
	// V4 is the banded format: a start index, a band length, and
	// that many values per site.
	V4 Version = 4
)

// DetectVersion matches the first 8 bytes of an index member against
// the known magic numbers.
func DetectVersion(magic []byte) (Version, error) {
	if len(magic) >= 8 {
		switch {
		case string(magic[:8]) == string(MagicV3[:]):
			return V3, nil
		case string(magic[:8]) == string(MagicV4[:]):
			return V4, nil
		}
	}
	return 0, fmt.Errorf("failed to detect SAF file version from magic number %02x", magic)
}

// Record describes one contig in a SAF index.
type Record struct {
	// Name is the contig name.
	Name string
	// Sites is the number of sites stored for the contig.
	Sites int
	// Values is the total number of stored values across the
	// contig's sites. For the full format this is always
	// Sites*(alleles+1); the banded format stores it explicitly.
	Values int
	// PositionBytes and ValueBytes are the compressed byte sizes
	// of the contig's chunks in the two data members.
	PositionBytes int64
	ValueBytes    int64
}

// Index is the parsed index member of a SAF file.
type Index struct {
	// Version is the detected format version.
	Version Version
	// Alleles is the number of alleles, i.e. one less than the
	// number of likelihood values per site in the full format.
	Alleles int
	// Records lists the contigs in file order.
	Records []Record
}

// TotalSites returns the number of sites summed over all contigs.
func (ix *Index) TotalSites() int {
	total := 0
	for i := range ix.Records {
		total += ix.Records[i].Sites
	}
	return total
}

// ReadIndex parses a SAF index member.
func ReadIndex(r io.Reader) (*Index, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}
	version, err := DetectVersion(magic[:])
	if err != nil {
		return nil, err
	}
	alleles, err := readI64(r)
	if err != nil {
		return nil, err
	}
	if alleles <= 0 {
		return nil, fmt.Errorf("non-positive allele count %d in SAF index", alleles)
	}
	ix := &Index{Version: version, Alleles: int(alleles)}
	for {
		nameLen, err := readI64(r)
		if err == io.EOF {
			return ix, nil
		}
		if err != nil {
			return nil, err
		}
		if nameLen <= 0 || nameLen > 1<<20 {
			return nil, fmt.Errorf("bad contig name length %d in SAF index", nameLen)
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, eofIsUnexpected(err)
		}
		var rec Record
		rec.Name = string(name)
		sites, err := readI64(r)
		if err != nil {
			return nil, eofIsUnexpected(err)
		}
		rec.Sites = int(sites)
		if version == V4 {
			values, err := readI64(r)
			if err != nil {
				return nil, eofIsUnexpected(err)
			}
			rec.Values = int(values)
		} else {
			rec.Values = rec.Sites * (ix.Alleles + 1)
		}
		if rec.PositionBytes, err = readI64(r); err != nil {
			return nil, eofIsUnexpected(err)
		}
		if rec.ValueBytes, err = readI64(r); err != nil {
			return nil, eofIsUnexpected(err)
		}
		ix.Records = append(ix.Records, rec)
	}
}

func readI64(r io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

func eofIsUnexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// MemberPrefix strips any of the member suffixes from path, so that
// any member path identifies the SAF file.
func MemberPrefix(path string) string {
	for _, suffix := range []string{".saf.idx", ".saf.pos.gz", ".saf.gz"} {
		if strings.HasSuffix(path, suffix) {
			return strings.TrimSuffix(path, suffix)
		}
	}
	return path
}

// negInf is the log-space value rehydrated into the entries a banded
// site does not store.
var negInf = math.Inf(-1)

func float64frombytes(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}
