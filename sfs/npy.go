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

package sfs

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/SnellerInc/winsfs/ints"
)

// Support for the subset of the NPY format (version 1.0) needed to
// exchange spectra with NumPy: a C-order array of little-endian
// float64 values.

var npyMagic = [6]byte{0x93, 'N', 'U', 'M', 'P', 'Y'}

func npyShape(shape []int) string {
	if len(shape) == 1 {
		return fmt.Sprintf("(%d,)", shape[0])
	}
	parts := make([]string, len(shape))
	for i, s := range shape {
		parts[i] = strconv.Itoa(s)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// WriteNpy writes s as an NPY version 1.0 file holding a C-order
// float64 array.
func (s *SFS) WriteNpy(w io.Writer) error {
	dict := fmt.Sprintf("{'descr': '<f8', 'fortran_order': False, 'shape': %s, }", npyShape(s.shape))
	// the header is padded with spaces so that the data following
	// the terminating newline is 64-byte aligned
	unpadded := len(npyMagic) + 2 + 2 + len(dict) + 1
	pad := (64 - unpadded%64) % 64
	header := dict + strings.Repeat(" ", pad) + "\n"

	if _, err := w.Write(npyMagic[:]); err != nil {
		return err
	}
	if _, err := w.Write([]byte{1, 0}); err != nil {
		return err
	}
	var lenbuf [2]byte
	binary.LittleEndian.PutUint16(lenbuf[:], uint16(len(header)))
	if _, err := w.Write(lenbuf[:]); err != nil {
		return err
	}
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	var buf [8]byte
	for _, v := range s.vals {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	return nil
}

// ReadNpy reads an NPY file holding a C-order float64 array.
func ReadNpy(r io.Reader) (*SFS, error) {
	var magic [6]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}
	if magic != npyMagic {
		return nil, fmt.Errorf("invalid npy magic number (found %02x)", magic)
	}
	var version [2]byte
	if _, err := io.ReadFull(r, version[:]); err != nil {
		return nil, err
	}
	var headerLen int
	switch version[0] {
	case 1:
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		headerLen = int(binary.LittleEndian.Uint16(buf[:]))
	case 2:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		headerLen = int(binary.LittleEndian.Uint32(buf[:]))
	default:
		return nil, fmt.Errorf("unsupported npy version %d.%d", version[0], version[1])
	}
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	shape, err := parseNpyDict(string(header))
	if err != nil {
		return nil, err
	}
	vals := make([]float64, ints.Prod(shape))
	buf := make([]byte, 8*len(vals))
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	for i := range vals {
		vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return New(vals, shape)
}

// parseNpyDict extracts the shape from an NPY header dict, rejecting
// type descriptors and orderings we do not handle.
func parseNpyDict(dict string) ([]int, error) {
	descr, err := npyDictValue(dict, "descr")
	if err != nil {
		return nil, err
	}
	if d := strings.Trim(descr, "'\""); d != "<f8" {
		return nil, fmt.Errorf("unsupported npy type descriptor %s (only little-endian float64 supported)", descr)
	}
	order, err := npyDictValue(dict, "fortran_order")
	if err != nil {
		return nil, err
	}
	if order != "False" {
		return nil, fmt.Errorf("fortran order not supported when reading npy")
	}
	shapeStr, err := npyDictValue(dict, "shape")
	if err != nil {
		return nil, err
	}
	shapeStr = strings.TrimPrefix(shapeStr, "(")
	shapeStr = strings.TrimSuffix(shapeStr, ")")
	var shape []int
	for _, p := range strings.Split(shapeStr, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("bad npy shape entry %q", p)
		}
		shape = append(shape, v)
	}
	if len(shape) == 0 {
		return nil, fmt.Errorf("empty npy shape")
	}
	return shape, nil
}

// npyDictValue returns the value for a key in the Python-literal
// header dict. Values are either quoted strings, bare words, or
// parenthesised tuples; full Python parsing is not required for
// files NumPy itself writes.
func npyDictValue(dict, key string) (string, error) {
	quoted := "'" + key + "':"
	i := strings.Index(dict, quoted)
	if i < 0 {
		return "", fmt.Errorf("key %q not found in npy header dict", key)
	}
	rest := strings.TrimLeft(dict[i+len(quoted):], " ")
	switch {
	case strings.HasPrefix(rest, "("):
		j := strings.IndexByte(rest, ')')
		if j < 0 {
			return "", fmt.Errorf("unterminated tuple in npy header dict")
		}
		return rest[:j+1], nil
	case strings.HasPrefix(rest, "'"):
		j := strings.IndexByte(rest[1:], '\'')
		if j < 0 {
			return "", fmt.Errorf("unterminated string in npy header dict")
		}
		return rest[:j+2], nil
	default:
		j := strings.IndexAny(rest, ",}")
		if j < 0 {
			j = len(rest)
		}
		return strings.TrimSpace(rest[:j]), nil
	}
}
