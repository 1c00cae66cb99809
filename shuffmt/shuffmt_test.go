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
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
)

var headerBytes = []byte{
	0x73, 0x61, 0x66, 0x76, 0x73, 0x68, 0x75, 0x66, // magic number
	0x69, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // 105 sites (u64)
	0x02,                   // shape length (u8)
	0x07, 0x00, 0x00, 0x00, // shape[0] = 7 (u32)
	0x05, 0x00, 0x00, 0x00, // shape[1] = 5 (u32)
	0x0a, 0x00, // 10 blocks (u16)
}

func mkHeader(t *testing.T, sites int, shape []int, blocks int) *Header {
	t.Helper()
	h, err := NewHeader(sites, shape, blocks)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestHeaderWrite(t *testing.T) {
	h := mkHeader(t, 105, []int{7, 5}, 10)
	var buf bytes.Buffer
	if err := h.Write(&buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), headerBytes) {
		t.Errorf("header bytes:\ngot  %02x\nwant %02x", buf.Bytes(), headerBytes)
	}
}

func TestHeaderRead(t *testing.T) {
	h, err := ReadHeader(bytes.NewReader(headerBytes))
	if err != nil {
		t.Fatal(err)
	}
	if h.Sites() != 105 || h.Blocks() != 10 {
		t.Errorf("got %d sites, %d blocks", h.Sites(), h.Blocks())
	}
	if len(h.Shape()) != 2 || h.Shape()[0] != 7 || h.Shape()[1] != 5 {
		t.Errorf("shape: got %v, want [7 5]", h.Shape())
	}
	if h.Width() != 12 {
		t.Errorf("width: got %d, want 12", h.Width())
	}
}

func TestHeaderReadBadMagic(t *testing.T) {
	corrupt := append([]byte(nil), headerBytes...)
	corrupt[0] = 0
	if _, err := ReadHeader(bytes.NewReader(corrupt)); err == nil {
		t.Error("expected magic number error")
	}
}

func TestHeaderInvariants(t *testing.T) {
	if _, err := NewHeader(10, []int{5}, 0); err == nil {
		t.Error("expected error for zero blocks")
	}
	if _, err := NewHeader(10, []int{5}, 11); err == nil {
		t.Error("expected error for more blocks than sites")
	}
	if _, err := NewHeader(10, nil, 2); err == nil {
		t.Error("expected error for empty shape")
	}
}

func TestBlockLayout(t *testing.T) {
	h := mkHeader(t, 9, []int{1, 4}, 4)
	sites := h.BlockSites()
	wantSites := []int{3, 2, 2, 2}
	for i := range wantSites {
		if sites[i] != wantSites[i] {
			t.Fatalf("block sites: got %v, want %v", sites, wantSites)
		}
	}
	offsets := h.BlockOffsets()
	// width 5, so 20 bytes per site after the 27-byte header
	wantOffsets := []int64{27, 27 + 3*20, 27 + 5*20, 27 + 7*20}
	for i := range wantOffsets {
		if offsets[i] != wantOffsets[i] {
			t.Fatalf("block offsets: got %v, want %v", offsets, wantOffsets)
		}
	}
	if h.FileSize() != 27+9*20 {
		t.Errorf("file size: got %d, want %d", h.FileSize(), 27+9*20)
	}
}

// writeConstantSites writes the given number of sites, the i-th
// filled with the constant value i.
func writeConstantSites(t *testing.T, w *Writer, sites int) {
	t.Helper()
	buf := make([]float32, w.Header().Width())
	for i := 0; i < sites; i++ {
		for j := range buf {
			buf[j] = float32(i)
		}
		if err := w.WriteSite(buf); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.saf.shuf")
	header := mkHeader(t, 9, []int{1, 4}, 4)
	w, err := Create(path, header)
	if err != nil {
		t.Fatal(err)
	}
	writeConstantSites(t, w, 9)
	if err := w.Finish(); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != header.FileSize() {
		t.Errorf("file size: got %d, want %d", info.Size(), header.FileSize())
	}

	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	expectedOrder := []int{0, 4, 8, 1, 5, 2, 6, 3, 7}
	buf := make([]float32, header.Width())
	for _, want := range expectedOrder {
		ok, err := r.ReadSite(buf)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("reader exhausted before site %d", want)
		}
		// values are exponentiated on read
		exp := float32(math.Exp(float64(want)))
		for j := range buf {
			if buf[j] != exp {
				t.Fatalf("got %v, want site %d (exp %v)", buf, want, exp)
			}
		}
	}
	if ok, err := r.ReadSite(buf); err != nil || ok {
		t.Errorf("expected done after 9 sites, got ok=%v err=%v", ok, err)
	}
}

func TestRewind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.saf.shuf")
	header := mkHeader(t, 6, []int{2}, 3)
	w, err := Create(path, header)
	if err != nil {
		t.Fatal(err)
	}
	writeConstantSites(t, w, 6)
	if err := w.Finish(); err != nil {
		t.Fatal(err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	buf := make([]float32, 2)
	var first float32
	for i := 0; i < 6; i++ {
		if _, err := r.ReadSite(buf); err != nil {
			t.Fatal(err)
		}
		if i == 0 {
			first = buf[0]
		}
	}
	if err := r.Rewind(); err != nil {
		t.Fatal(err)
	}
	ok, err := r.ReadSite(buf)
	if err != nil || !ok {
		t.Fatalf("read after rewind: ok=%v err=%v", ok, err)
	}
	if buf[0] != first {
		t.Errorf("first site after rewind: got %v, want %v", buf[0], first)
	}
}

func TestWriteTooManySites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.saf.shuf")
	header := mkHeader(t, 2, []int{1, 2}, 2)
	w, err := Create(path, header)
	if err != nil {
		t.Fatal(err)
	}
	vals := make([]float32, 3)
	if err := w.WriteSite(vals); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteSite(vals); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteSite(vals); err == nil {
		t.Error("expected error writing a third site")
	}
	if err := w.Finish(); err != nil {
		t.Fatal(err)
	}
}

func TestWriteWrongWidth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.saf.shuf")
	w, err := Create(path, mkHeader(t, 2, []int{1, 2}, 2))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Abort()
	if err := w.WriteSite(make([]float32, 4)); err == nil {
		t.Error("expected error for wrong site width")
	}
	if err := w.WriteSiteSlices([][]float32{{0}, {0, 0, 0}}); err == nil {
		t.Error("expected error for wrong population slice length")
	}
}

func TestFinishUnderfilled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.saf.shuf")
	w, err := Create(path, mkHeader(t, 3, []int{2}, 2))
	if err != nil {
		t.Fatal(err)
	}
	writeConstantSites(t, w, 2)
	if err := w.Finish(); err == nil {
		t.Error("expected error finishing an underfilled writer")
	}
}

func TestDisjointWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.saf.shuf")
	header := mkHeader(t, 4, []int{1, 2}, 2)
	w, err := Create(path, header)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		v := float32(i)
		if err := w.WriteSiteSlices([][]float32{{v}, {v, v}}); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Finish(); err != nil {
		t.Fatal(err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	// 4 sites in 2 blocks interleave as 0, 2, 1, 3
	buf := make([]float32, 3)
	for _, want := range []int{0, 2, 1, 3} {
		if _, err := r.ReadSite(buf); err != nil {
			t.Fatal(err)
		}
		exp := float32(math.Exp(float64(want)))
		if buf[0] != exp || buf[2] != exp {
			t.Fatalf("got %v, want site %d", buf, want)
		}
	}
}
