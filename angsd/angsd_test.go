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
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// testContig describes one contig of a synthetic SAF file.
type testContig struct {
	name      string
	positions []int64
	// values holds one log-likelihood vector per position; for
	// banded files each vector additionally carries its band
	// start in bandStarts
	values     [][]float64
	bandStarts []int
}

// writeSAF writes synthetic SAF member files and returns a member
// path.
func writeSAF(t *testing.T, dir, name string, version Version, alleles int, contigs []testContig) string {
	t.Helper()
	prefix := filepath.Join(dir, name)

	var posBuf, valBuf []byte
	for _, c := range contigs {
		for i, pos := range c.positions {
			posBuf = appendU64(posBuf, uint64(pos))
			if version == V4 {
				valBuf = appendU32(valBuf, uint32(c.bandStarts[i]))
				valBuf = appendU32(valBuf, uint32(len(c.values[i])))
			}
			for _, v := range c.values[i] {
				valBuf = appendU64(valBuf, math.Float64bits(v))
			}
		}
	}
	writeGzip(t, prefix+".saf.pos.gz", posBuf)
	writeGzip(t, prefix+".saf.gz", valBuf)

	var idx []byte
	switch version {
	case V3:
		idx = append(idx, MagicV3[:]...)
	case V4:
		idx = append(idx, MagicV4[:]...)
	}
	idx = appendU64(idx, uint64(alleles))
	for _, c := range contigs {
		idx = appendU64(idx, uint64(len(c.name)))
		idx = append(idx, c.name...)
		idx = appendU64(idx, uint64(len(c.positions)))
		if version == V4 {
			values := 0
			for _, v := range c.values {
				values += len(v)
			}
			idx = appendU64(idx, uint64(values))
		}
		idx = appendU64(idx, uint64(8*len(c.positions)))
		idx = appendU64(idx, uint64(len(valBuf)))
	}
	if err := os.WriteFile(prefix+".saf.idx", idx, 0644); err != nil {
		t.Fatal(err)
	}
	return prefix + ".saf.idx"
}

func appendU64(b []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendU32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func writeGzip(t *testing.T, path string, data []byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := gzip.NewWriter(f)
	if _, err := zw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func fullSite(vals ...float64) []float64 { return vals }

func TestDetectVersion(t *testing.T) {
	if v, err := DetectVersion(MagicV3[:]); err != nil || v != V3 {
		t.Errorf("got %v, %v", v, err)
	}
	if v, err := DetectVersion(MagicV4[:]); err != nil || v != V4 {
		t.Errorf("got %v, %v", v, err)
	}
	if _, err := DetectVersion([]byte("safvshuf")); err == nil {
		t.Error("expected error for shuffle magic")
	}
}

func TestReadV3(t *testing.T) {
	dir := t.TempDir()
	contigs := []testContig{
		{
			name:      "chr1",
			positions: []int64{100, 200},
			values: [][]float64{
				fullSite(0, -1, -2),
				fullSite(-3, 0, -1),
			},
		},
		{
			name:      "chr2",
			positions: []int64{50},
			values:    [][]float64{fullSite(-1, -1, 0)},
		},
	}
	path := writeSAF(t, dir, "a", V3, 2, contigs)

	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if r.Index().TotalSites() != 3 {
		t.Fatalf("total sites: got %d, want 3", r.Index().TotalSites())
	}
	if r.Width() != 3 {
		t.Fatalf("width: got %d, want 3", r.Width())
	}

	var rec SiteRecord
	wantPos := []int64{100, 200, 50}
	wantContig := []int{0, 0, 1}
	for i := 0; ; i++ {
		ok, err := r.Read(&rec)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			if i != 3 {
				t.Fatalf("read %d sites, want 3", i)
			}
			break
		}
		if rec.Position != wantPos[i] || rec.Contig != wantContig[i] {
			t.Errorf("site %d: got contig %d pos %d", i, rec.Contig, rec.Position)
		}
	}

	if err := r.Rewind(); err != nil {
		t.Fatal(err)
	}
	ok, err := r.Read(&rec)
	if err != nil || !ok {
		t.Fatalf("read after rewind: ok=%v err=%v", ok, err)
	}
	if rec.Position != 100 || rec.Values[0] != 0 || rec.Values[2] != -2 {
		t.Errorf("first site after rewind: %+v", rec)
	}
}

func TestReadV4Banded(t *testing.T) {
	dir := t.TempDir()
	contigs := []testContig{
		{
			name:       "chr1",
			positions:  []int64{10},
			values:     [][]float64{{0, -1}},
			bandStarts: []int{1},
		},
	}
	path := writeSAF(t, dir, "banded", V4, 3, contigs)

	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	var rec SiteRecord
	ok, err := r.Read(&rec)
	if err != nil || !ok {
		t.Fatalf("read: ok=%v err=%v", ok, err)
	}
	// entries outside the band rehydrate to -Inf
	want := []float64{math.Inf(-1), 0, -1, math.Inf(-1)}
	for i := range want {
		if rec.Values[i] != want[i] {
			t.Fatalf("values: got %v, want %v", rec.Values, want)
		}
	}
}

func TestIntersect(t *testing.T) {
	dir := t.TempDir()
	a := writeSAF(t, dir, "a", V3, 1, []testContig{{
		name:      "chr1",
		positions: []int64{1, 2, 3, 5},
		values: [][]float64{
			fullSite(0, -1),
			fullSite(0, -2),
			fullSite(0, -3),
			fullSite(0, -5),
		},
	}})
	b := writeSAF(t, dir, "b", V3, 2, []testContig{{
		name:      "chr1",
		positions: []int64{2, 3, 4, 5},
		values: [][]float64{
			fullSite(-2, 0, -2),
			fullSite(-3, 0, -3),
			fullSite(-4, 0, -4),
			fullSite(-5, 0, -5),
		},
	}})

	ra, err := Open(a)
	if err != nil {
		t.Fatal(err)
	}
	rb, err := Open(b)
	if err != nil {
		t.Fatal(err)
	}
	in, err := NewIntersect([]*Reader{ra, rb})
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()

	if got := in.Shape(); got[0] != 2 || got[1] != 3 {
		t.Fatalf("shape: got %v, want [2 3]", got)
	}

	// intersecting positions are 2, 3 and 5
	buf := make([]float32, in.Width())
	wantFirst := []float64{0, -2, -2, 0, -2}
	ok, err := in.ReadSiteLog(buf)
	if err != nil || !ok {
		t.Fatalf("read: ok=%v err=%v", ok, err)
	}
	for i := range wantFirst {
		if buf[i] != float32(wantFirst[i]) {
			t.Fatalf("first site: got %v, want %v", buf, wantFirst)
		}
	}
	count := 1
	for {
		ok, err := in.ReadSite(buf)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		count++
	}
	if count != 3 {
		t.Errorf("intersection has %d sites, want 3", count)
	}

	// a second pass after rewind sees the same sites, now in
	// linear space
	if err := in.Rewind(); err != nil {
		t.Fatal(err)
	}
	ok, err = in.ReadSite(buf)
	if err != nil || !ok {
		t.Fatalf("read after rewind: ok=%v err=%v", ok, err)
	}
	for i := range wantFirst {
		want := float32(math.Exp(wantFirst[i]))
		if buf[i] != want {
			t.Fatalf("first site after rewind: got %v, want exp of %v", buf, wantFirst)
		}
	}
}

func TestReadAll(t *testing.T) {
	dir := t.TempDir()
	path := writeSAF(t, dir, "a", V3, 1, []testContig{{
		name:      "chr1",
		positions: []int64{1, 2},
		values: [][]float64{
			fullSite(0, -1),
			fullSite(-1, 0),
		},
	}})
	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	in, err := NewIntersect([]*Reader{r})
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	matrix, err := in.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if matrix.Sites() != 2 {
		t.Fatalf("sites: got %d, want 2", matrix.Sites())
	}
	if got := matrix.Site(0).Values()[0]; got != 1 {
		t.Errorf("site 0 value 0: got %v, want 1 (exp of 0)", got)
	}
}
