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

package saf

import (
	"math/rand"
	"sort"
	"testing"
)

// counting returns a SAF of the given shape whose i-th site is
// filled with the value i, which makes site identity visible after
// shuffling and splitting.
func counting(t *testing.T, sites int, shape []int) *Saf {
	t.Helper()
	width := 0
	for _, s := range shape {
		width += s
	}
	vals := make([]float32, 0, sites*width)
	for i := 0; i < sites; i++ {
		for j := 0; j < width; j++ {
			vals = append(vals, float32(i))
		}
	}
	s, err := New(vals, shape)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewWidthMismatch(t *testing.T) {
	if _, err := New(make([]float32, 10), []int{3, 4}); err == nil {
		t.Fatal("expected error for 10 values with width 7")
	}
}

func TestSites(t *testing.T) {
	s := counting(t, 12, []int{3, 4})
	if got := s.Sites(); got != 12 {
		t.Errorf("sites: got %d, want 12", got)
	}
	if got := s.Width(); got != 7 {
		t.Errorf("width: got %d, want 7", got)
	}
}

func TestSiteSplit(t *testing.T) {
	vals := []float32{0, 1, 2, 3, 4, 5, 6}
	s, err := New(vals, []int{3, 4})
	if err != nil {
		t.Fatal(err)
	}
	pops := s.Site(0).Split(nil)
	if len(pops) != 2 || len(pops[0]) != 3 || len(pops[1]) != 4 {
		t.Fatalf("split: got lengths %d/%d", len(pops[0]), len(pops[1]))
	}
	if pops[0][2] != 2 || pops[1][0] != 3 {
		t.Errorf("split contents wrong: %v %v", pops[0], pops[1])
	}
}

func TestSwapSites(t *testing.T) {
	s := counting(t, 4, []int{2})
	s.SwapSites(0, 3)
	if s.Site(0).Values()[0] != 3 || s.Site(3).Values()[0] != 0 {
		t.Error("swap did not exchange site storage")
	}
	s.SwapSites(1, 1)
	if s.Site(1).Values()[0] != 1 {
		t.Error("self-swap changed storage")
	}
}

func TestShuffleIsPermutation(t *testing.T) {
	s := counting(t, 101, []int{2, 3})
	before := make([]float64, 0, s.Sites())
	for i := 0; i < s.Sites(); i++ {
		before = append(before, float64(s.Site(i).Values()[0]))
	}
	s.Shuffle(rand.New(rand.NewSource(1)))
	after := make([]float64, 0, s.Sites())
	moved := false
	for i := 0; i < s.Sites(); i++ {
		site := s.Site(i).Values()
		// sites move as units
		for _, v := range site[1:] {
			if v != site[0] {
				t.Fatalf("site %d torn by shuffle: %v", i, site)
			}
		}
		if float64(site[0]) != before[i] {
			moved = true
		}
		after = append(after, float64(site[0]))
	}
	if !moved {
		t.Error("shuffle left all sites in place")
	}
	sort.Float64s(before)
	sort.Float64s(after)
	for i := range before {
		if before[i] != after[i] {
			t.Fatal("shuffle is not a permutation of sites")
		}
	}
}

func TestViewSplit(t *testing.T) {
	s := counting(t, 10, []int{3})
	head, tail := s.View().Split(4)
	if head.Sites() != 4 || tail.Sites() != 6 {
		t.Fatalf("split sites: got %d/%d", head.Sites(), tail.Sites())
	}
	if tail.Site(0).Values()[0] != 4 {
		t.Error("tail does not start at site 4")
	}
}

func TestBlockCountSizes(t *testing.T) {
	cases := []struct {
		sites, blocks int
	}{
		{sites: 100, blocks: 7},
		{sites: 9, blocks: 4},
		{sites: 5, blocks: 5},
		{sites: 1000, blocks: 1},
	}
	for i := range cases {
		spec := BlockCount(cases[i].blocks)
		sizes := spec.Sizes(cases[i].sites)
		total, min, max := 0, cases[i].sites, 0
		for _, size := range sizes {
			total += size
			if size < min {
				min = size
			}
			if size > max {
				max = size
			}
		}
		if total != cases[i].sites {
			t.Errorf("case %d: block sizes sum to %d, want %d", i, total, cases[i].sites)
		}
		if max-min > 1 {
			t.Errorf("case %d: unbalanced blocks %v", i, sizes)
		}
		if rem := cases[i].sites % len(sizes); rem != 0 {
			for j := 0; j < rem; j++ {
				if sizes[j] != max {
					t.Errorf("case %d: block %d should be one of the larger blocks", i, j)
				}
			}
		}
	}
}

func TestBlockSizeSizes(t *testing.T) {
	sizes := BlockSize(30).Sizes(100)
	want := []int{30, 30, 30, 10}
	if len(sizes) != len(want) {
		t.Fatalf("got %v, want %v", sizes, want)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Fatalf("got %v, want %v", sizes, want)
		}
	}
	// no trailing empty block when the size divides evenly
	if got := BlockSize(25).Sizes(100); len(got) != 4 {
		t.Errorf("even split: got %v", got)
	}
}

func TestBlockCountTooManyBlocks(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for more blocks than sites")
		}
	}()
	BlockCount(8).Sizes(3)
}

func TestBlocksEmptyInput(t *testing.T) {
	if got := BlockCount(4).Sizes(0); len(got) != 0 {
		t.Errorf("zero sites should yield no blocks, got %v", got)
	}
	if got := len(counting(t, 0, []int{3}).View().Blocks(BlockSize(10))); got != 0 {
		t.Errorf("zero-site view should yield no blocks, got %d", got)
	}
}

func TestViewBlocks(t *testing.T) {
	s := counting(t, 9, []int{2})
	blocks := s.View().Blocks(BlockCount(4))
	if len(blocks) != 4 {
		t.Fatalf("got %d blocks, want 4", len(blocks))
	}
	// 9 sites in 4 blocks: 3, 2, 2, 2
	wantSizes := []int{3, 2, 2, 2}
	next := 0
	for i, block := range blocks {
		if block.Sites() != wantSizes[i] {
			t.Errorf("block %d: got %d sites, want %d", i, block.Sites(), wantSizes[i])
		}
		for j := 0; j < block.Sites(); j++ {
			if got := block.Site(j).Values()[0]; got != float32(next) {
				t.Fatalf("block %d site %d: got %v, want %d", i, j, got, next)
			}
			next++
		}
	}
}
