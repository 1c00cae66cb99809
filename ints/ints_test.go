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

package ints

import (
	"testing"
)

func TestChunks(t *testing.T) {
	cases := []struct {
		n, k int
		want []int
	}{
		{n: 10, k: 2, want: []int{0, 5, 10}},
		{n: 10, k: 3, want: []int{0, 4, 7, 10}},
		{n: 9, k: 4, want: []int{0, 3, 5, 7, 9}},
		{n: 3, k: 8, want: []int{0, 1, 2, 3}},
		{n: 1, k: 1, want: []int{0, 1}},
	}
	for i := range cases {
		got := Chunks(cases[i].n, cases[i].k)
		if len(got) != len(cases[i].want) {
			t.Fatalf("case %d: got %v, want %v", i, got, cases[i].want)
		}
		for j := range got {
			if got[j] != cases[i].want[j] {
				t.Errorf("case %d: got %v, want %v", i, got, cases[i].want)
				break
			}
		}
	}
}

func TestChunksBalanced(t *testing.T) {
	for n := 1; n < 100; n++ {
		for k := 1; k <= n; k++ {
			bounds := Chunks(n, k)
			if bounds[0] != 0 || bounds[len(bounds)-1] != n {
				t.Fatalf("n=%d k=%d: bad bounds %v", n, k, bounds)
			}
			min, max := n, 0
			for i := 1; i < len(bounds); i++ {
				size := bounds[i] - bounds[i-1]
				if size < min {
					min = size
				}
				if size > max {
					max = size
				}
			}
			if max-min > 1 {
				t.Fatalf("n=%d k=%d: unbalanced chunks %v", n, k, bounds)
			}
		}
	}
}

func TestProdSum(t *testing.T) {
	if got := Prod([]int{3, 5}); got != 15 {
		t.Errorf("Prod: got %d, want 15", got)
	}
	if got := Prod([]int{}); got != 1 {
		t.Errorf("Prod of empty: got %d, want 1", got)
	}
	if got := Sum([]int{1, 4, 6}); got != 11 {
		t.Errorf("Sum: got %d, want 11", got)
	}
}
