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

package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestParsePrecisions(t *testing.T) {
	got, err := parsePrecisions("6", 3)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range got {
		if p != 6 {
			t.Fatalf("got %v, want [6 6 6]", got)
		}
	}
	got, err = parsePrecisions("2,4", 2)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 2 || got[1] != 4 {
		t.Fatalf("got %v, want [2 4]", got)
	}
	if _, err := parsePrecisions("2,4", 3); err == nil {
		t.Error("expected error for mismatched precision count")
	}
	if _, err := parsePrecisions("x", 1); err == nil {
		t.Error("expected error for non-numeric precision")
	}
}

func TestParseInputFormat(t *testing.T) {
	if f, err := parseInputFormat(""); err != nil || f != formatAuto {
		t.Errorf("empty: got %v, %v", f, err)
	}
	if f, err := parseInputFormat("shuffled"); err != nil || f != formatShuffled {
		t.Errorf("shuffled: got %v, %v", f, err)
	}
	if _, err := parseInputFormat("bogus"); err == nil {
		t.Error("expected error for bogus format")
	}
}

func TestEstimateArgsBlockSpec(t *testing.T) {
	a := estimateArgs{blocks: 10, blockSize: 10}
	if _, err := a.blockSpec(); err == nil {
		t.Error("expected error for conflicting block flags")
	}
	a = estimateArgs{}
	spec, err := a.blockSpec()
	if err != nil {
		t.Fatal(err)
	}
	if n, ok := spec.IsCount(); !ok || n != defaultBlocks {
		t.Errorf("default spec: got %v, want %d blocks", spec, defaultBlocks)
	}
}

func TestDefinitionMerge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "def.yaml")
	doc := "blocks: 250\nwindow-size: 42\ntolerance: 1e-5\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	def, err := readDefinition(path)
	if err != nil {
		t.Fatal(err)
	}
	if def.Blocks != 250 || def.WindowSize != 42 || def.Tolerance != 1e-5 {
		t.Fatalf("definition: got %+v", def)
	}

	var a estimateArgs
	fs := flag.NewFlagSet("estimate", flag.ContinueOnError)
	a.register(fs)
	// an explicit -B wins over the definition, everything else is
	// filled in
	if err := fs.Parse([]string{"-B", "100"}); err != nil {
		t.Fatal(err)
	}
	a.merge(fs, def)
	if a.blocks != 100 {
		t.Errorf("blocks: got %d, want flag value 100", a.blocks)
	}
	if a.windowSize != 42 {
		t.Errorf("window size: got %d, want definition value 42", a.windowSize)
	}
	if a.tolerance != 1e-5 {
		t.Errorf("tolerance: got %v, want definition value 1e-5", a.tolerance)
	}
}

func TestDefinitionConflicts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "def.json")
	doc := `{"blocks": 2, "block-size": 3}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := readDefinition(path); err == nil {
		t.Error("expected error for conflicting definition")
	}
	doc = `{"bogus": 1}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := readDefinition(path); err == nil {
		t.Error("expected error for unknown definition key")
	}
}
