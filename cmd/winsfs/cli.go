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
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"golang.org/x/exp/slices"

	"github.com/SnellerInc/winsfs/angsd"
	"github.com/SnellerInc/winsfs/sfs"
	"github.com/SnellerInc/winsfs/shuffmt"
)

// nanExitCode is the distinctive exit code used when an estimate
// develops NaN cells, so that the failure is distinguishable from
// ordinary handled errors.
const nanExitCode = 101

var logger = log.New(os.Stderr, "", 0)

// verbosity is a repeatable boolean flag: each -v raises the level.
type verbosity int

func (v *verbosity) String() string { return strconv.Itoa(int(*v)) }

func (v *verbosity) IsBoolFlag() bool { return true }

func (v *verbosity) Set(string) error { *v++; return nil }

var verbose verbosity

func addVerbose(fs *flag.FlagSet) {
	fs.Var(&verbose, "v", "verbosity (repeatable)")
}

// logf logs when at least level occurrences of -v were given.
func logf(level int, f string, args ...interface{}) {
	if int(verbose) >= level {
		logger.Printf(f, args...)
	}
}

// readSFSArg reads an SFS from path, or from stdin when path is
// empty or "-". Text and npy inputs are distinguished by their first
// byte.
func readSFSArg(path string) (*sfs.SFS, error) {
	var r io.Reader
	if path == "" || path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	br := bufio.NewReader(r)
	first, err := br.Peek(1)
	if err != nil {
		return nil, fmt.Errorf("reading SFS input: %w", err)
	}
	if first[0] == 0x93 {
		return sfs.ReadNpy(br)
	}
	return sfs.ReadText(br)
}

// inputFormat describes how the estimate input should be consumed.
type inputFormat int

const (
	formatAuto inputFormat = iota
	formatStandard
	formatShuffled
)

func parseInputFormat(s string) (inputFormat, error) {
	switch s {
	case "":
		return formatAuto, nil
	case "standard":
		return formatStandard, nil
	case "shuffled":
		return formatShuffled, nil
	}
	return 0, fmt.Errorf("invalid input format %q (expected standard or shuffled): see -I", s)
}

// detectFormat reads the first 8 bytes of path and matches them
// against the pseudo-shuffle magic and the SAF version magics.
func detectFormat(path string) (inputFormat, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	var magic [8]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return 0, fmt.Errorf("reading magic number from %s: %w", path, err)
	}
	if shuffmt.IsShuffled(magic[:]) {
		return formatShuffled, nil
	}
	if _, err := angsd.DetectVersion(magic[:]); err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return formatStandard, nil
}

// openIntersect opens the given SAF member paths as an intersecting
// reader.
func openIntersect(paths []string) (*angsd.Intersect, error) {
	readers := make([]*angsd.Reader, 0, len(paths))
	for _, path := range paths {
		r, err := angsd.Open(path)
		if err != nil {
			for _, prev := range readers {
				prev.Close()
			}
			return nil, err
		}
		readers = append(readers, r)
	}
	return angsd.NewIntersect(readers)
}

func equalShape(a, b []int) bool {
	return slices.Equal(a, b)
}

func checkPathCount(paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("no input SAF paths given")
	}
	if len(paths) > 6 {
		return fmt.Errorf("at most six input SAF paths supported, got %d", len(paths))
	}
	return nil
}
