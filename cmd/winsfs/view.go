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
	"fmt"
	"os"
)

// view reads an SFS, optionally folds and/or normalises it, and
// re-serialises it as text or npy.
func view(args []string) error {
	var (
		fold         bool
		normalise    bool
		outputFormat string
	)
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.BoolVar(&fold, "f", false, "fold the spectrum onto its upper part")
	fs.BoolVar(&fold, "fold", false, "fold the spectrum onto its upper part")
	fs.BoolVar(&normalise, "n", false, "normalise the spectrum")
	fs.BoolVar(&normalise, "normalise", false, "normalise the spectrum")
	fs.StringVar(&outputFormat, "o", "txt", "output format (txt or npy)")
	fs.StringVar(&outputFormat, "output-format", "txt", "output format (txt or npy)")
	addVerbose(fs)
	fs.Parse(args)
	var path string
	switch rest := fs.Args(); len(rest) {
	case 0:
	case 1:
		path = rest[0]
	default:
		return fmt.Errorf("expected at most one SFS path, got %d", len(rest))
	}

	input, err := readSFSArg(path)
	if err != nil {
		return err
	}
	if fold {
		input = input.Fold()
	}
	if normalise {
		input.Normalise()
	}
	switch outputFormat {
	case "txt":
		return input.WriteText(os.Stdout)
	case "npy":
		return input.WriteNpy(os.Stdout)
	default:
		return fmt.Errorf("invalid output format %q (expected txt or npy): see -o", outputFormat)
	}
}
