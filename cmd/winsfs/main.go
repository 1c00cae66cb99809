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

// Command winsfs estimates the joint site frequency spectrum of up
// to six populations from SAF likelihoods using window EM.
package main

import (
	"fmt"
	"os"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "    %s estimate [options] <saf>...\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "        estimate the joint SFS of 1-6 populations\n")
	fmt.Fprintf(os.Stderr, "    %s shuffle -o <out> [options] <saf>...\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "        write a pseudo-shuffled SAF file for streaming estimation\n")
	fmt.Fprintf(os.Stderr, "    %s log-likelihood -i <sfs> <saf>...\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "        stream input SAFs against a given SFS\n")
	fmt.Fprintf(os.Stderr, "    %s stat -s <stat>[,...] [options] [<sfs>]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "        calculate statistics (f2, king, r0, r1, sum) from an SFS\n")
	fmt.Fprintf(os.Stderr, "    %s view [options] [<sfs>]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "        fold, normalise and/or re-serialise an SFS\n")
	fmt.Fprintf(os.Stderr, "    %s split -i <sfs> [options] <saf>...\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "        run per-block EM against a fixed SFS\n")
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}
	var err error
	switch args[0] {
	case "estimate":
		err = estimate(args[1:])
	case "shuffle":
		err = shuffle(args[1:])
	case "log-likelihood":
		err = logLikelihood(args[1:])
	case "stat":
		err = stat(args[1:])
	case "view":
		err = view(args[1:])
	case "split":
		err = split(args[1:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "winsfs %s: %s\n", args[0], err)
		os.Exit(1)
	}
}
