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
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/SnellerInc/winsfs/sfs"
)

// stat calculates statistics from an SFS read from a path or stdin.
// The input is normalised as required, so it does not need to be
// normalised up front.
func stat(args []string) error {
	var (
		statistics string
		delimiter  string
		header     bool
		precision  string
	)
	fs := flag.NewFlagSet("stat", flag.ExitOnError)
	fs.StringVar(&statistics, "s", "", "comma-separated statistics to calculate (f2, king, r0, r1, sum)")
	fs.StringVar(&statistics, "statistics", "", "comma-separated statistics to calculate (f2, king, r0, r1, sum)")
	fs.StringVar(&delimiter, "d", ",", "delimiter between statistics")
	fs.StringVar(&delimiter, "delimiter", ",", "delimiter between statistics")
	fs.BoolVar(&header, "H", false, "output a header with the names of statistics")
	fs.BoolVar(&header, "header", false, "output a header with the names of statistics")
	fs.StringVar(&precision, "p", "6", "comma-separated precision per statistic, or one for all")
	fs.StringVar(&precision, "precision", "6", "comma-separated precision per statistic, or one for all")
	addVerbose(fs)
	fs.Parse(args)
	if statistics == "" {
		return fmt.Errorf("no statistics given: see -s")
	}
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

	names := strings.Split(statistics, ",")
	// calculate everything before printing, so that shape errors
	// surface before e.g. the header is written
	values := make([]float64, len(names))
	for i, name := range names {
		if values[i], err = calculate(name, input); err != nil {
			return err
		}
	}
	precisions, err := parsePrecisions(precision, len(names))
	if err != nil {
		return err
	}

	if header {
		fmt.Println(strings.Join(names, delimiter))
	}
	parts := make([]string, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			logf(0, "Output has NaN in statistics")
		}
		parts[i] = strconv.FormatFloat(v, 'f', precisions[i], 64)
	}
	fmt.Fprintln(os.Stdout, strings.Join(parts, delimiter))
	return nil
}

func calculate(name string, input *sfs.SFS) (float64, error) {
	switch name {
	case "f2":
		return input.F2()
	case "king":
		return input.King()
	case "r0":
		return input.R0()
	case "r1":
		return input.R1()
	case "sum":
		return input.Sum(), nil
	default:
		return 0, fmt.Errorf("unknown statistic %q: see -s", name)
	}
}

func parsePrecisions(arg string, n int) ([]int, error) {
	parts := strings.Split(arg, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("bad precision %q: see -p", p)
		}
		out = append(out, v)
	}
	switch {
	case len(out) == 1:
		for len(out) < n {
			out = append(out, out[0])
		}
		return out, nil
	case len(out) == n:
		return out, nil
	default:
		return nil, fmt.Errorf("number of precision values must be one or match number of statistics calculated: see -p")
	}
}
