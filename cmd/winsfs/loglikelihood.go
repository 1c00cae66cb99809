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

	"github.com/SnellerInc/winsfs/em"
	"github.com/SnellerInc/winsfs/shuffmt"
)

// logLikelihood streams the input against a given SFS and prints the
// total log-likelihood.
func logLikelihood(args []string) error {
	var sfsPath string
	fs := flag.NewFlagSet("log-likelihood", flag.ExitOnError)
	fs.StringVar(&sfsPath, "i", "", "SFS path")
	fs.StringVar(&sfsPath, "sfs", "", "SFS path")
	addVerbose(fs)
	fs.Parse(args)
	paths := fs.Args()
	if err := checkPathCount(paths); err != nil {
		return err
	}
	if sfsPath == "" {
		return fmt.Errorf("no SFS path given: see -i")
	}
	p, err := readSFSArg(sfsPath)
	if err != nil {
		return err
	}
	p.Normalise()

	var reader em.SiteReader
	if len(paths) == 1 {
		format, err := detectFormat(paths[0])
		if err != nil {
			return err
		}
		if format == formatShuffled {
			shuf, err := shuffmt.Open(paths[0])
			if err != nil {
				return err
			}
			defer shuf.Close()
			reader = shuf
		}
	}
	if reader == nil {
		in, err := openIntersect(paths)
		if err != nil {
			return err
		}
		defer in.Close()
		reader = in
	}
	if !equalShape(p.Shape(), reader.Shape()) {
		return fmt.Errorf("SFS shape %v does not match input shape %v", p.Shape(), reader.Shape())
	}

	logf(1, "Streaming (intersecting) sites in input SAF files")
	sum, err := em.StreamLogLikelihood(p, reader)
	if err != nil {
		return err
	}
	logf(1, "Processed %d sites", sum.N)
	fmt.Println(sum.Sum)
	return nil
}
