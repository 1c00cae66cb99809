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
	"strings"

	"github.com/SnellerInc/winsfs/shuffmt"
)

const defaultShuffleBlocks = 100

// shuffle intersects the input SAF files on disk into a
// pseudo-shuffled file. For a single input the site count is known
// from the index; with multiple inputs the intersection size is
// only known after a full pass, so the inputs are streamed twice:
// once to count, once to write.
func shuffle(args []string) error {
	var (
		output string
		blocks int
	)
	fs := flag.NewFlagSet("shuffle", flag.ExitOnError)
	fs.StringVar(&output, "o", "", "output path")
	fs.StringVar(&output, "output", "", "output path")
	fs.IntVar(&blocks, "B", defaultShuffleBlocks, "number of blocks")
	fs.IntVar(&blocks, "blocks", defaultShuffleBlocks, "number of blocks")
	addVerbose(fs)
	fs.Parse(args)
	paths := fs.Args()
	if err := checkPathCount(paths); err != nil {
		return err
	}
	if output == "" {
		return fmt.Errorf("no output path given: see -o")
	}
	logf(1, "Shuffling (intersecting) sites in input SAF files:\n\t%s", strings.Join(paths, "\n\t"))

	in, err := openIntersect(paths)
	if err != nil {
		return err
	}
	defer in.Close()

	sites := in.Readers()[0].Index().TotalSites()
	if len(paths) > 1 {
		// the intersection size cannot be known without a pass
		// through the data
		buf := make([]float32, in.Width())
		sites = 0
		for {
			ok, err := in.ReadSiteLog(buf)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			sites++
		}
		if err := in.Rewind(); err != nil {
			return err
		}
	}

	header, err := shuffmt.NewHeader(sites, in.Shape(), blocks)
	if err != nil {
		return err
	}
	logf(1, "Pre-allocating %d bytes on disk for %d sites with shape %v",
		header.FileSize(), header.Sites(), header.Shape())

	writer, err := shuffmt.Create(output, header)
	if err != nil {
		return err
	}
	buf := make([]float32, in.Width())
	for {
		ok, err := in.ReadSiteLog(buf)
		if err != nil {
			writer.Abort()
			return err
		}
		if !ok {
			break
		}
		if err := writer.WriteSite(buf); err != nil {
			writer.Abort()
			return err
		}
	}
	return writer.Finish()
}
