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
	"sync"

	"github.com/SnellerInc/winsfs/em"
	"github.com/SnellerInc/winsfs/saf"
	"github.com/SnellerInc/winsfs/sfs"
)

const (
	defaultSplits         = 50
	defaultSplitTolerance = 1e-8
)

// split partitions the input into blocks and runs standard EM to
// convergence within each block separately, starting every block
// from the same fixed SFS. The per-block expected-count spectra are
// written one after another, each with its own "#SHAPE=<...>" header
// line, for block-jackknife style downstream use.
func split(args []string) error {
	var (
		splits    int
		splitSize int
		sfsPath   string
		threads   int
		tolerance float64
	)
	fs := flag.NewFlagSet("split", flag.ExitOnError)
	fs.IntVar(&splits, "S", 0, "number of splits")
	fs.IntVar(&splits, "splits", 0, "number of splits")
	fs.IntVar(&splitSize, "s", 0, "number of sites per split")
	fs.IntVar(&splitSize, "split-size", 0, "number of sites per split")
	fs.StringVar(&sfsPath, "i", "", "SFS path")
	fs.StringVar(&sfsPath, "sfs", "", "SFS path")
	fs.IntVar(&threads, "t", 0, "number of threads")
	fs.IntVar(&threads, "threads", 0, "number of threads")
	fs.Float64Var(&tolerance, "l", defaultSplitTolerance, "per-block log-likelihood tolerance")
	fs.Float64Var(&tolerance, "tolerance", defaultSplitTolerance, "per-block log-likelihood tolerance")
	addVerbose(fs)
	fs.Parse(args)
	paths := fs.Args()
	if err := checkPathCount(paths); err != nil {
		return err
	}
	if sfsPath == "" {
		return fmt.Errorf("no SFS path given: see -i")
	}
	if splits != 0 && splitSize != 0 {
		return fmt.Errorf("split count and split size are mutually exclusive: see -S and -s")
	}
	em.SetThreads(threads)

	initial, err := readSFSArg(sfsPath)
	if err != nil {
		return err
	}
	initial.Normalise()

	in, err := openIntersect(paths)
	if err != nil {
		return err
	}
	matrix, err := in.ReadAll()
	in.Close()
	if err != nil {
		return err
	}
	if !equalShape(initial.Shape(), matrix.Shape()) {
		return fmt.Errorf("SFS shape %v does not match input shape %v", initial.Shape(), matrix.Shape())
	}

	var spec saf.Blocks
	switch {
	case splits != 0:
		spec = saf.BlockCount(splits)
	case splitSize != 0:
		spec = saf.BlockSize(splitSize)
	default:
		spec = saf.BlockCount(defaultSplits)
	}
	blocks := matrix.View().Blocks(fitBlocks(spec, matrix.Sites()))
	results := make([]*sfs.SFS, len(blocks))

	// blocks converge independently, so fan out across them rather
	// than within the per-block e-steps
	sem := make(chan struct{}, em.Threads())
	var wg sync.WaitGroup
	wg.Add(len(blocks))
	for i := range blocks {
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = splitBlock(initial, blocks[i], tolerance)
			logf(1, "Finished split %d of %d", i+1, len(blocks))
		}(i)
	}
	wg.Wait()

	// each block's spectrum is written as a full header+values
	// record, so the output is a concatenation of single spectra
	for _, result := range results {
		if err := result.WriteText(os.Stdout); err != nil {
			return err
		}
	}
	return nil
}

// splitBlock runs standard EM on one block until the per-site
// log-likelihood difference falls within the tolerance, returning
// the block's expected counts.
func splitBlock(initial *sfs.SFS, block saf.View, tolerance float64) *sfs.SFS {
	rule := em.NewLogLikelihoodTolerance(tolerance)
	p := initial.Clone().Normalise()
	for {
		sum, posterior := em.EStep(p, block)
		p = posterior.Normalise()
		if rule.Stop(em.Status{sum}, p) {
			return p.Clone().Scale(float64(block.Sites()))
		}
	}
}
