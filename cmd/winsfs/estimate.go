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
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/SnellerInc/winsfs/em"
	"github.com/SnellerInc/winsfs/saf"
	"github.com/SnellerInc/winsfs/sfs"
	"github.com/SnellerInc/winsfs/shuffmt"
)

const (
	defaultBlocks     = 500
	defaultWindowSize = 100
	defaultTolerance  = 1e-4
)

type estimateArgs struct {
	blocks      int
	blockSize   int
	windowSize  int
	maxEpochs   int
	tolerance   float64
	initial     string
	inputFormat string
	seed        int64
	threads     int
	definition  string
}

func (a *estimateArgs) register(fs *flag.FlagSet) {
	fs.IntVar(&a.blocks, "B", 0, "number of blocks")
	fs.IntVar(&a.blocks, "blocks", 0, "number of blocks")
	fs.IntVar(&a.blockSize, "b", 0, "number of sites per block")
	fs.IntVar(&a.blockSize, "block-size", 0, "number of sites per block")
	fs.IntVar(&a.windowSize, "w", 0, "number of blocks per window")
	fs.IntVar(&a.windowSize, "window-size", 0, "number of blocks per window")
	fs.IntVar(&a.maxEpochs, "max-epochs", 0, "maximum number of epochs")
	fs.Float64Var(&a.tolerance, "l", 0, "window log-likelihood tolerance")
	fs.Float64Var(&a.tolerance, "tolerance", 0, "window log-likelihood tolerance")
	fs.StringVar(&a.initial, "i", "", "initial SFS path")
	fs.StringVar(&a.initial, "initial", "", "initial SFS path")
	fs.StringVar(&a.inputFormat, "I", "", "input format (standard or shuffled)")
	fs.StringVar(&a.inputFormat, "input-format", "", "input format (standard or shuffled)")
	fs.Int64Var(&a.seed, "s", 0, "random seed for site shuffling")
	fs.Int64Var(&a.seed, "seed", 0, "random seed for site shuffling")
	fs.IntVar(&a.threads, "t", 0, "number of threads")
	fs.IntVar(&a.threads, "threads", 0, "number of threads")
	fs.StringVar(&a.definition, "D", "", "estimate definition file (json or yaml)")
	fs.StringVar(&a.definition, "definition", "", "estimate definition file (json or yaml)")
	addVerbose(fs)
}

// merge folds the definition file into the arguments, with explicitly
// set flags taking precedence.
func (a *estimateArgs) merge(fs *flag.FlagSet, def *definition) {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	pick := func(names ...string) bool {
		for _, name := range names {
			if set[name] {
				return false
			}
		}
		return true
	}
	if def.Blocks != 0 && pick("B", "blocks") {
		a.blocks = def.Blocks
	}
	if def.BlockSize != 0 && pick("b", "block-size") {
		a.blockSize = def.BlockSize
	}
	if def.WindowSize != 0 && pick("w", "window-size") {
		a.windowSize = def.WindowSize
	}
	if def.MaxEpochs != 0 && pick("max-epochs") {
		a.maxEpochs = def.MaxEpochs
	}
	if def.Tolerance != 0 && pick("l", "tolerance") {
		a.tolerance = def.Tolerance
	}
	if def.Seed != 0 && pick("s", "seed") {
		a.seed = def.Seed
	}
	if def.Threads != 0 && pick("t", "threads") {
		a.threads = def.Threads
	}
}

func (a *estimateArgs) blockSpec() (saf.Blocks, error) {
	switch {
	case a.blocks != 0 && a.blockSize != 0:
		return saf.Blocks{}, fmt.Errorf("block count and block size are mutually exclusive: see -B and -b")
	case a.blocks != 0:
		return saf.BlockCount(a.blocks), nil
	case a.blockSize != 0:
		return saf.BlockSize(a.blockSize), nil
	default:
		return saf.BlockCount(defaultBlocks), nil
	}
}

// stoppingRule builds the stopping rule from -l and --max-epochs:
// either alone when only one is given, the disjunction when both are,
// and the default tolerance alone when neither is.
func (a *estimateArgs) stoppingRule() em.StoppingRule {
	switch {
	case a.maxEpochs != 0 && a.tolerance != 0:
		return em.NewEither(em.NewSteps(a.maxEpochs), em.NewWindowLogLikelihoodTolerance(a.tolerance))
	case a.maxEpochs != 0:
		return em.NewSteps(a.maxEpochs)
	case a.tolerance != 0:
		return em.NewWindowLogLikelihoodTolerance(a.tolerance)
	default:
		return em.NewWindowLogLikelihoodTolerance(defaultTolerance)
	}
}

func (a *estimateArgs) window() int {
	if a.windowSize != 0 {
		return a.windowSize
	}
	return defaultWindowSize
}

// fitBlocks adjusts a fixed block count that cannot be materialised
// against the site count: the count is halved until it fits, with a
// warning, since the core panics on more blocks than sites.
func fitBlocks(spec saf.Blocks, sites int) saf.Blocks {
	n, ok := spec.IsCount()
	if !ok || n <= sites || sites == 0 {
		return spec
	}
	for n > sites && n > 1 {
		n /= 2
	}
	logf(0, "Fewer sites than blocks, defaulting to %d blocks; "+
		"consider checking input and/or setting hyperparameters manually", n)
	return saf.BlockCount(n)
}

// inspect is the per-step hook: it logs epoch progress and guards
// the NaN invariant. A NaN cell means a site had zero likelihood
// under the current estimate; the run aborts rather than continuing
// on garbage.
func inspect(step int, status em.Status, estimate *sfs.SFS) {
	if estimate.HasNaN() {
		logger.Printf("estimate contains NaN after epoch %d; this indicates pathological input data and cannot be recovered from", step)
		os.Exit(nanExitCode)
	}
	logf(1, "Finished epoch %d with log-likelihood %.6e", step, status.LogLikelihood().Sum)
	logf(2, "Current estimate:\n%s", estimate.FormatFlat(" ", 6))
}

func estimate(args []string) error {
	var a estimateArgs
	fs := flag.NewFlagSet("estimate", flag.ExitOnError)
	a.register(fs)
	fs.Parse(args)
	paths := fs.Args()
	if err := checkPathCount(paths); err != nil {
		return err
	}
	if a.definition != "" {
		def, err := readDefinition(a.definition)
		if err != nil {
			return err
		}
		a.merge(fs, def)
	}
	em.SetThreads(a.threads)

	format, err := parseInputFormat(a.inputFormat)
	if err != nil {
		return err
	}
	if format == formatAuto {
		if len(paths) > 1 {
			format = formatStandard
		} else if format, err = detectFormat(paths[0]); err != nil {
			return err
		}
	}
	if format == formatShuffled && len(paths) > 1 {
		return fmt.Errorf("cannot stream multiple input files: see -I")
	}

	spec, err := a.blockSpec()
	if err != nil {
		return err
	}
	switch format {
	case formatStandard:
		return a.runInMemory(paths, spec)
	default:
		return a.runStreaming(paths[0], spec)
	}
}

// setup reads or constructs the initial SFS and builds the window EM
// runner, seeding the window with the initial estimate scaled to
// block size when one was given.
func (a *estimateArgs) setup(shape []int, sites int, spec saf.Blocks, parallel bool) (*sfs.SFS, *em.WindowEM, error) {
	runner := &em.WindowEM{
		WindowSize: a.window(),
		Blocks:     spec,
		Parallel:   parallel,
		Inspect:    inspect,
	}
	var initial *sfs.SFS
	if a.initial != "" {
		read, err := readSFSArg(a.initial)
		if err != nil {
			return nil, nil, err
		}
		if got := read.Shape(); !equalShape(got, shape) {
			return nil, nil, fmt.Errorf("initial SFS shape %v does not match input shape %v", got, shape)
		}
		runner.Initial = read.Clone().Normalise().Scale(float64(spec.ApproxSize(sites)))
		initial = read.Normalise()
	} else {
		logf(1, "Creating uniform initial SFS")
		initial = sfs.Uniform(shape)
	}
	return initial, runner, nil
}

func (a *estimateArgs) runInMemory(paths []string, spec saf.Blocks) error {
	logf(1, "Reading (intersecting) sites in input SAF files into memory:\n\t%s", strings.Join(paths, "\n\t"))
	in, err := openIntersect(paths)
	if err != nil {
		return err
	}
	matrix, err := in.ReadAll()
	in.Close()
	if err != nil {
		return err
	}
	sites := matrix.Sites()
	logf(1, "Found %d (intersecting) sites in SAF files with shape %v", sites, matrix.Shape())

	seed := a.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	matrix.Shuffle(rand.New(rand.NewSource(seed)))

	spec = fitBlocks(spec, sites)
	initial, runner, err := a.setup(matrix.Shape(), sites, spec, true)
	if err != nil {
		return err
	}
	_, result := runner.Run(initial, matrix.View(), a.stoppingRule())
	return result.Scale(float64(sites)).WriteText(os.Stdout)
}

func (a *estimateArgs) runStreaming(path string, spec saf.Blocks) error {
	logf(1, "Streaming through shuffled SAF file from path:\n\t%s", path)
	reader, err := shuffmt.Open(path)
	if err != nil {
		return err
	}
	defer reader.Close()
	if dim := len(reader.Shape()); dim > 6 {
		return fmt.Errorf("only dimensions up to six supported, found %d", dim)
	}
	spec = fitBlocks(spec, reader.Sites())
	initial, runner, err := a.setup(reader.Shape(), reader.Sites(), spec, false)
	if err != nil {
		return err
	}
	_, result, err := runner.RunStream(initial, reader, a.stoppingRule())
	if err != nil {
		return err
	}
	return result.Scale(float64(reader.Sites())).WriteText(os.Stdout)
}
