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

package em

import (
	"io"
	"math"
	"sync"

	"github.com/SnellerInc/winsfs/ints"
	"github.com/SnellerInc/winsfs/saf"
	"github.com/SnellerInc/winsfs/sfs"
)

// EStep folds sequentially over the sites of v, accumulating the
// posterior counts for each site given the normalised SFS p. It
// returns the summed site log-likelihoods and the unnormalised
// posterior SFS.
func EStep(p *sfs.SFS, v saf.View) (SumOf, *sfs.SFS) {
	posterior := sfs.Zeros(p.Shape())
	buf := sfs.Zeros(p.Shape())
	sum := SumOf{N: v.Sites()}
	for i := 0; i < v.Sites(); i++ {
		sum.Sum += math.Log(SitePosterior(p, v.Site(i), posterior, buf))
	}
	return sum, posterior
}

// ParEStep is EStep fanned out over the configured number of threads.
// Sites are split into balanced contiguous chunks; each task owns a
// posterior and scratch buffer, and the per-task results are reduced
// in chunk order by adding log-likelihoods and posteriors.
func ParEStep(p *sfs.SFS, v saf.View) (SumOf, *sfs.SFS) {
	threads := ints.Clamp(Threads(), 1, ints.Max(v.Sites(), 1))
	if threads == 1 {
		return EStep(p, v)
	}
	bounds := ints.Chunks(v.Sites(), threads)
	tasks := len(bounds) - 1
	sums := make([]SumOf, tasks)
	posteriors := make([]*sfs.SFS, tasks)
	var wg sync.WaitGroup
	wg.Add(tasks)
	for t := 0; t < tasks; t++ {
		go func(t int) {
			defer wg.Done()
			sums[t], posteriors[t] = EStep(p, v.Range(bounds[t], bounds[t+1]))
		}(t)
	}
	wg.Wait()
	sum := sums[0]
	posterior := posteriors[0]
	for t := 1; t < tasks; t++ {
		sum = sum.Add(sums[t])
		posterior.AddAssign(posteriors[t])
	}
	return sum, posterior
}

// LogLikelihood returns the summed site log-likelihoods of v given
// the normalised SFS p, without computing posteriors.
func LogLikelihood(p *sfs.SFS, v saf.View) SumOf {
	sum := SumOf{N: v.Sites()}
	for i := 0; i < v.Sites(); i++ {
		sum.Sum += SiteLogLikelihood(p, v.Site(i))
	}
	return sum
}

// ParLogLikelihood is LogLikelihood fanned out over the configured
// number of threads.
func ParLogLikelihood(p *sfs.SFS, v saf.View) SumOf {
	threads := ints.Clamp(Threads(), 1, ints.Max(v.Sites(), 1))
	if threads == 1 {
		return LogLikelihood(p, v)
	}
	bounds := ints.Chunks(v.Sites(), threads)
	tasks := len(bounds) - 1
	sums := make([]SumOf, tasks)
	var wg sync.WaitGroup
	wg.Add(tasks)
	for t := 0; t < tasks; t++ {
		go func(t int) {
			defer wg.Done()
			sums[t] = LogLikelihood(p, v.Range(bounds[t], bounds[t+1]))
		}(t)
	}
	wg.Wait()
	sum := sums[0]
	for t := 1; t < tasks; t++ {
		sum = sum.Add(sums[t])
	}
	return sum
}

// EmStep performs one full EM step over v: an e-step followed by
// normalisation of the posterior.
func EmStep(p *sfs.SFS, v saf.View) (SumOf, *sfs.SFS) {
	sum, posterior := EStep(p, v)
	return sum, posterior.Normalise()
}

// SiteReader is the contract between the streaming e-step and a
// rewindable site source, satisfied by the pseudo-shuffle reader and
// by the intersecting SAF reader. ReadSite fills buf with one site's
// likelihood values in linear space and reports false when the source
// is exhausted. Rewind repositions the source at its first site.
type SiteReader interface {
	ReadSite(buf []float32) (bool, error)
	Rewind() error
	// Shape returns the per-population widths of the sites read.
	Shape() []int
}

// StreamEStep reads sites one at a time from r, folding exactly as
// EStep does. It returns the log-likelihood sum over the sites read
// and the unnormalised posterior.
func StreamEStep(p *sfs.SFS, r SiteReader) (SumOf, *sfs.SFS, error) {
	posterior := sfs.Zeros(p.Shape())
	buf := sfs.Zeros(p.Shape())
	site := newSiteBuffer(r.Shape())
	var sum SumOf
	for {
		ok, err := r.ReadSite(site.Values())
		if err != nil {
			return SumOf{}, nil, err
		}
		if !ok {
			return sum, posterior, nil
		}
		sum.Sum += math.Log(SitePosterior(p, site, posterior, buf))
		sum.N++
	}
}

// StreamLogLikelihood reads sites one at a time from r, summing site
// log-likelihoods.
func StreamLogLikelihood(p *sfs.SFS, r SiteReader) (SumOf, error) {
	site := newSiteBuffer(r.Shape())
	var sum SumOf
	for {
		ok, err := r.ReadSite(site.Values())
		if err != nil {
			return SumOf{}, err
		}
		if !ok {
			return sum, nil
		}
		sum.Sum += SiteLogLikelihood(p, site)
		sum.N++
	}
}

// streamBlockEStep is StreamEStep limited to the next n sites of r.
// Reading fewer than n sites before the source is exhausted is an
// error: block sizes are materialised against the declared site
// count, so a short read means the source is inconsistent.
func streamBlockEStep(p *sfs.SFS, r SiteReader, n int) (SumOf, *sfs.SFS, error) {
	posterior := sfs.Zeros(p.Shape())
	buf := sfs.Zeros(p.Shape())
	site := newSiteBuffer(r.Shape())
	sum := SumOf{N: n}
	for i := 0; i < n; i++ {
		ok, err := r.ReadSite(site.Values())
		if err != nil {
			return SumOf{}, nil, err
		}
		if !ok {
			return SumOf{}, nil, io.ErrUnexpectedEOF
		}
		sum.Sum += math.Log(SitePosterior(p, site, posterior, buf))
	}
	return sum, posterior, nil
}

func newSiteBuffer(shape []int) saf.Site {
	site, err := saf.NewSite(make([]float32, ints.Sum(shape)), shape)
	if err != nil {
		panic(err)
	}
	return site
}
