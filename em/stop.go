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
	"math"

	"github.com/SnellerInc/winsfs/sfs"
)

// StoppingRule decides when the EM driver loop terminates. Stop is
// called once after each EM step with the step status and the current
// normalised estimate; rules are stateful and must not be reused
// across runs.
type StoppingRule interface {
	Stop(status Status, estimate *sfs.SFS) bool
}

// Steps stops after a fixed number of EM steps.
type Steps struct {
	current int
	max     int
}

// NewSteps returns a rule stopping after max steps.
func NewSteps(max int) *Steps {
	return &Steps{max: max}
}

// CurrentStep returns the number of steps taken so far.
func (s *Steps) CurrentStep() int { return s.current }

// Stop implements StoppingRule.
func (s *Steps) Stop(Status, *sfs.SFS) bool {
	s.current++
	return s.current >= s.max
}

// LogLikelihoodTolerance stops once the absolute difference in
// successive per-site normalised log-likelihoods falls within a
// tolerance. The initial comparison value is -Inf, so the rule cannot
// fire before the second step.
type LogLikelihoodTolerance struct {
	prev      float64
	absDiff   float64
	tolerance float64
}

// NewLogLikelihoodTolerance returns a rule with the given tolerance.
func NewLogLikelihoodTolerance(tolerance float64) *LogLikelihoodTolerance {
	return &LogLikelihoodTolerance{
		prev:      math.Inf(-1),
		absDiff:   math.Inf(1),
		tolerance: tolerance,
	}
}

// AbsoluteDifference returns the most recent absolute difference.
func (l *LogLikelihoodTolerance) AbsoluteDifference() float64 { return l.absDiff }

// LogLikelihood returns the most recent per-site log-likelihood.
func (l *LogLikelihoodTolerance) LogLikelihood() float64 { return l.prev }

func (l *LogLikelihoodTolerance) stop(next float64) bool {
	l.absDiff = math.Abs(next - l.prev)
	l.prev = next
	return l.absDiff <= l.tolerance
}

// Stop implements StoppingRule.
func (l *LogLikelihoodTolerance) Stop(status Status, _ *sfs.SFS) bool {
	return l.stop(status.LogLikelihood().Normalise())
}

// WindowLogLikelihoodTolerance is LogLikelihoodTolerance applied to
// the window EM status: the scalar compared across steps is the sum
// over blocks of per-site normalised block log-likelihoods.
type WindowLogLikelihoodTolerance struct {
	inner LogLikelihoodTolerance
}

// NewWindowLogLikelihoodTolerance returns a rule with the given
// tolerance.
func NewWindowLogLikelihoodTolerance(tolerance float64) *WindowLogLikelihoodTolerance {
	return &WindowLogLikelihoodTolerance{inner: *NewLogLikelihoodTolerance(tolerance)}
}

// AbsoluteDifference returns the most recent absolute difference.
func (w *WindowLogLikelihoodTolerance) AbsoluteDifference() float64 {
	return w.inner.AbsoluteDifference()
}

// LogLikelihood returns the most recent window log-likelihood.
func (w *WindowLogLikelihoodTolerance) LogLikelihood() float64 { return w.inner.LogLikelihood() }

// Stop implements StoppingRule.
func (w *WindowLogLikelihoodTolerance) Stop(status Status, _ *sfs.SFS) bool {
	return w.inner.stop(status.WindowLogLikelihood())
}

// Both combines two rules, stopping only when both have stopped.
// Each inner rule is always evaluated so that stateful rules keep
// counting.
type Both struct {
	a, b StoppingRule
}

// NewBoth returns the conjunction of a and b.
func NewBoth(a, b StoppingRule) *Both { return &Both{a: a, b: b} }

// Stop implements StoppingRule.
func (r *Both) Stop(status Status, estimate *sfs.SFS) bool {
	a := r.a.Stop(status, estimate)
	b := r.b.Stop(status, estimate)
	return a && b
}

// Either combines two rules, stopping as soon as either has stopped.
// Each inner rule is always evaluated so that stateful rules keep
// counting.
type Either struct {
	a, b StoppingRule
}

// NewEither returns the disjunction of a and b.
func NewEither(a, b StoppingRule) *Either { return &Either{a: a, b: b} }

// Stop implements StoppingRule.
func (r *Either) Stop(status Status, estimate *sfs.SFS) bool {
	a := r.a.Stop(status, estimate)
	b := r.b.Stop(status, estimate)
	return a || b
}
