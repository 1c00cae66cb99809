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
	"runtime"
	"sync"
)

var (
	threadsOnce sync.Once
	threadCount int
)

// SetThreads configures the number of worker goroutines used by the
// parallel e-step. The count can be configured once per process; the
// first call wins and later calls have no effect, as do calls after
// the parallel e-step has already been used. Non-positive values are
// interpreted relative to the number of available CPUs, clamped to
// at least one.
func SetThreads(n int) {
	threadsOnce.Do(func() {
		if n <= 0 {
			n += runtime.NumCPU()
		}
		if n < 1 {
			n = 1
		}
		threadCount = n
	})
}

// Threads returns the configured number of worker goroutines,
// defaulting to the number of available CPUs.
func Threads() int {
	SetThreads(runtime.NumCPU())
	return threadCount
}
