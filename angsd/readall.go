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

package angsd

import (
	"github.com/SnellerInc/winsfs/saf"
)

// ReadAll reads every intersecting site into an in-memory SAF matrix
// in linear space. The total site count of the smallest input is used
// as a capacity hint; the intersection can only be smaller.
func (in *Intersect) ReadAll() (*saf.Saf, error) {
	shape := in.Shape()
	width := in.Width()

	hint := in.readers[0].Index().TotalSites()
	for _, r := range in.readers[1:] {
		if t := r.Index().TotalSites(); t < hint {
			hint = t
		}
	}
	vals := make([]float32, 0, hint*width)
	buf := make([]float32, width)
	for {
		ok, err := in.ReadSite(buf)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		vals = append(vals, buf...)
	}
	return saf.New(vals, shape)
}
