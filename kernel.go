/*
Copyright © 2023 the PoPS authors.
This file is part of PoPS.

PoPS is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

PoPS is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with PoPS.  If not, see <http://www.gnu.org/licenses/>.
*/

package pops

import (
	"math"

	"github.com/ctessum/sparse"
)

// DispersalKernel builds the square, radially symmetric weight matrix
// modeling how infection pressure decays with distance.
//
// The matrix half-width is ceil(maxRange/min(ewres, nsres)), using the
// finer of the two resolutions so the matrix covers the full range in
// both directions. The average of the two resolutions converts matrix
// offsets into distance; this is exact for square cells and an
// approximation otherwise. A cell at distance d ≤ maxRange from the
// center gets weight 1/(d² + naturalDistance²), except that the center
// cell and all cells in the cardinal directions carry no weight. The
// matrix is not normalized; it is meant to be applied with divisor 1.
func DispersalKernel(maxRange, naturalDistance, ewres, nsres float64) *sparse.DenseArray {
	halfwidth := int(math.Ceil(maxRange / math.Min(ewres, nsres)))
	resolution := (ewres + nsres) / 2
	size := 2*halfwidth + 1
	matrix := sparse.ZerosDense(size, size)
	center := halfwidth
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			if i == center || j == center {
				continue
			}
			di := float64(i - center)
			dj := float64(j - center)
			dist := math.Sqrt(di*di+dj*dj) * resolution
			if dist <= maxRange {
				matrix.Set(1/(dist*dist+naturalDistance*naturalDistance), i, j)
			}
		}
	}
	return matrix
}
