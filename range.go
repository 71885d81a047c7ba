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
	"fmt"
	"math"

	"github.com/ctessum/sparse"
)

// cyclesPerYear is the number of reproduction cycles per year in the
// weekly epidemiological growth model.
const cyclesPerYear = 52

// InfestationRange returns a grid holding, for each cell, the distance
// that an infestation originating in that cell can be expected to
// travel in one year:
//
//	range = naturalDistance * sqrt(infected * weather * reproductiveRate * 52 - 1)
//
// If weather is nil a coefficient of 1 is used everywhere. Cells where
// the quantity under the square root is negative have no real solution;
// their range is undefined and is set to NaN. An error is returned only
// when the range is undefined in every cell.
func InfestationRange(infected, weather *sparse.DenseArray, reproductiveRate, naturalDistance float64) (*sparse.DenseArray, error) {
	if infected == nil {
		return nil, fmt.Errorf("pops: infestation range: infected grid is nil")
	}
	if weather != nil && len(weather.Elements) != len(infected.Elements) {
		return nil, fmt.Errorf("pops: infestation range: weather and infected grid sizes don't match: %d != %d",
			len(weather.Elements), len(infected.Elements))
	}
	out := sparse.ZerosDense(infected.Shape...)
	defined := 0
	for i, v := range infected.Elements {
		w := 1.
		if weather != nil {
			w = weather.Elements[i]
		}
		radicand := v*w*reproductiveRate*cyclesPerYear - 1
		if !(radicand >= 0) { // negative or NaN
			out.Elements[i] = math.NaN()
			continue
		}
		out.Elements[i] = naturalDistance * math.Sqrt(radicand)
		defined++
	}
	if defined == 0 {
		return nil, fmt.Errorf("pops: infestation range is undefined in every cell: "+
			"infected*weather*%g*%d < 1 everywhere", reproductiveRate, cyclesPerYear)
	}
	return out, nil
}

// MaxRange reduces an infestation range grid to its maximum over all
// cells where the range is defined. Undefined (NaN) cells are excluded
// from the reduction the same way a raster engine excludes nulls from
// grid statistics. An error is returned when no cell is defined.
func MaxRange(rangeGrid *sparse.DenseArray) (float64, error) {
	max := math.Inf(-1)
	for _, v := range rangeGrid.Elements {
		if math.IsNaN(v) {
			continue
		}
		if v > max {
			max = v
		}
	}
	if math.IsInf(max, -1) {
		return 0, fmt.Errorf("pops: infestation range grid has no defined cells")
	}
	return max, nil
}
