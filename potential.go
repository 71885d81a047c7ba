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
	"gonum.org/v1/gonum/floats"
)

// Potential composes the final infestation potential from the infected
// host counts, the weather coefficients, and the filtered susceptible
// host grid:
//
//	potential = infected * weather * convolved
//
// elementwise over all cells. If weather is nil a coefficient of 1 is
// used everywhere.
func Potential(infected, weather, convolved *sparse.DenseArray) *sparse.DenseArray {
	out := convolved.Copy()
	floats.Mul(out.Elements, infected.Elements)
	if weather != nil {
		floats.Mul(out.Elements, weather.Elements)
	}
	return out
}

// absDifference returns abs(host - infected), the number of susceptible
// hosts per cell that the dispersal kernel is applied to.
func absDifference(host, infected *sparse.DenseArray) *sparse.DenseArray {
	out := sparse.ZerosDense(host.Shape...)
	for i, h := range host.Elements {
		out.Elements[i] = math.Abs(h - infected.Elements[i])
	}
	return out
}
