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
	"testing"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

func TestInfestationRange(t *testing.T) {
	const testTolerance = 1.e-12

	infected := sparse.ZerosDense(2, 2)
	infected.Elements = []float64{0, 1, 2, 0}

	rangeGrid, err := InfestationRange(infected, nil, 0.5, 10)
	if err != nil {
		t.Fatal(err)
	}

	// Cells with no infected hosts have no real solution.
	if !math.IsNaN(rangeGrid.Elements[0]) || !math.IsNaN(rangeGrid.Elements[3]) {
		t.Errorf("cells with no infected hosts should be undefined, got %v", rangeGrid.Elements)
	}
	// 10 * sqrt(1*0.5*52 - 1) = 10 * sqrt(25) = 50.
	if v := rangeGrid.Elements[1]; !floats.EqualWithinAbs(v, 50, testTolerance) {
		t.Errorf("range is %g but should be 50", v)
	}
	// 10 * sqrt(2*0.5*52 - 1) = 10 * sqrt(51).
	if v, want := rangeGrid.Elements[2], 10*math.Sqrt(51); !floats.EqualWithinAbs(v, want, testTolerance) {
		t.Errorf("range is %g but should be %g", v, want)
	}

	// The maximum excludes the undefined cells.
	max, err := MaxRange(rangeGrid)
	if err != nil {
		t.Fatal(err)
	}
	if want := 10 * math.Sqrt(51); !floats.EqualWithinAbs(max, want, testTolerance) {
		t.Errorf("maximum range is %g but should be %g", max, want)
	}
}

func TestInfestationRangeWeather(t *testing.T) {
	const testTolerance = 1.e-12

	infected := sparse.ZerosDense(1, 2)
	infected.Elements = []float64{1, 1}
	weather := sparse.ZerosDense(1, 2)
	weather.Elements = []float64{1, 0.5}

	rangeGrid, err := InfestationRange(infected, weather, 0.5, 10)
	if err != nil {
		t.Fatal(err)
	}
	if v := rangeGrid.Elements[0]; !floats.EqualWithinAbs(v, 50, testTolerance) {
		t.Errorf("range is %g but should be 50", v)
	}
	// 10 * sqrt(1*0.5*0.5*52 - 1) = 10 * sqrt(12).
	if v, want := rangeGrid.Elements[1], 10*math.Sqrt(12); !floats.EqualWithinAbs(v, want, testTolerance) {
		t.Errorf("range is %g but should be %g", v, want)
	}
}

func TestInfestationRangeUndefined(t *testing.T) {
	// When the growth model has no real solution anywhere, the range is
	// a detected error rather than a NaN radius.
	infected := sparse.ZerosDense(2, 2)
	if _, err := InfestationRange(infected, nil, 4.4, 10); err == nil {
		t.Error("an everywhere-undefined range should be an error")
	}

	rangeGrid := sparse.ZerosDense(2, 2)
	for i := range rangeGrid.Elements {
		rangeGrid.Elements[i] = math.NaN()
	}
	if _, err := MaxRange(rangeGrid); err == nil {
		t.Error("reducing an all-NaN grid should be an error")
	}
}

func TestInfestationRangeShapeMismatch(t *testing.T) {
	infected := sparse.ZerosDense(2, 2)
	infected.Elements[0] = 1
	weather := sparse.ZerosDense(3, 3)
	if _, err := InfestationRange(infected, weather, 1, 10); err == nil {
		t.Error("mismatched grid shapes should be an error")
	}
}

func TestInfestationRangeNullWeather(t *testing.T) {
	// Null weather cells make the range undefined in those cells only.
	infected := sparse.ZerosDense(1, 2)
	infected.Elements = []float64{1, 1}
	weather := sparse.ZerosDense(1, 2)
	weather.Elements = []float64{math.NaN(), 1}

	rangeGrid, err := InfestationRange(infected, weather, 0.5, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(rangeGrid.Elements[0]) {
		t.Errorf("cell with null weather should be undefined, got %g", rangeGrid.Elements[0])
	}
	if v := rangeGrid.Elements[1]; v != 50 {
		t.Errorf("range is %g but should be 50", v)
	}
}
