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
	"reflect"
	"testing"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// testSimulation builds an engine holding a small landscape with a
// single infected cell in the middle.
func testSimulation(t *testing.T) (*Simulation, *InMemoryEngine) {
	t.Helper()
	engine, err := NewInMemoryEngine(testRegion(5, 5))
	if err != nil {
		t.Fatal(err)
	}
	host := sparse.ZerosDense(5, 5)
	for i := range host.Elements {
		host.Elements[i] = 100
	}
	infected := sparse.ZerosDense(5, 5)
	infected.Set(20, 2, 2)
	if err := engine.PutGrid("host", host); err != nil {
		t.Fatal(err)
	}
	if err := engine.PutGrid("infected", infected); err != nil {
		t.Fatal(err)
	}
	return &Simulation{
		Engine:           engine,
		Host:             "host",
		Infected:         "infected",
		ReproductiveRate: 0.005,
		NaturalDistance:  10,
		Nprocs:           2,
	}, engine
}

func TestSimulationRun(t *testing.T) {
	const testTolerance = 1.e-12

	sim, engine := testSimulation(t)
	if err := sim.Run("potential", "range"); err != nil {
		t.Fatal(err)
	}

	// Only the inputs and the two outputs remain; the transient grids
	// have been removed.
	want := []string{"host", "infected", "potential", "range"}
	if names := engine.Names(); !reflect.DeepEqual(names, want) {
		t.Errorf("engine holds grids %v but should hold %v", names, want)
	}

	// The range output matches the growth model: only the infected cell
	// is defined, with range 10*sqrt(20*0.005*52-1) = 10*sqrt(4.2).
	rangeGrid, err := engine.Grid("range")
	if err != nil {
		t.Fatal(err)
	}
	infected, err := engine.Grid("infected")
	if err != nil {
		t.Fatal(err)
	}
	wantRange, err := InfestationRange(infected, nil, sim.ReproductiveRate, sim.NaturalDistance)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range wantRange.Elements {
		got := rangeGrid.Elements[i]
		if v != got && !(v != v && got != got) { // NaN-aware comparison
			t.Fatalf("range cell %d is %g but should be %g", i, got, v)
		}
	}

	// The potential output equals infected*convolved(abs(host-infected))
	// computed by hand.
	maxRange, err := MaxRange(wantRange)
	if err != nil {
		t.Fatal(err)
	}
	kernel := DispersalKernel(maxRange, sim.NaturalDistance, 10, 10)
	host, err := engine.Grid("host")
	if err != nil {
		t.Fatal(err)
	}
	wantPotential := Potential(infected, nil, convolve(absDifference(host, infected), kernel, 1))
	potential, err := engine.Grid("potential")
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range wantPotential.Elements {
		if !floats.EqualWithinAbs(potential.Elements[i], v, testTolerance) {
			t.Fatalf("potential cell %d is %g but should be %g", i, potential.Elements[i], v)
		}
	}
}

func TestSimulationRunWeather(t *testing.T) {
	sim, engine := testSimulation(t)
	weather := sparse.ZerosDense(5, 5)
	for i := range weather.Elements {
		weather.Elements[i] = 0.75
	}
	if err := engine.PutGrid("weather", weather); err != nil {
		t.Fatal(err)
	}
	sim.Weather = "weather"
	if err := sim.Run("potential", "range"); err != nil {
		t.Fatal(err)
	}
	rangeGrid, err := engine.Grid("range")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := MaxRange(rangeGrid); err != nil {
		t.Error(err)
	}
}

func TestSimulationCheck(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Simulation)
	}{
		{"no engine", func(s *Simulation) { s.Engine = nil }},
		{"no host", func(s *Simulation) { s.Host = "" }},
		{"no infected", func(s *Simulation) { s.Infected = "" }},
		{"zero rate", func(s *Simulation) { s.ReproductiveRate = 0 }},
		{"negative distance", func(s *Simulation) { s.NaturalDistance = -1 }},
		{"zero nprocs", func(s *Simulation) { s.Nprocs = 0 }},
	}
	for _, c := range cases {
		sim, _ := testSimulation(t)
		c.mutate(sim)
		if err := sim.Run("potential", "range"); err == nil {
			t.Errorf("%s: Run should fail", c.name)
		}
	}
}

// failingEngine fails every filter call.
type failingEngine struct {
	*InMemoryEngine
}

func (e *failingEngine) Filter(input, output, filterPath string, nprocs int) error {
	return fmt.Errorf("filter failed")
}

func TestSimulationRunFailure(t *testing.T) {
	sim, engine := testSimulation(t)
	sim.Engine = &failingEngine{engine}

	if err := sim.Run("potential", "range"); err == nil {
		t.Fatal("Run should fail when the engine fails")
	}

	// A failed run leaves neither output nor transient grids behind.
	want := []string{"host", "infected"}
	if names := engine.Names(); !reflect.DeepEqual(names, want) {
		t.Errorf("engine holds grids %v after a failed run but should hold %v", names, want)
	}
}

func TestSimulationRunMissingGrid(t *testing.T) {
	sim, _ := testSimulation(t)
	sim.Infected = "missing"
	if err := sim.Run("potential", "range"); err == nil {
		t.Error("Run should fail when an input grid is missing")
	}
}

func TestTmpName(t *testing.T) {
	a := tmpName("x")
	b := tmpName("x")
	if a == b {
		t.Errorf("temporary names should be unique: %q == %q", a, b)
	}
}
