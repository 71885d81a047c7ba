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

// Package pops estimates the potential for a pest or pathogen to spread
// from infected hosts to susceptible hosts across a gridded landscape.
//
// The model derives a maximum dispersal range from an epidemiological
// growth model, builds a radially symmetric dispersal kernel covering
// that range, and applies the kernel to the susceptible host population
// as a neighborhood filter. The filtering itself is delegated to a
// raster engine implementing the Engine interface; everything else is
// computed here.
package pops

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
)

// Version gives the version number.
const Version = "0.1.0"

// A Simulation holds the inputs for one infestation potential
// calculation. Simulations sharing an Engine may run concurrently.
type Simulation struct {
	// Engine stores the named grids and performs neighborhood filtering.
	Engine Engine

	// Host and Infected are the names of the grids holding the number
	// of hosts and the number of infected hosts per cell.
	Host, Infected string

	// Weather is the name of an optional grid of average weather
	// coefficients. If Weather is empty, a coefficient of 1 is used
	// everywhere.
	Weather string

	// ReproductiveRate is the number of spores or pest units produced
	// by a single host per reproduction cycle.
	ReproductiveRate float64

	// NaturalDistance is the distance parameter for dispersal, in the
	// same linear units as the grid resolution.
	NaturalDistance float64

	// Nprocs is the degree of parallelism requested from the Engine
	// for the filtering step.
	Nprocs int

	// Log receives progress messages. If Log is nil the logrus
	// standard logger is used.
	Log logrus.FieldLogger
}

func (s *Simulation) check() error {
	if s.Engine == nil {
		return fmt.Errorf("pops: no raster engine was specified")
	}
	if s.Host == "" || s.Infected == "" {
		return fmt.Errorf("pops: both a host and an infected grid must be specified")
	}
	if !(s.ReproductiveRate > 0) {
		return fmt.Errorf("pops: reproductive rate is %g but should be >0", s.ReproductiveRate)
	}
	if !(s.NaturalDistance > 0) {
		return fmt.Errorf("pops: natural distance is %g but should be >0", s.NaturalDistance)
	}
	if s.Nprocs < 1 {
		return fmt.Errorf("pops: nprocs is %d but should be >0", s.Nprocs)
	}
	return nil
}

func (s *Simulation) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

// Run calculates the infestation potential, storing the result in the
// grid named infestationPotential. The intermediate infestation range
// grid, whose maximum determines the dispersal kernel radius, is itself
// a model output and is stored in the grid named infestationRange.
//
// The calculation is a strict linear pipeline; any failure is fatal and
// leaves neither output behind. Transient grids and the transient
// filter file are removed on every exit path.
func (s *Simulation) Run(infestationPotential, infestationRange string) (err error) {
	if err := s.check(); err != nil {
		return err
	}
	log := s.logger()

	region, err := s.Engine.Region()
	if err != nil {
		return fmt.Errorf("pops: querying computational region: %v", err)
	}
	if err := region.check(); err != nil {
		return err
	}
	host, err := s.Engine.Grid(s.Host)
	if err != nil {
		return fmt.Errorf("pops: reading host grid: %v", err)
	}
	infected, err := s.Engine.Grid(s.Infected)
	if err != nil {
		return fmt.Errorf("pops: reading infected grid: %v", err)
	}
	var weather *sparse.DenseArray
	if s.Weather != "" {
		weather, err = s.Engine.Grid(s.Weather)
		if err != nil {
			return fmt.Errorf("pops: reading weather grid: %v", err)
		}
	}
	if err := sameShape(host, infected, weather); err != nil {
		return err
	}

	rangeGrid, err := InfestationRange(infected, weather, s.ReproductiveRate, s.NaturalDistance)
	if err != nil {
		return err
	}
	if err := s.Engine.PutGrid(infestationRange, rangeGrid); err != nil {
		return fmt.Errorf("pops: storing infestation range grid: %v", err)
	}
	// The range grid is both a final output and the source of the kernel
	// radius. If a later stage fails, remove it again so that a failed
	// run produces neither output.
	defer func() {
		if err != nil {
			s.Engine.Remove(infestationRange)
		}
	}()

	maxRange, err := MaxRange(rangeGrid)
	if err != nil {
		return err
	}
	log.Infof("Maximum infestation range is %g", maxRange)

	kernel := DispersalKernel(maxRange, s.NaturalDistance, region.EWRes, region.NSRes)

	f, err := os.CreateTemp("", "pops_filter_")
	if err != nil {
		return fmt.Errorf("pops: creating filter file: %v", err)
	}
	defer os.Remove(f.Name())
	if err := WriteFilter(f, "infestation potential", kernel); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("pops: writing filter file: %v", err)
	}

	filterIn := tmpName("pops_filter_in")
	filterOut := tmpName("pops_filter_out")
	defer s.Engine.Remove(filterIn, filterOut)

	if err := s.Engine.PutGrid(filterIn, absDifference(host, infected)); err != nil {
		return fmt.Errorf("pops: storing susceptible host grid: %v", err)
	}
	if err := s.Engine.Filter(filterIn, filterOut, f.Name(), s.Nprocs); err != nil {
		return fmt.Errorf("pops: filtering susceptible host grid: %v", err)
	}
	convolved, err := s.Engine.Grid(filterOut)
	if err != nil {
		return fmt.Errorf("pops: reading filtered grid: %v", err)
	}

	if err := s.Engine.PutGrid(infestationPotential, Potential(infected, weather, convolved)); err != nil {
		return fmt.Errorf("pops: storing infestation potential grid: %v", err)
	}
	return nil
}

// sameShape checks that all of the (non-nil) grids have identical shapes.
func sameShape(grids ...*sparse.DenseArray) error {
	var first *sparse.DenseArray
	for _, g := range grids {
		if g == nil {
			continue
		}
		if first == nil {
			first = g
			continue
		}
		if len(g.Shape) != len(first.Shape) {
			return fmt.Errorf("pops: input grid dimensions don't match: %d != %d", len(g.Shape), len(first.Shape))
		}
		for i, n := range g.Shape {
			if n != first.Shape[i] {
				return fmt.Errorf("pops: input grid shapes don't match: %v != %v", g.Shape, first.Shape)
			}
		}
	}
	return nil
}

var tmpIndex uint64

// tmpName returns a grid name that is unique within this process, so
// concurrent simulations sharing an engine don't collide.
func tmpName(prefix string) string {
	return fmt.Sprintf("%s_%d_%d", prefix, os.Getpid(), atomic.AddUint64(&tmpIndex, 1))
}
