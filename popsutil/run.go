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

package popsutil

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/GaryBoone/GoStats/stats"
	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/pops"
)

func init() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
		DisableSorting:  true,
	})
}

// Names that the input rasters are stored under within the engine.
const (
	hostGrid      = "host"
	infectedGrid  = "infected"
	weatherGrid   = "weather"
	potentialGrid = "infestation_potential"
	rangeGrid     = "infestation_range"
)

// Run loads the input rasters, computes infestation potential, and
// writes the infestation potential and infestation range rasters to
// potentialFile and rangeFile. The weather argument may be empty.
func Run(host, infected, weather, potentialFile, rangeFile string, reproductiveRate, naturalDistance float64, nprocs int) error {
	log := logrus.StandardLogger()

	if host == "" || infected == "" {
		return fmt.Errorf("pops: both a host and an infected raster must be specified")
	}
	hostData, region, err := readGridFile(host)
	if err != nil {
		return err
	}
	infectedData, infectedRegion, err := readGridFile(infected)
	if err != nil {
		return err
	}
	if *infectedRegion != *region {
		return fmt.Errorf("pops: the host and infected rasters cover different regions: %+v != %+v", infectedRegion, region)
	}

	engine, err := pops.NewInMemoryEngine(*region)
	if err != nil {
		return err
	}
	if err := engine.PutGrid(hostGrid, hostData); err != nil {
		return err
	}
	if err := engine.PutGrid(infectedGrid, infectedData); err != nil {
		return err
	}
	sim := &pops.Simulation{
		Engine:           engine,
		Host:             hostGrid,
		Infected:         infectedGrid,
		ReproductiveRate: reproductiveRate,
		NaturalDistance:  naturalDistance,
		Nprocs:           nprocs,
		Log:              log,
	}
	if weather != "" {
		weatherData, weatherRegion, err := readGridFile(weather)
		if err != nil {
			return err
		}
		if *weatherRegion != *region {
			return fmt.Errorf("pops: the weather raster covers a different region: %+v != %+v", weatherRegion, region)
		}
		if err := engine.PutGrid(weatherGrid, weatherData); err != nil {
			return err
		}
		sim.Weather = weatherGrid
	}

	log.Infof("Computing infestation potential with reproductive rate %g and natural distance %g", reproductiveRate, naturalDistance)
	if err := sim.Run(potentialGrid, rangeGrid); err != nil {
		return err
	}

	rangeData, err := engine.Grid(rangeGrid)
	if err != nil {
		return err
	}
	if defined := definedCells(rangeData); len(defined) > 0 {
		log.Infof("Infestation range statistics: min=%g mean=%g max=%g",
			stats.StatsMin(defined), stats.StatsMean(defined), stats.StatsMax(defined))
	}
	potentialData, err := engine.Grid(potentialGrid)
	if err != nil {
		return err
	}

	if err := writeGridFile(rangeFile, rangeData, region); err != nil {
		return err
	}
	if err := writeGridFile(potentialFile, potentialData, region); err != nil {
		return err
	}
	log.Infof("Wrote %s and %s", potentialFile, rangeFile)
	return nil
}

// definedCells returns the values of all non-null cells.
func definedCells(data *sparse.DenseArray) []float64 {
	var o []float64
	for _, v := range data.Elements {
		if !math.IsNaN(v) {
			o = append(o, v)
		}
	}
	return o
}

func readGridFile(path string) (*sparse.DenseArray, *pops.Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("pops: opening raster: %v", err)
	}
	defer f.Close()
	data, region, err := pops.ReadASCIIGrid(f)
	if err != nil {
		return nil, nil, fmt.Errorf("pops: reading raster %s: %v", path, err)
	}
	return data, region, nil
}

func writeGridFile(path string, data *sparse.DenseArray, region *pops.Region) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("pops: creating raster: %v", err)
	}
	if err := pops.WriteASCIIGrid(f, data, region); err != nil {
		f.Close()
		return fmt.Errorf("pops: writing raster %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("pops: writing raster %s: %v", path, err)
	}
	return nil
}
