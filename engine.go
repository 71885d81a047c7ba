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
	"os"
	"sort"
	"sync"

	"github.com/ctessum/sparse"
)

// A Region describes the extent and cell size of the computational
// region that all grids held by an Engine share.
type Region struct {
	// Rows and Cols are the number of grid cells in the north-south
	// and east-west directions.
	Rows, Cols int

	// EWRes and NSRes are the cell edge lengths in the east-west and
	// north-south directions, in the linear units of the grid
	// projection.
	EWRes, NSRes float64

	// West and South are the coordinates of the lower-left corner of
	// the region.
	West, South float64
}

func (r *Region) check() error {
	if r.Rows < 1 || r.Cols < 1 {
		return fmt.Errorf("pops: region is %d×%d cells but should be at least 1×1", r.Rows, r.Cols)
	}
	if !(r.EWRes > 0) || !(r.NSRes > 0) {
		return fmt.Errorf("pops: region resolution is %g×%g but should be >0", r.EWRes, r.NSRes)
	}
	return nil
}

// An Engine is a raster engine that stores named grids and applies
// convolution filters to them. Named grids are persistent until
// explicitly removed.
type Engine interface {
	// Region returns the computational region shared by all grids.
	Region() (*Region, error)

	// Grid returns the contents of the named grid.
	Grid(name string) (*sparse.DenseArray, error)

	// PutGrid stores data as the named grid, replacing any existing
	// grid with the same name.
	PutGrid(name string, data *sparse.DenseArray) error

	// Remove deletes the named grids. Removing a grid that does not
	// exist is not an error.
	Remove(names ...string) error

	// Filter convolves the input grid with the filter description in
	// the file at filterPath, using up to nprocs concurrent workers,
	// and stores the result as the output grid.
	Filter(input, output, filterPath string, nprocs int) error
}

// InMemoryEngine is an Engine that holds all of its grids in memory.
// It is safe for concurrent use.
type InMemoryEngine struct {
	region Region

	mx    sync.RWMutex
	grids map[string]*sparse.DenseArray
}

// NewInMemoryEngine creates an in-memory raster engine with the given
// computational region.
func NewInMemoryEngine(region Region) (*InMemoryEngine, error) {
	if err := region.check(); err != nil {
		return nil, err
	}
	return &InMemoryEngine{
		region: region,
		grids:  make(map[string]*sparse.DenseArray),
	}, nil
}

// Region returns the computational region.
func (e *InMemoryEngine) Region() (*Region, error) {
	r := e.region
	return &r, nil
}

// Grid returns a copy of the named grid.
func (e *InMemoryEngine) Grid(name string) (*sparse.DenseArray, error) {
	e.mx.RLock()
	defer e.mx.RUnlock()
	g, ok := e.grids[name]
	if !ok {
		return nil, fmt.Errorf("pops: grid %q does not exist", name)
	}
	return g.Copy(), nil
}

// PutGrid stores a copy of data as the named grid. The data shape must
// match the engine region.
func (e *InMemoryEngine) PutGrid(name string, data *sparse.DenseArray) error {
	if data == nil || len(data.Shape) != 2 {
		return fmt.Errorf("pops: grid %q must be 2-dimensional", name)
	}
	if data.Shape[0] != e.region.Rows || data.Shape[1] != e.region.Cols {
		return fmt.Errorf("pops: grid %q is %d×%d but the region is %d×%d",
			name, data.Shape[0], data.Shape[1], e.region.Rows, e.region.Cols)
	}
	e.mx.Lock()
	defer e.mx.Unlock()
	e.grids[name] = data.Copy()
	return nil
}

// Remove deletes the named grids. Grids that don't exist are skipped.
func (e *InMemoryEngine) Remove(names ...string) error {
	e.mx.Lock()
	defer e.mx.Unlock()
	for _, name := range names {
		delete(e.grids, name)
	}
	return nil
}

// Names returns the names of all stored grids in sorted order.
func (e *InMemoryEngine) Names() []string {
	e.mx.RLock()
	defer e.mx.RUnlock()
	names := make([]string, 0, len(e.grids))
	for name := range e.grids {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Filter convolves the input grid with the filter description in the
// file at filterPath and stores the result as the output grid. Each
// output cell is the weighted sum of the in-bounds part of its
// neighborhood; null (NaN) cells neither contribute to their neighbors
// nor receive a result. The result does not depend on nprocs.
func (e *InMemoryEngine) Filter(input, output, filterPath string, nprocs int) error {
	if nprocs < 1 {
		return fmt.Errorf("pops: filter: nprocs is %d but should be >0", nprocs)
	}
	f, err := os.Open(filterPath)
	if err != nil {
		return fmt.Errorf("pops: filter: %v", err)
	}
	defer f.Close()
	_, matrix, err := ReadFilter(f)
	if err != nil {
		return err
	}
	in, err := e.Grid(input)
	if err != nil {
		return err
	}
	return e.PutGrid(output, convolve(in, matrix, nprocs))
}

// convolve computes the weighted neighborhood sum of in under matrix,
// striding rows across nprocs goroutines.
func convolve(in, matrix *sparse.DenseArray, nprocs int) *sparse.DenseArray {
	rows, cols := in.Shape[0], in.Shape[1]
	n := matrix.Shape[0]
	half := n / 2
	out := sparse.ZerosDense(rows, cols)
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for p := 0; p < nprocs; p++ {
		go func(p int) {
			defer wg.Done()
			for i := p; i < rows; i += nprocs {
				for j := 0; j < cols; j++ {
					if math.IsNaN(in.Get(i, j)) {
						out.Elements[i*cols+j] = math.NaN()
						continue
					}
					var sum float64
					for mi := 0; mi < n; mi++ {
						ii := i + mi - half
						if ii < 0 || ii >= rows {
							continue
						}
						for mj := 0; mj < n; mj++ {
							w := matrix.Get(mi, mj)
							if w == 0 {
								continue
							}
							jj := j + mj - half
							if jj < 0 || jj >= cols {
								continue
							}
							v := in.Get(ii, jj)
							if math.IsNaN(v) {
								continue
							}
							sum += w * v
						}
					}
					out.Elements[i*cols+j] = sum
				}
			}
		}(p)
	}
	wg.Wait()
	return out
}
