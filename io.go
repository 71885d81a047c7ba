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
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ctessum/sparse"
)

// asciiNoData is the NODATA marker used when writing ASCII grids.
const asciiNoData = -9999.

// ReadASCIIGrid reads a raster in ESRI ASCII grid format, returning the
// cell values (north to south) and the region the raster covers. Both
// the square-cell header (cellsize) and the rectangular-cell header
// (dx and dy) are accepted. Cells equal to the NODATA value are read
// as NaN.
func ReadASCIIGrid(r io.Reader) (*sparse.DenseArray, *Region, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024), 16*1024*1024)
	scanner.Split(bufio.ScanWords)
	next := func() (string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", io.ErrUnexpectedEOF
		}
		return scanner.Text(), nil
	}

	// The header is a sequence of keyword-value pairs; the first token
	// that parses as a number begins the cell values.
	header := make(map[string]float64)
	var firstValue float64
	for {
		tok, err := next()
		if err != nil {
			return nil, nil, fmt.Errorf("pops: reading ASCII grid header: %v", err)
		}
		if v, err := strconv.ParseFloat(tok, 64); err == nil {
			firstValue = v
			break
		}
		val, err := next()
		if err != nil {
			return nil, nil, fmt.Errorf("pops: reading ASCII grid header %q: %v", tok, err)
		}
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("pops: reading ASCII grid header %q: %v", tok, err)
		}
		header[strings.ToLower(tok)] = v
	}

	region := &Region{
		Rows:  int(header["nrows"]),
		Cols:  int(header["ncols"]),
		West:  header["xllcorner"],
		South: header["yllcorner"],
	}
	if cellsize, ok := header["cellsize"]; ok {
		region.EWRes = cellsize
		region.NSRes = cellsize
	} else {
		region.EWRes = header["dx"]
		region.NSRes = header["dy"]
	}
	if err := region.check(); err != nil {
		return nil, nil, err
	}
	noData, hasNoData := header["nodata_value"]

	data := sparse.ZerosDense(region.Rows, region.Cols)
	for i := range data.Elements {
		v := firstValue
		if i > 0 {
			tok, err := next()
			if err != nil {
				return nil, nil, fmt.Errorf("pops: reading ASCII grid cell %d of %d: %v", i, len(data.Elements), err)
			}
			v, err = strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("pops: reading ASCII grid cell %d: %v", i, err)
			}
		}
		if hasNoData && v == noData {
			v = math.NaN()
		}
		data.Elements[i] = v
	}
	return data, region, nil
}

// WriteASCIIGrid writes a raster in ESRI ASCII grid format. NaN cells
// are written as the NODATA value.
func WriteASCIIGrid(w io.Writer, data *sparse.DenseArray, region *Region) error {
	if data == nil || len(data.Shape) != 2 {
		return fmt.Errorf("pops: writing ASCII grid: data must be 2-dimensional")
	}
	if err := region.check(); err != nil {
		return err
	}
	if data.Shape[0] != region.Rows || data.Shape[1] != region.Cols {
		return fmt.Errorf("pops: writing ASCII grid: data is %d×%d but the region is %d×%d",
			data.Shape[0], data.Shape[1], region.Rows, region.Cols)
	}
	b := bufio.NewWriter(w)
	fmt.Fprintf(b, "ncols %d\n", region.Cols)
	fmt.Fprintf(b, "nrows %d\n", region.Rows)
	fmt.Fprintf(b, "xllcorner %s\n", strconv.FormatFloat(region.West, 'g', -1, 64))
	fmt.Fprintf(b, "yllcorner %s\n", strconv.FormatFloat(region.South, 'g', -1, 64))
	if region.EWRes == region.NSRes {
		fmt.Fprintf(b, "cellsize %s\n", strconv.FormatFloat(region.EWRes, 'g', -1, 64))
	} else {
		fmt.Fprintf(b, "dx %s\n", strconv.FormatFloat(region.EWRes, 'g', -1, 64))
		fmt.Fprintf(b, "dy %s\n", strconv.FormatFloat(region.NSRes, 'g', -1, 64))
	}
	fmt.Fprintf(b, "NODATA_value %s\n", strconv.FormatFloat(asciiNoData, 'g', -1, 64))
	for i := 0; i < region.Rows; i++ {
		for j := 0; j < region.Cols; j++ {
			if j > 0 {
				b.WriteByte(' ')
			}
			v := data.Get(i, j)
			if math.IsNaN(v) {
				v = asciiNoData
			}
			b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		b.WriteByte('\n')
	}
	if err := b.Flush(); err != nil {
		return fmt.Errorf("pops: writing ASCII grid: %v", err)
	}
	return nil
}
