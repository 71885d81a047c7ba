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
	"strconv"
	"strings"

	"github.com/ctessum/sparse"
)

// WriteFilter writes matrix to w as a convolution filter description in
// the line-based format consumed by raster neighborhood filters:
//
//	TITLE <title>
//	MATRIX <N>
//	<N rows of N space-separated weights, each row with a trailing space>
//	DIVISOR 1
//	TYPE P
//
// The divisor and type are fixed: the filter is applied as a raw
// floating-point weighted sum with no normalization.
func WriteFilter(w io.Writer, title string, matrix *sparse.DenseArray) error {
	if matrix == nil || len(matrix.Shape) != 2 || matrix.Shape[0] != matrix.Shape[1] {
		return fmt.Errorf("pops: writing filter: matrix must be 2-dimensional and square")
	}
	n := matrix.Shape[0]
	b := bufio.NewWriter(w)
	fmt.Fprintf(b, "TITLE %s\n", title)
	fmt.Fprintf(b, "MATRIX %d\n", n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			b.WriteString(strconv.FormatFloat(matrix.Get(i, j), 'g', -1, 64))
			b.WriteByte(' ')
		}
		b.WriteByte('\n')
	}
	b.WriteString("DIVISOR 1\n")
	b.WriteString("TYPE P\n")
	if err := b.Flush(); err != nil {
		return fmt.Errorf("pops: writing filter: %v", err)
	}
	return nil
}

// ReadFilter parses a filter description in the format written by
// WriteFilter, returning the title and the weight matrix.
func ReadFilter(r io.Reader) (string, *sparse.DenseArray, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024), 16*1024*1024) // rows of large kernels can be long
	readLine := func() (string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}
			return "", io.ErrUnexpectedEOF
		}
		return scanner.Text(), nil
	}

	line, err := readLine()
	if err != nil {
		return "", nil, fmt.Errorf("pops: reading filter title: %v", err)
	}
	if !strings.HasPrefix(line, "TITLE ") {
		return "", nil, fmt.Errorf("pops: reading filter: expected TITLE line but got %q", line)
	}
	title := strings.TrimPrefix(line, "TITLE ")

	line, err = readLine()
	if err != nil {
		return "", nil, fmt.Errorf("pops: reading filter size: %v", err)
	}
	if !strings.HasPrefix(line, "MATRIX ") {
		return "", nil, fmt.Errorf("pops: reading filter: expected MATRIX line but got %q", line)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(line, "MATRIX "))
	if err != nil || n < 1 || n%2 == 0 {
		return "", nil, fmt.Errorf("pops: reading filter: invalid matrix size %q", strings.TrimPrefix(line, "MATRIX "))
	}

	matrix := sparse.ZerosDense(n, n)
	for i := 0; i < n; i++ {
		line, err = readLine()
		if err != nil {
			return "", nil, fmt.Errorf("pops: reading filter row %d: %v", i, err)
		}
		fields := strings.Fields(line)
		if len(fields) != n {
			return "", nil, fmt.Errorf("pops: reading filter row %d: got %d weights but expected %d", i, len(fields), n)
		}
		for j, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return "", nil, fmt.Errorf("pops: reading filter row %d: %v", i, err)
			}
			matrix.Set(v, i, j)
		}
	}

	line, err = readLine()
	if err != nil {
		return "", nil, fmt.Errorf("pops: reading filter divisor: %v", err)
	}
	if line != "DIVISOR 1" {
		return "", nil, fmt.Errorf("pops: reading filter: expected \"DIVISOR 1\" but got %q", line)
	}
	line, err = readLine()
	if err != nil {
		return "", nil, fmt.Errorf("pops: reading filter type: %v", err)
	}
	if line != "TYPE P" {
		return "", nil, fmt.Errorf("pops: reading filter: expected \"TYPE P\" but got %q", line)
	}
	return title, matrix, nil
}
