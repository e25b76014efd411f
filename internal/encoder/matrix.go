package encoder

import (
	"errors"
	"fmt"
)

// MinSize is the side of a version 1 symbol.
const MinSize = 21

// Matrix is an immutable N×N grid of modules; true means dark.
type Matrix struct {
	size    int
	modules []bool
}

// NewMatrix copies rows into a Matrix after checking that they form a valid
// QR symbol: square, odd side, at least 21 modules.
func NewMatrix(rows [][]bool) (*Matrix, error) {
	n := len(rows)
	if n < MinSize {
		return nil, fmt.Errorf("matrix too small: %d modules", n)
	}
	if n%2 == 0 {
		return nil, fmt.Errorf("matrix side must be odd, got %d", n)
	}
	m := &Matrix{size: n, modules: make([]bool, n*n)}
	for y, row := range rows {
		if len(row) != n {
			return nil, errors.New("matrix is not square")
		}
		copy(m.modules[y*n:(y+1)*n], row)
	}
	return m, nil
}

// Size returns the number of modules per side.
func (m *Matrix) Size() int { return m.size }

// Dark reports whether the module at column x, row y is dark. Out-of-range
// coordinates are light.
func (m *Matrix) Dark(x, y int) bool {
	if x < 0 || y < 0 || x >= m.size || y >= m.size {
		return false
	}
	return m.modules[y*m.size+x]
}

// DarkCount returns the number of dark modules.
func (m *Matrix) DarkCount() int {
	n := 0
	for _, v := range m.modules {
		if v {
			n++
		}
	}
	return n
}

// trimQuietZone drops a uniform light border of border modules on each side.
func trimQuietZone(rows [][]bool, border int) [][]bool {
	if border <= 0 || len(rows) <= 2*border {
		return rows
	}
	out := make([][]bool, 0, len(rows)-2*border)
	for _, row := range rows[border : len(rows)-border] {
		out = append(out, row[border:len(row)-border])
	}
	return out
}
