// Package matrix implements dense byte matrix algebra over GF(2^8), the
// building block for the Reed-Solomon generator matrix.
package matrix

import (
	"errors"
	"fmt"

	"github.com/claunia/reedsolomon/galois"
)

// ErrIndexOutOfRange is returned by Get/Set/GetRow/SwapRows for an
// out-of-bounds row or column index. It indicates a caller invariant
// violation and should be unreachable in correct use.
var ErrIndexOutOfRange = errors.New("matrix: index out of range")

// ErrShapeMismatch is returned by Times/Augment when operand shapes are
// not conformable.
var ErrShapeMismatch = errors.New("matrix: shape mismatch")

// ErrSingular is returned by Invert when the matrix has no inverse.
var ErrSingular = errors.New("matrix: singular matrix")

// Matrix is a dense rows x columns grid of GF(2^8) elements stored
// row-major in a single flat slice.
type Matrix struct {
	rows, cols int
	data       []byte
}

// New constructs a rows x columns matrix of zeros.
func New(rows, cols int) *Matrix {
	if rows <= 0 || cols <= 0 {
		panic(fmt.Sprintf("matrix: invalid shape %dx%d", rows, cols))
	}
	return &Matrix{rows: rows, cols: cols, data: make([]byte, rows*cols)}
}

// NewFromRows constructs a matrix from a slice of equal-length rows.
func NewFromRows(rows [][]byte) (*Matrix, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("matrix: %w: empty matrix", ErrShapeMismatch)
	}
	cols := len(rows[0])
	m := New(len(rows), cols)
	for r, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("matrix: %w: row %d has %d columns, want %d", ErrShapeMismatch, r, len(row), cols)
		}
		copy(m.data[r*cols:(r+1)*cols], row)
	}
	return m, nil
}

// Identity returns the n x n identity matrix.
func Identity(n int) *Matrix {
	m := New(n, n)
	for i := 0; i < n; i++ {
		m.data[i*n+i] = 1
	}
	return m
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.rows }

// Columns returns the number of columns.
func (m *Matrix) Columns() int { return m.cols }

func (m *Matrix) bounds(r, c int) error {
	if r < 0 || r >= m.rows || c < 0 || c >= m.cols {
		return fmt.Errorf("matrix: %w: (%d,%d) for %dx%d matrix", ErrIndexOutOfRange, r, c, m.rows, m.cols)
	}
	return nil
}

// Get returns the element at (r, c).
func (m *Matrix) Get(r, c int) (byte, error) {
	if err := m.bounds(r, c); err != nil {
		return 0, err
	}
	return m.data[r*m.cols+c], nil
}

// get is the unchecked, hot-path form of Get used internally once bounds
// are known to be valid.
func (m *Matrix) get(r, c int) byte {
	return m.data[r*m.cols+c]
}

// Set assigns the element at (r, c).
func (m *Matrix) Set(r, c int, v byte) error {
	if err := m.bounds(r, c); err != nil {
		return err
	}
	m.data[r*m.cols+c] = v
	return nil
}

// GetRow returns a copy of row r.
func (m *Matrix) GetRow(r int) ([]byte, error) {
	if r < 0 || r >= m.rows {
		return nil, fmt.Errorf("matrix: %w: row %d for %dx%d matrix", ErrIndexOutOfRange, r, m.rows, m.cols)
	}
	row := make([]byte, m.cols)
	copy(row, m.data[r*m.cols:(r+1)*m.cols])
	return row, nil
}

// rowSlice returns the live backing slice for row r, for internal use only.
func (m *Matrix) rowSlice(r int) []byte {
	return m.data[r*m.cols : (r+1)*m.cols]
}

// Times returns m * other, with addition = XOR and multiplication over
// GF(2^8).
func (m *Matrix) Times(other *Matrix) (*Matrix, error) {
	if m.cols != other.rows {
		return nil, fmt.Errorf("matrix: %w: %dx%d times %dx%d", ErrShapeMismatch, m.rows, m.cols, other.rows, other.cols)
	}
	out := New(m.rows, other.cols)
	for r := 0; r < m.rows; r++ {
		for c := 0; c < other.cols; c++ {
			var sum byte
			for k := 0; k < m.cols; k++ {
				sum ^= galois.Multiply(m.get(r, k), other.get(k, c))
			}
			out.data[r*out.cols+c] = sum
		}
	}
	return out, nil
}

// Augment returns the horizontal concatenation of m and right.
func (m *Matrix) Augment(right *Matrix) (*Matrix, error) {
	if m.rows != right.rows {
		return nil, fmt.Errorf("matrix: %w: augment %dx%d with %dx%d", ErrShapeMismatch, m.rows, m.cols, right.rows, right.cols)
	}
	out := New(m.rows, m.cols+right.cols)
	for r := 0; r < m.rows; r++ {
		copy(out.rowSlice(r), m.rowSlice(r))
		copy(out.rowSlice(r)[m.cols:], right.rowSlice(r))
	}
	return out, nil
}

// SubMatrix returns the half-open row/column range [rmin,rmax) x [cmin,cmax).
func (m *Matrix) SubMatrix(rmin, cmin, rmax, cmax int) (*Matrix, error) {
	if rmin < 0 || cmin < 0 || rmax > m.rows || cmax > m.cols || rmin >= rmax || cmin >= cmax {
		return nil, fmt.Errorf("matrix: %w: submatrix [%d:%d,%d:%d] of %dx%d", ErrIndexOutOfRange, rmin, rmax, cmin, cmax, m.rows, m.cols)
	}
	out := New(rmax-rmin, cmax-cmin)
	for r := rmin; r < rmax; r++ {
		copy(out.rowSlice(r-rmin), m.rowSlice(r)[cmin:cmax])
	}
	return out, nil
}

// SwapRows swaps rows r1 and r2 in place.
func (m *Matrix) SwapRows(r1, r2 int) error {
	if r1 < 0 || r1 >= m.rows || r2 < 0 || r2 >= m.rows {
		return fmt.Errorf("matrix: %w: swap rows %d,%d for %dx%d matrix", ErrIndexOutOfRange, r1, r2, m.rows, m.cols)
	}
	if r1 == r2 {
		return nil
	}
	a, b := m.rowSlice(r1), m.rowSlice(r2)
	for i := range a {
		a[i], b[i] = b[i], a[i]
	}
	return nil
}

// Equal reports whether m and other have the same shape and elements.
func (m *Matrix) Equal(other *Matrix) bool {
	if other == nil || m.rows != other.rows || m.cols != other.cols {
		return false
	}
	for i := range m.data {
		if m.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

// Invert returns the inverse of a square matrix via Gaussian elimination
// in GF(2^8): augment with the identity, reduce to row-echelon form,
// back-substitute, then return the right half.
func (m *Matrix) Invert() (*Matrix, error) {
	if m.rows != m.cols {
		return nil, fmt.Errorf("matrix: %w: invert non-square %dx%d", ErrShapeMismatch, m.rows, m.cols)
	}
	n := m.rows
	work, err := m.Augment(Identity(n))
	if err != nil {
		return nil, err
	}

	for r := 0; r < n; r++ {
		if work.get(r, r) == 0 {
			swapped := false
			for below := r + 1; below < n; below++ {
				if work.get(below, r) != 0 {
					_ = work.SwapRows(r, below)
					swapped = true
					break
				}
			}
			if !swapped {
				return nil, ErrSingular
			}
		}

		pivot := work.get(r, r)
		if pivot != 1 {
			scale, err := galois.Divide(1, pivot)
			if err != nil {
				return nil, err
			}
			row := work.rowSlice(r)
			for c := range row {
				row[c] = galois.Multiply(row[c], scale)
			}
		}

		for below := r + 1; below < n; below++ {
			scale := work.get(below, r)
			if scale == 0 {
				continue
			}
			pivotRow := work.rowSlice(r)
			belowRow := work.rowSlice(below)
			for c := range belowRow {
				belowRow[c] ^= galois.Multiply(scale, pivotRow[c])
			}
		}
	}

	for d := 0; d < n; d++ {
		for above := 0; above < d; above++ {
			scale := work.get(above, d)
			if scale == 0 {
				continue
			}
			pivotRow := work.rowSlice(d)
			aboveRow := work.rowSlice(above)
			for c := range aboveRow {
				aboveRow[c] ^= galois.Multiply(scale, pivotRow[c])
			}
		}
	}

	return work.SubMatrix(0, n, n, 2*n)
}
