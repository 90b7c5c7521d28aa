package selection

import "gonum.org/v1/gonum/mat"

// ColumnMask marks, for each column of the matrix a filter was fit on, whether that column is
// dropped (true) or kept (false). Index i of the mask refers to column i of the matrix.
type ColumnMask []bool

// NewColumnMask creates a mask of n columns where every column is kept.
func NewColumnMask(n int) ColumnMask {
	return make(ColumnMask, n)
}

// Count is the number of dropped columns.
func (m ColumnMask) Count() int {
	n := 0
	for _, drop := range m {
		if drop {
			n++
		}
	}
	return n
}

// Dropped returns the indices of dropped columns in ascending order.
func (m ColumnMask) Dropped() []int {
	var idx []int
	for i, drop := range m {
		if drop {
			idx = append(idx, i)
		}
	}
	return idx
}

// Kept returns the indices of kept columns in ascending order.
func (m ColumnMask) Kept() []int {
	var idx []int
	for i, drop := range m {
		if !drop {
			idx = append(idx, i)
		}
	}
	return idx
}

// Equal reports whether two masks mark the same columns.
func (m ColumnMask) Equal(o ColumnMask) bool {
	if len(m) != len(o) {
		return false
	}
	for i := range m {
		if m[i] != o[i] {
			return false
		}
	}
	return true
}

// Apply copies the kept columns of X into a new matrix. X must have len(m) columns. If every
// column is dropped the result is an empty (0x0) matrix and the row count of X is lost, since
// a mat.Dense cannot have zero columns.
func (m ColumnMask) Apply(X mat.Matrix) *mat.Dense {
	r, _ := X.Dims()
	kept := m.Kept()
	if len(kept) == 0 || r == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(r, len(kept), nil)
	for i := 0; i < r; i++ {
		for k, j := range kept {
			out.Set(i, k, X.At(i, j))
		}
	}
	return out
}

// ApplyNames returns the names of kept columns, in their original relative order.
func (m ColumnMask) ApplyNames(names []string) []string {
	out := make([]string, 0, len(m)-m.Count())
	for _, j := range m.Kept() {
		out = append(out, names[j])
	}
	return out
}
