package gesture

import (
	"math"
)

// CostMatrix holds the cumulative alignment costs of one DTW computation.
// Cell (i,j) is the minimum cost of aligning the first i+1 observations of
// series A with the first j+1 observations of series B. Cells excluded by
// the warping-path constraint hold +Inf.
type CostMatrix struct {
	rows, cols int
	cells      []float64
}

func newCostMatrix(rows, cols int) *CostMatrix {
	return &CostMatrix{rows: rows, cols: cols, cells: make([]float64, rows*cols)}
}

// Rows returns the number of rows (length of series A).
func (m *CostMatrix) Rows() int { return m.rows }

// Cols returns the number of columns (length of series B).
func (m *CostMatrix) Cols() int { return m.cols }

// At returns the cumulative cost at cell (i,j).
func (m *CostMatrix) At(i, j int) float64 { return m.cells[i*m.cols+j] }

func (m *CostMatrix) set(i, j int, v float64) { m.cells[i*m.cols+j] = v }

// MinValue returns the smallest finite cost in the matrix, or 0 if every
// cell is excluded.
func (m *CostMatrix) MinValue() float64 {
	min, found := 0.0, false
	for _, v := range m.cells {
		if math.IsInf(v, 1) {
			continue
		}
		if !found || v < min {
			min, found = v, true
		}
	}
	return min
}

// MaxValue returns the largest finite cost in the matrix, or 0 if every
// cell is excluded.
func (m *CostMatrix) MaxValue() float64 {
	max, found := 0.0, false
	for _, v := range m.cells {
		if math.IsInf(v, 1) {
			continue
		}
		if !found || v > max {
			max, found = v, true
		}
	}
	return max
}

// Grid returns a row-major copy of the matrix for plotting or serialization.
func (m *CostMatrix) Grid() [][]float64 {
	out := make([][]float64, m.rows)
	for i := 0; i < m.rows; i++ {
		row := make([]float64, m.cols)
		copy(row, m.cells[i*m.cols:(i+1)*m.cols])
		out[i] = row
	}
	return out
}

// PathStep is one cell of the warping path through the cost matrix.
type PathStep struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Alignment is the full result of one DTW computation: the scalar distance,
// the cumulative cost matrix, and the optimal warping path. The matrix and
// path are kept as side artifacts for diagnostics and visualization.
type Alignment struct {
	Distance float64
	Cost     *CostMatrix
	Path     []PathStep
}

// Align computes the Dynamic Time Warping alignment between two series of
// the same dimensionality but possibly different lengths.
//
// The cost matrix is |A| x |B|; cell (i,j) accumulates the local distance
// between A[i] and B[j] plus the cheapest of its three predecessors, with
// the first row and column initialized to cumulative sums. The scalar
// distance is the final cell normalized by max(|A|,|B|) so that longer
// gestures do not dominate shorter ones.
//
// When cfg.ConstrainWarpingPath is set, only cells within
// ceil(min(|A|,|B|) * cfg.WarpingRadius) columns of the scaled diagonal are
// evaluated; everything outside the band is +Inf. A constrained alignment
// between series of very different lengths can therefore come out as +Inf,
// which callers treat as "no alignment possible".
//
// A single-observation series degenerates to the pointwise distance.
func Align(a, b TimeSeries, cfg Config) (Alignment, error) {
	if len(a) == 0 || len(b) == 0 {
		return Alignment{}, ErrEmptySeries
	}
	if a.Dimensions() != b.Dimensions() {
		return Alignment{}, ErrDimensionMismatch
	}

	rows, cols := len(a), len(b)
	local := cfg.localDistance()
	inf := math.Inf(1)

	inBand := func(i, j int) bool { return true }
	if cfg.ConstrainWarpingPath && rows > 1 {
		radius := math.Ceil(float64(minInt(rows, cols)) * cfg.WarpingRadius)
		scale := float64(cols-1) / float64(rows-1)
		inBand = func(i, j int) bool {
			return math.Abs(float64(j)-float64(i)*scale) <= radius
		}
	}

	cost := newCostMatrix(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if !inBand(i, j) {
				cost.set(i, j, inf)
				continue
			}
			d := local(a[i], b[j])
			switch {
			case i == 0 && j == 0:
				cost.set(0, 0, d)
			case i == 0:
				cost.set(0, j, d+cost.At(0, j-1))
			case j == 0:
				cost.set(i, 0, d+cost.At(i-1, 0))
			default:
				cost.set(i, j, d+min3(cost.At(i-1, j), cost.At(i, j-1), cost.At(i-1, j-1)))
			}
		}
	}

	total := cost.At(rows-1, cols-1)
	if math.IsInf(total, 1) {
		return Alignment{Distance: inf, Cost: cost}, nil
	}

	return Alignment{
		Distance: total / float64(maxInt(rows, cols)),
		Cost:     cost,
		Path:     backtrack(cost),
	}, nil
}

// Distance is a convenience wrapper around Align that discards the cost
// matrix and warping path.
func Distance(a, b TimeSeries, cfg Config) (float64, error) {
	al, err := Align(a, b, cfg)
	if err != nil {
		return 0, err
	}
	return al.Distance, nil
}

// backtrack walks the cost matrix from the final cell to the origin,
// always stepping to the cheapest reachable predecessor. Diagonal moves
// win ties.
func backtrack(cost *CostMatrix) []PathStep {
	i, j := cost.Rows()-1, cost.Cols()-1
	path := []PathStep{{Row: i, Col: j}}
	for i > 0 || j > 0 {
		switch {
		case i == 0:
			j--
		case j == 0:
			i--
		default:
			v := cost.At(i-1, j)
			move := 0
			if cost.At(i, j-1) < v {
				v = cost.At(i, j-1)
				move = 1
			}
			if cost.At(i-1, j-1) <= v {
				move = 2
			}
			switch move {
			case 0:
				i--
			case 1:
				j--
			default:
				i--
				j--
			}
		}
		path = append(path, PathStep{Row: i, Col: j})
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}

// min3 returns the minimum of three float64 values.
func min3(a, b, c float64) float64 {
	if a <= b && a <= c {
		return a
	}
	if b <= c {
		return b
	}
	return c
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
