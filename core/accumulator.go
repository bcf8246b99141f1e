package core

import "math"

// TopK is the fixed number of per-cell dominant contributors retained for
// diagnostics.
const TopK = 3

// Contribution pairs a per-source power density with the index of the
// source that produced it, in post-filter request order.
type Contribution struct {
	SourceIndex int
	PowerWM2    float64
}

// Accumulator folds per-source power density layers into a per-cell running
// total and the TopK largest contributions per cell. Insertion is O(TopK)
// per sample; memory is O(cells * TopK).
type Accumulator struct {
	totals []float64
	top    []Contribution
	counts []uint8
}

// NewAccumulator returns an accumulator sized for the given cell count with
// all totals at zero and all Top-K slots empty.
func NewAccumulator(cells int) *Accumulator {
	return &Accumulator{
		totals: make([]float64, cells),
		top:    make([]Contribution, cells*TopK),
		counts: make([]uint8, cells),
	}
}

// Add folds one source's power density at a cell into the running state.
// Zero, negative, and non-finite contributions are dropped: they carry no
// diagnostic value and must never occupy a Top-K slot. Sources must be fed
// in ascending source index so that equal powers resolve to the smaller
// index.
func (a *Accumulator) Add(cell, sourceIndex int, powerWM2 float64) {
	if powerWM2 <= 0 || math.IsInf(powerWM2, 0) || math.IsNaN(powerWM2) {
		return
	}
	a.totals[cell] += powerWM2

	slots := a.top[cell*TopK : cell*TopK+TopK]
	n := int(a.counts[cell])
	// Find the insertion point; a strictly greater power displaces, an
	// equal one stays behind the earlier source.
	pos := n
	for i := 0; i < n; i++ {
		if powerWM2 > slots[i].PowerWM2 {
			pos = i
			break
		}
	}
	if pos >= TopK {
		return
	}
	if n < TopK {
		n++
		a.counts[cell] = uint8(n)
	}
	copy(slots[pos+1:n], slots[pos:n-1])
	slots[pos] = Contribution{SourceIndex: sourceIndex, PowerWM2: powerWM2}
}

// TotalWM2 returns the accumulated power density at a cell.
func (a *Accumulator) TotalWM2(cell int) float64 { return a.totals[cell] }

// Top returns the cell's retained contributions in descending power order.
// The returned slice aliases internal state and must not be mutated.
func (a *Accumulator) Top(cell int) []Contribution {
	return a.top[cell*TopK : cell*TopK+int(a.counts[cell])]
}

// Clear erases a cell's Top-K entries. Used when masking drops the cell so
// that no diagnostics survive for NaN cells.
func (a *Accumulator) Clear(cell int) {
	a.counts[cell] = 0
}
