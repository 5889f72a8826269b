package spectrum

import (
	"math"
	"sync"
)

// Accumulator is the running sum of per-mode per-frequency amplitudes across
// all processed radii of one image. Adds are safe under concurrent use by
// the radius workers; the mutex is scoped to the increment itself so workers
// contend only for the brief update, not the per-radius work. Reads are only
// meaningful after all radii have joined.
type Accumulator struct {
	mu  sync.Mutex
	sum [ModeMax + 1][NumBins]float64
}

// NewAccumulator returns a zeroed accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Add accumulates an amplitude into (mode, bin). Non-finite values are
// dropped: a NaN amplitude means "no signal" for that cell, never a
// contribution of NaN to the sum.
func (a *Accumulator) Add(mode, bin int, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	a.mu.Lock()
	a.sum[mode][bin] += v
	a.mu.Unlock()
}

// Sum returns a copy of the accumulated spectrum for one mode, indexed by
// retained bin (frequency BinFreq(i)).
func (a *Accumulator) Sum(mode int) []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]float64, NumBins)
	copy(out, a.sum[mode][:])
	return out
}
