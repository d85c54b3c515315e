// Package trace records completed bus cycles for later inspection.
package trace

import (
	"sync/atomic"

	"ebtks/hw/hwdefs"
)

// Aux bits.
const (
	AuxDriven   = 1 << iota // this device drove the data bus
	AuxHalt                 // halt line asserted by this device
	AuxIntReq               // interrupt request asserted by this device
	AuxDMAReq               // a DMA request was pending
	AuxLoad                 // address byte cycle
)

// Record is one completed bus cycle.
type Record struct {
	Ctrl hwdefs.Ctrl // sampled control lines
	Addr uint16      // address register during the cycle
	Data uint8       // data bus
	Aux  uint8       // Aux* bits
}

func (r Record) State() hwdefs.CycleState {
	return hwdefs.Classify(r.Ctrl)
}

// Ring is a fixed size, power of 2, circular buffer of records. Push is
// called from interrupt context, every other method from the foreground.
type Ring struct {
	buf    []Record
	mask   uint32
	head   uint32 // next write position
	count  uint32
	active atomic.Bool
}

// NewRing creates a ring holding size records. It panics if size is not a
// power of 2.
func NewRing(size int) *Ring {
	if size <= 0 || size&(size-1) != 0 {
		panic("trace ring size is not pow2")
	}
	return &Ring{
		buf:  make([]Record, size),
		mask: uint32(size - 1),
	}
}

// Start enables capture.
func (r *Ring) Start() { r.active.Store(true) }

// Stop disables capture. Recorded cycles are kept.
func (r *Ring) Stop() { r.active.Store(false) }

func (r *Ring) Active() bool { return r.active.Load() }

// Cap returns the ring capacity.
func (r *Ring) Cap() int { return len(r.buf) }

// Len returns the number of valid records.
func (r *Ring) Len() int { return int(r.count) }

// Push appends rec, overwriting the oldest record once full. It does
// nothing while capture is stopped.
func (r *Ring) Push(rec Record) {
	if !r.active.Load() {
		return
	}
	r.buf[r.head&r.mask] = rec
	r.head++
	if r.count <= r.mask {
		r.count++
	}
}

// Reset drops every record.
func (r *Ring) Reset() {
	r.head = 0
	r.count = 0
}

// Records returns a copy of the valid records, oldest first.
func (r *Ring) Records() []Record {
	out := make([]Record, r.count)
	start := r.head - r.count
	for i := range out {
		out[i] = r.buf[(start+uint32(i))&r.mask]
	}
	return out
}
