package hal

var _ Clock = (*Spinner)(nil)

// CycleCounter is a free running 32-bit CPU cycle counter, such as the ARM
// DWT cycle counter.
type CycleCounter interface {
	Cycles() uint32
}

// Spinner implements calibrated busy waits on top of a cycle counter. The
// conversion factor is computed once from the core frequency; every delay
// in the engine goes through it.
type Spinner struct {
	cc CycleCounter

	// cycles per nanosecond, in 16.16 fixed point.
	perNs uint64

	// 64-bit extension of the 32-bit counter.
	last uint32
	high uint64
}

// NewSpinner returns a Spinner for a core running at hz.
func NewSpinner(cc CycleCounter, hz uint64) *Spinner {
	if hz == 0 {
		panic("hal: zero core frequency")
	}
	s := &Spinner{cc: cc}
	s.perNs = (hz << 16) / 1_000_000_000
	if s.perNs == 0 {
		s.perNs = 1
	}
	s.last = cc.Cycles()
	return s
}

// CyclesFor returns the number of counter ticks corresponding to ns.
func (s *Spinner) CyclesFor(ns uint32) uint32 {
	return uint32((uint64(ns)*s.perNs + 0xFFFF) >> 16)
}

// Delay spins for at least ns nanoseconds. The wait is computed with
// wrapping arithmetic, so a counter overflow during the wait is harmless.
func (s *Spinner) Delay(ns uint32) {
	if ns == 0 {
		return
	}
	n := s.CyclesFor(ns)
	start := s.cc.Cycles()
	for s.cc.Cycles()-start < n {
	}
}

// Now returns the elapsed nanoseconds since an arbitrary origin. It must be
// called at least once per counter wrap to stay monotonic.
func (s *Spinner) Now() uint64 {
	c := s.cc.Cycles()
	s.high += uint64(c - s.last)
	s.last = c
	return (s.high << 16) / s.perNs
}
