package hwio

import (
	"ebtks/emu/log"
	"ebtks/hw/hwdefs"
)

// ReadHandler answers a host read of an I/O slot. It returns false when the
// device doesn't claim the cycle, in which case the bus is left alone.
//
// Handlers run in interrupt context: they must not block, allocate or take
// locks.
type ReadHandler func() (val uint8, claimed bool)

// WriteHandler receives a host write to an I/O slot. Same constraints as
// ReadHandler.
type WriteHandler func(val uint8)

func nopRead() (uint8, bool) { return 0, false }
func nopWrite(uint8)         {}

// IOTable dispatches I/O space accesses on the low byte of the address.
// Slots are written during start-up only, then read from interrupt context.
type IOTable struct {
	Name string

	rd [hwdefs.NumIOSlots]ReadHandler
	wr [hwdefs.NumIOSlots]WriteHandler

	locked bool
}

func NewIOTable(name string) *IOTable {
	t := new(IOTable)
	t.Name = name
	t.Reset()
	return t
}

// Reset restores every slot to the unclaimed state.
func (t *IOTable) Reset() {
	for i := range t.rd {
		t.rd[i] = nopRead
		t.wr[i] = nopWrite
	}
}

// Lock marks the table read-only. Only checked in debug builds.
func (t *IOTable) Lock() { t.locked = true }

func (t *IOTable) checkLocked(op string, low uint8) {
	if hwdefs.Debug && t.locked {
		log.ModHwIo.ErrorZ("I/O table modified while armed").
			String("table", t.Name).
			String("op", op).
			Hex8("slot", low).
			End()
	}
}

func (t *IOTable) RegisterRead(low uint8, h ReadHandler) {
	t.checkLocked("register read", low)
	if h == nil {
		h = nopRead
	}
	log.ModHwIo.DebugZ("register read handler").
		String("table", t.Name).
		Hex8("slot", low).
		End()
	t.rd[low] = h
}

func (t *IOTable) RegisterWrite(low uint8, h WriteHandler) {
	t.checkLocked("register write", low)
	if h == nil {
		h = nopWrite
	}
	log.ModHwIo.DebugZ("register write handler").
		String("table", t.Name).
		Hex8("slot", low).
		End()
	t.wr[low] = h
}

// Unregister restores both handlers of a slot to their defaults.
func (t *IOTable) Unregister(low uint8) {
	t.checkLocked("unregister", low)
	log.ModHwIo.DebugZ("unregister handlers").
		String("table", t.Name).
		Hex8("slot", low).
		End()
	t.rd[low] = nopRead
	t.wr[low] = nopWrite
}

// Read8 calls the read handler of slot low.
func (t *IOTable) Read8(low uint8) (uint8, bool) {
	return t.rd[low]()
}

// Write8 calls the write handler of slot low.
func (t *IOTable) Write8(low uint8, val uint8) {
	t.wr[low](val)
}
