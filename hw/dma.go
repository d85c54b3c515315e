package hw

import (
	"sync/atomic"

	"ebtks/emu/log"
	"ebtks/hw/hal"
	"ebtks/hw/hwdefs"
)

//go:generate go tool stringer -type=DMAState -trimprefix=DMA

// DMAState is the step of the DMA sequence run by foreground code.
type DMAState uint8

const (
	DMAIdle     DMAState = iota
	DMARequest           // halt requested, waiting for the acknowledge cycle
	DMAAddress           // sending the address with two LMA strobes
	DMATransfer          // read or write strobes
	DMARefresh           // burst limit reached, bus left to the host
	DMARelease           // handing the bus back
)

// DMA lets foreground code become bus master and access the host memory.
//
// Mastership is requested by asserting Halt from the clock interrupt. The
// host answers with a DMA acknowledge cycle, after which the clock
// interrupt hands the control lines over and sets active. From then on
// every interrupt is masked until the bus is released: the strobes are
// timed with busy waits and any interrupt would break them.
type DMA struct {
	board hal.Board

	// Shared with the clock interrupt.
	requested atomic.Bool
	acked     atomic.Bool
	active    atomic.Bool

	state DMAState

	released    bool
	lastRelease uint64

	// Current transfer.
	addr  uint16
	count int
	done  int

	transfers uint32
	refreshes uint32
}

func (d *DMA) State() DMAState { return d.state }

// Busy reports whether a transfer is in flight.
func (d *DMA) Busy() bool { return d.requested.Load() || d.active.Load() }

// ReadBlock copies len(buf) bytes of host memory starting at addr into buf.
// It blocks until the bus has been released and returns the number of
// bytes transferred, 0 when buf is empty or a transfer is already in
// flight.
func (d *DMA) ReadBlock(addr uint16, buf []byte) int {
	if !d.start(addr, buf, "read") {
		return 0
	}

	d.state = DMATransfer
	d.strobe(hwdefs.RD)
	burst := 1
	for i := range buf {
		d.board.WaitEdge(hwdefs.Phi1, true)
		v := d.board.ReadData()
		if i+1 < len(buf) {
			if burst == DMABurstLimit {
				d.refresh()
				burst = 0
			}
			d.strobe(hwdefs.RD)
			burst++
		}
		buf[i] = v
		d.done++
	}

	d.release()
	return d.done
}

// WriteBlock copies buf to host memory starting at addr. Same contract as
// ReadBlock.
func (d *DMA) WriteBlock(addr uint16, buf []byte) int {
	if !d.start(addr, buf, "write") {
		return 0
	}

	d.state = DMATransfer
	burst := 0
	for _, b := range buf {
		if burst == DMABurstLimit {
			d.refresh()
			burst = 0
		}
		d.writeByte(b)
		burst++
		d.done++
	}

	d.release()
	return d.done
}

// Read8 reads one byte of host memory.
func (d *DMA) Read8(addr uint16) uint8 {
	var buf [1]byte
	d.ReadBlock(addr, buf[:])
	return buf[0]
}

// Read16 reads a little-endian word of host memory.
func (d *DMA) Read16(addr uint16) uint16 {
	var buf [2]byte
	d.ReadBlock(addr, buf[:])
	return uint16(buf[0]) | uint16(buf[1])<<8
}

// Write8 writes one byte of host memory.
func (d *DMA) Write8(addr uint16, val uint8) {
	buf := [1]byte{val}
	d.WriteBlock(addr, buf[:])
}

// Write16 writes a little-endian word of host memory.
func (d *DMA) Write16(addr uint16, val uint16) {
	buf := [2]byte{uint8(val), uint8(val >> 8)}
	d.WriteBlock(addr, buf[:])
}

// start acquires the bus and sends the address. It returns false if the
// transfer must not happen.
func (d *DMA) start(addr uint16, buf []byte, op string) bool {
	if len(buf) == 0 || d.Busy() {
		if hwdefs.Debug {
			log.ModDMA.WarnZ("ignored DMA transfer").
				String("op", op).
				Hex16("addr", addr).
				Int("count", len(buf)).
				Bool("busy", d.Busy()).
				End()
		}
		return false
	}

	d.addr = addr
	d.count = len(buf)
	d.done = 0

	d.acquire()
	d.sendAddress(addr)
	return true
}

func (d *DMA) acquire() {
	b := d.board

	if d.released {
		if since := b.Now() - d.lastRelease; since < HaltSettleNs {
			b.Delay(uint32(HaltSettleNs - since))
		}
	}

	d.state = DMARequest
	b.DisableInterrupts()
	d.acked.Store(false)
	d.requested.Store(true)
	b.EnableInterrupts()

	// The clock interrupt asserts Halt then takes the control lines on the
	// acknowledge cycle.
	for !d.active.Load() {
		b.Idle()
	}

	// Critical section until release.
	b.DisableInterrupts()
}

// strobe pulses a control line during phase 2 of the current cycle.
func (d *DMA) strobe(l hwdefs.Line) {
	t := strobeTimings[l]
	d.board.WaitEdge(hwdefs.Phi2, true)
	d.board.Delay(t.delay)
	d.board.Assert(l)
	d.board.Delay(t.width)
	d.board.Release(l)
}

// driveByte drives v on the data bus during phase 1 of the next cycle, it
// is latched on phase-1 falling edge.
func (d *DMA) driveByte(v uint8) {
	d.board.WaitEdge(hwdefs.Phi1, true)
	d.board.DriveData(v)
	d.board.WaitEdge(hwdefs.Phi1, false)
	d.board.Delay(DataHoldNs)
	d.board.ReleaseData()
}

// writeByte drives v from phase-2 rising edge, pulses WR while the data is
// stable and holds v past the phase-1 falling edge where memory latches it.
func (d *DMA) writeByte(v uint8) {
	t := strobeTimings[hwdefs.WR]
	d.board.WaitEdge(hwdefs.Phi2, true)
	d.board.DriveData(v)
	d.board.Delay(t.delay)
	d.board.Assert(hwdefs.WR)
	d.board.Delay(t.width)
	d.board.Release(hwdefs.WR)
	d.board.WaitEdge(hwdefs.Phi1, false)
	d.board.Delay(DataHoldNs)
	d.board.ReleaseData()
}

func (d *DMA) sendAddress(addr uint16) {
	d.state = DMAAddress
	d.strobe(hwdefs.LMA)
	d.driveByte(uint8(addr))
	d.strobe(hwdefs.LMA)
	d.driveByte(uint8(addr >> 8))
}

func (d *DMA) refresh() {
	d.state = DMARefresh
	for range RefreshYieldCycles {
		d.board.WaitEdge(hwdefs.Phi1, true)
	}
	d.refreshes++
	d.state = DMATransfer
}

func (d *DMA) release() {
	b := d.board

	d.state = DMARelease
	b.WaitEdge(hwdefs.Phi2, true)
	b.Delay(ReleaseDelayNs)
	b.Release(hwdefs.Halt)
	b.DriveControl(false)

	// Clock edges seen during the transfer latched the interrupt flag.
	b.ClearPendingIRQ()

	d.active.Store(false)
	d.acked.Store(false)
	d.requested.Store(false)
	d.released = true
	d.lastRelease = b.Now()
	d.transfers++

	b.EnableClockIRQ(true)
	b.EnableInterrupts()
	d.state = DMAIdle

	log.ModDMA.DebugZ("DMA transfer done").
		Hex16("addr", d.addr).
		Int("count", d.count).
		End()
}

// acknowledge is called by the clock interrupt on every cycle a request is
// outstanding. It returns true when the bus has been taken.
func (d *DMA) acknowledge(st hwdefs.CycleState) bool {
	b := d.board
	b.Assert(hwdefs.Halt)
	if st != hwdefs.CycleDMAAck {
		return false
	}

	d.acked.Store(true)
	b.EnableClockIRQ(false)
	b.WaitEdge(hwdefs.Phi2, false)
	b.DriveControl(true)
	d.active.Store(true)
	return true
}
