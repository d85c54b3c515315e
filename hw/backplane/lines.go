package backplane

import (
	"fmt"

	"ebtks/hw/hal"
	"ebtks/hw/hwdefs"
)

var _ hal.Board = (*Backplane)(nil)

func (bp *Backplane) Assert(l hwdefs.Line) {
	switch l {
	case hwdefs.Phi1, hwdefs.Phi2, hwdefs.PriIn:
		bp.violation("device drives input line %s", l)
	case hwdefs.LMA, hwdefs.RD, hwdefs.WR:
		bp.strobe(l)
	default:
		bp.lines[l] = true
	}
}

func (bp *Backplane) Release(l hwdefs.Line) {
	switch l {
	case hwdefs.Phi1, hwdefs.Phi2, hwdefs.PriIn:
	case hwdefs.LMA, hwdefs.RD, hwdefs.WR:
		bp.unstrobe(l)
	default:
		bp.lines[l] = false
	}
}

func (bp *Backplane) Asserted(l hwdefs.Line) bool {
	switch l {
	case hwdefs.Phi1:
		return bp.phi1
	case hwdefs.Phi2:
		return bp.phi2
	case hwdefs.LMA, hwdefs.RD, hwdefs.WR:
		return bp.Control()&hwdefs.CtrlBit(l) != 0
	case hwdefs.IntReq:
		return bp.irl()
	case hwdefs.PriIn:
		return bp.priIn
	}
	return bp.lines[l]
}

// Control returns the control lines as seen on the bus.
func (bp *Backplane) Control() hwdefs.Ctrl {
	c := bp.Host.cur.ctrl
	if bp.master {
		c |= bp.devCtrl
	}
	return c
}

// ReadData returns the data bus value, 0xFF when nobody drives it.
func (bp *Backplane) ReadData() uint8 {
	if bp.drivers == 0 {
		return 0xFF
	}
	for d := range numDrivers {
		if bp.drivers&(1<<d) != 0 {
			return bp.busVal[d]
		}
	}
	return 0xFF
}

func (bp *Backplane) DriveData(v uint8) { bp.drive(drvDevice, v) }

func (bp *Backplane) ReleaseData() { bp.undrive(drvDevice) }

func (bp *Backplane) DriveControl(master bool) {
	if master && !bp.Host.halted {
		bp.violation("device takes the control lines while the host is running")
	}
	if !master && bp.devCtrl != 0 {
		bp.violation("control lines released with %s asserted", bp.devCtrl)
	}
	bp.master = master
	bp.devCtrl = 0
}

func (bp *Backplane) strobe(l hwdefs.Line) {
	if !bp.master {
		bp.violation("%s strobe while not bus master", l)
		return
	}
	if !bp.phi2 {
		bp.violation("%s strobe asserted outside phase 2", l)
	}
	if bp.strobed {
		bp.violation("second strobe (%s) in the same cycle", l)
	}
	if l == hwdefs.WR && bp.drivers&(1<<drvDevice) == 0 {
		bp.violation("WR strobe asserted while the device does not drive the data bus")
	}
	bp.devCtrl |= hwdefs.CtrlBit(l)
	bp.strobeStart[l] = bp.now
	bp.strobeCycle[l] = bp.cycle
	bp.strobed = true
}

func (bp *Backplane) unstrobe(l hwdefs.Line) {
	bit := hwdefs.CtrlBit(l)
	if bp.devCtrl&bit == 0 {
		return
	}
	bp.devCtrl &^= bit
	if !bp.phi2 || bp.strobeCycle[l] != bp.cycle {
		bp.violation("%s strobe released outside phase 2 (asserted for %dns)", l, bp.now-bp.strobeStart[l])
		return
	}

	// The host memory answers on the next cycle.
	bp.memOp = l
	bp.memPending = true
	bp.memOpCycle = bp.cycle + 1
	if l != hwdefs.LMA {
		bp.dataStrobe = true
	}
}

// WaitEdge waits for the next clock edge. Only Phi1 and Phi2 can be waited
// for.
func (bp *Backplane) WaitEdge(l hwdefs.Line, asserted bool) {
	var e edge
	switch {
	case l == hwdefs.Phi1 && asserted:
		e = edgePhi1Rise
	case l == hwdefs.Phi1:
		e = edgePhi1Fall
	case l == hwdefs.Phi2 && asserted:
		e = edgePhi2Rise
	case l == hwdefs.Phi2:
		e = edgePhi2Fall
	default:
		panic(fmt.Sprintf("backplane: WaitEdge on %s", l))
	}

	idx := bp.next
	for edge(idx%numEdges) != e {
		idx++
	}
	bp.advance(bp.edgeTime(idx))
}

func (bp *Backplane) Delay(ns uint32) { bp.advance(bp.now + uint64(ns)) }

func (bp *Backplane) Now() uint64 { return bp.now }

func (bp *Backplane) AttachClockHandler(fn func()) { bp.handler = fn }

func (bp *Backplane) EnableClockIRQ(on bool) {
	bp.clockIRQ = on
	bp.serviceIRQ()
}

func (bp *Backplane) DisableInterrupts() { bp.masked = true }

func (bp *Backplane) EnableInterrupts() {
	bp.masked = false
	bp.serviceIRQ()
}

func (bp *Backplane) ClearPendingIRQ() { bp.irqLatched = false }

// Idle runs until the next phase-1 rising edge.
func (bp *Backplane) Idle() { bp.WaitEdge(hwdefs.Phi1, true) }
