// Package hal is the narrow hardware abstraction the bus engine is written
// against. Only implementations of Board are platform specific; the engine
// itself never touches a register.
//
// A target Board embeds a Spinner built on the core cycle counter to get
// its Clock. The simulated backplane keeps its own virtual time instead.
package hal

import "ebtks/hw/hwdefs"

// Lines gives access to the host bus signals, the data bus transceiver and
// the calibrated timing primitives.
//
// Assert and Release refer to the logical level: the physical polarity
// (most host lines are active low) is the implementation's business.
type Lines interface {
	Assert(l hwdefs.Line)
	Release(l hwdefs.Line)
	Asserted(l hwdefs.Line) bool

	// Control samples LMA, RD and WR at once.
	Control() hwdefs.Ctrl

	// ReadData samples the data bus.
	ReadData() uint8
	// DriveData turns the transceiver around and drives v on the data bus.
	DriveData(v uint8)
	// ReleaseData returns the transceiver to input.
	ReleaseData()

	// DriveControl switches LMA, RD and WR between host driven inputs
	// (false) and outputs driven by this device (true).
	DriveControl(master bool)

	// WaitEdge spins until l transitions to the given level. The current
	// level does not satisfy the wait, only the next transition does.
	WaitEdge(l hwdefs.Line, asserted bool)

	Clock
}

// Clock is the calibrated timing primitive.
type Clock interface {
	// Delay busy-waits for ns nanoseconds.
	Delay(ns uint32)

	// Now returns a free running nanosecond timestamp.
	Now() uint64
}

// Interrupts controls the interrupt sources involved in bus emulation.
type Interrupts interface {
	// AttachClockHandler installs the handler run on phase-1 rising edges.
	AttachClockHandler(fn func())
	// EnableClockIRQ enables or disables the phase-1 interrupt source.
	EnableClockIRQ(on bool)
	// DisableInterrupts masks every interrupt.
	DisableInterrupts()
	// EnableInterrupts unmasks interrupts.
	EnableInterrupts()
	// ClearPendingIRQ drops interrupt requests latched while masked.
	ClearPendingIRQ()
	// Idle is the foreground spin step. Interrupts are serviced meanwhile.
	Idle()
}

// Board is everything the bus engine needs from the platform.
type Board interface {
	Lines
	Interrupts
}
