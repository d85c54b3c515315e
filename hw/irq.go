package hw

import (
	"sync/atomic"

	"ebtks/emu/log"
	"ebtks/hw/hal"
	"ebtks/hw/hwdefs"
	"ebtks/hw/hwio"
)

//go:generate go tool stringer -type=IRQState -trimprefix=IRQ

// IRQState is the state of the interrupt arbiter.
type IRQState uint8

const (
	IRQIdle IRQState = iota
	IRQRequestPending
)

// Arbiter is this device's participant in the host interrupt priority
// chain. Its state machine is stepped once per bus cycle by the bus
// controller; foreground code only raises, withdraws and arms.
//
// A device higher in the chain asserts our PriIn while it is requesting.
// The vector is only supplied on an interrupt acknowledge cycle with PriIn
// released.
type Arbiter struct {
	Vector uint8 // supplied on interrupt acknowledge

	state   IRQState
	pending atomic.Bool
	enabled atomic.Bool
	wants   func() bool

	serviced atomic.Uint32
	lost     atomic.Uint32
}

// Raise posts an interrupt request. It is presented on the bus on the
// next cycle where the arbiter is idle, armed and the device wants it.
func (a *Arbiter) Raise() { a.pending.Store(true) }

// Withdraw cancels a posted request that has not been serviced yet.
func (a *Arbiter) Withdraw() { a.pending.Store(false) }

// Arm enables interrupt requests.
func (a *Arbiter) Arm() { a.enabled.Store(true) }

// Disarm disables interrupt requests.
func (a *Arbiter) Disarm() { a.enabled.Store(false) }

// SetWants installs a predicate consulted before presenting a request, nil
// means always. It must be set before the bus controller is armed.
func (a *Arbiter) SetWants(fn func() bool) { a.wants = fn }

func (a *Arbiter) Pending() bool    { return a.pending.Load() }
func (a *Arbiter) Enabled() bool    { return a.enabled.Load() }
func (a *Arbiter) State() IRQState  { return a.state }
func (a *Arbiter) Serviced() uint32 { return a.serviced.Load() }

// Lost returns the number of acknowledge cycles where a request was
// presented but won by a higher priority device.
func (a *Arbiter) Lost() uint32 { return a.lost.Load() }

// step runs one cycle of arbitration, after the cycle has been classified.
// It returns the vector and true when this device must drive it.
func (a *Arbiter) step(lines hal.Lines, st hwdefs.CycleState) (uint8, bool) {
	switch a.state {
	case IRQIdle:
		if st == hwdefs.CycleIntAck {
			// Acknowledge of another device interrupt: stay quiet until
			// re-armed.
			if lines.Asserted(hwdefs.PriIn) {
				a.enabled.Store(false)
				if hwdefs.Debug {
					log.ModIRQ.DebugZ("disarmed by foreign acknowledge").End()
				}
			}
			return 0, false
		}
		if a.pending.Load() && a.enabled.Load() && (a.wants == nil || a.wants()) {
			lines.Assert(hwdefs.IntReq)
			lines.Assert(hwdefs.PriOut)
			a.state = IRQRequestPending
		}

	case IRQRequestPending:
		if st != hwdefs.CycleIntAck {
			if !a.pending.Load() {
				lines.Release(hwdefs.IntReq)
				lines.Release(hwdefs.PriOut)
				a.state = IRQIdle
			}
			return 0, false
		}

		lines.Release(hwdefs.IntReq)
		lines.Release(hwdefs.PriOut)
		a.state = IRQIdle
		if lines.Asserted(hwdefs.PriIn) {
			a.lost.Add(1)
			return 0, false
		}
		a.pending.Store(false)
		a.serviced.Add(1)
		return a.Vector, true
	}
	return 0, false
}

// Interrupt control register bits.
const (
	irqEnableBit  = 0 // read/write
	irqPendingBit = 1 // read-only
	irqRequestBit = 7 // read-only, request presented on the bus

	IRQCtrlEnable  = 1 << irqEnableBit
	IRQCtrlPending = 1 << irqPendingBit
	IRQCtrlRequest = 1 << irqRequestBit
)

// ControlReg returns an I/O register exposing the arbiter to the host.
// Writing bit 0 arms or disarms interrupts, reading returns the state.
func (a *Arbiter) ControlReg(name string) *hwio.Reg8 {
	return &hwio.Reg8{
		Name:   name,
		RoMask: IRQCtrlPending | IRQCtrlRequest,
		ReadCb: func(uint8) uint8 {
			var v uint8
			hwio.PutBit8(&v, irqEnableBit, a.enabled.Load())
			hwio.PutBit8(&v, irqPendingBit, a.pending.Load())
			hwio.PutBit8(&v, irqRequestBit, a.state == IRQRequestPending)
			return v
		},
		WriteCb: func(_, val uint8) {
			a.enabled.Store(hwio.GetBit8(val, irqEnableBit))
		},
	}
}
