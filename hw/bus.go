package hw

import (
	"ebtks/emu/log"
	"ebtks/hw/hal"
	"ebtks/hw/hwdefs"
	"ebtks/hw/hwio"
	"ebtks/hw/snapshot"
	"ebtks/hw/trace"
)

// BusContext is the per-cycle state owned by the clock interrupt.
type BusContext struct {
	Cycles     uint64
	Ctrl       hwdefs.Ctrl // control lines sampled in phase 2
	State      hwdefs.CycleState
	Addr       uint16 // address register
	PendingLow uint8  // last captured byte, low half of a possible address load

	out        uint8 // byte driven on the bus
	driving    bool
	writeSched bool
	loadSched  bool
	incSched   bool
	aux        uint8
}

// BusController emulates a peripheral on the host bus. Its ClockInterrupt
// method runs on every phase-1 rising edge and answers the bus cycle with
// the I/O table, the resource claims and the interrupt arbiter, and hands
// the bus to the DMA engine when requested.
//
// IO and Claims are filled before Arm and must not change afterwards.
type BusController struct {
	IO     *hwio.IOTable
	Claims hwio.Claims
	IRQ    Arbiter
	DMA    DMA

	// Trace, when non-nil, receives every completed cycle.
	Trace *trace.Ring

	board hal.Board
	ctx   BusContext
	armed bool
}

func NewBusController(board hal.Board) *BusController {
	bc := &BusController{
		IO:    hwio.NewIOTable("io"),
		board: board,
	}
	bc.DMA.board = board
	return bc
}

// Arm starts answering bus cycles.
func (bc *BusController) Arm() {
	if hwdefs.Debug {
		for _, ov := range bc.Claims.Overlaps() {
			log.ModBus.WarnZ("overlapping resources").Stringer("overlap", ov).End()
		}
	}
	bc.IO.Lock()

	b := bc.board
	b.Release(hwdefs.Ready)
	b.Release(hwdefs.Halt)
	b.Release(hwdefs.IntReq)
	b.Release(hwdefs.PriOut)
	b.ReleaseData()
	b.DriveControl(false)

	b.AttachClockHandler(bc.ClockInterrupt)
	b.ClearPendingIRQ()
	b.EnableClockIRQ(true)
	bc.armed = true

	log.ModBus.InfoZ("bus controller armed").
		Int("claims", bc.Claims.Len()).
		Bool("trace", bc.Trace != nil).
		End()
}

// Disarm stops answering bus cycles.
func (bc *BusController) Disarm() {
	bc.board.EnableClockIRQ(false)
	bc.release()
	bc.armed = false
}

func (bc *BusController) Armed() bool { return bc.armed }

// Context returns a copy of the current cycle state.
func (bc *BusController) Context() BusContext { return bc.ctx }

// MapReg8 exposes reg on I/O slot low.
func (bc *BusController) MapReg8(low uint8, reg *hwio.Reg8) {
	log.ModBus.DebugZ("map register").
		String("name", reg.Name).
		Hex16("addr", hwdefs.IOBase|uint16(low)).
		End()
	reg.Map(bc.IO, low)
}

func (bc *BusController) release() {
	if bc.ctx.driving {
		bc.board.ReleaseData()
		bc.board.Release(hwdefs.Ready)
		bc.ctx.driving = false
	}
}

func (bc *BusController) drive(v uint8) {
	bc.board.DriveData(v)
	bc.board.Assert(hwdefs.Ready)
	bc.ctx.out = v
	bc.ctx.driving = true
	bc.ctx.aux |= trace.AuxDriven
}

func (bc *BusController) read(addr uint16) (uint8, bool) {
	if v, ok := bc.Claims.Read8(addr); ok {
		return v, true
	}
	if hwdefs.IsIO(addr) {
		return bc.IO.Read8(uint8(addr))
	}
	return 0, false
}

func (bc *BusController) write(addr uint16, val uint8) {
	if bc.Claims.Write8(addr, val) {
		return
	}
	if hwdefs.IsIO(addr) {
		bc.IO.Write8(uint8(addr), val)
	}
}

// ClockInterrupt processes one bus cycle. It is entered on phase-1 rising
// edge and returns during phase 2, or at the end of phase 2 when the bus is
// handed to the DMA engine.
func (bc *BusController) ClockInterrupt() {
	b := bc.board
	ctx := &bc.ctx

	// Phase 1 rising: end of the previous cycle.
	wasDriving := ctx.driving
	bc.release()
	data := b.ReadData()
	if ctx.writeSched {
		bc.write(ctx.Addr, data)
	}
	if bc.Trace != nil {
		rec := trace.Record{Ctrl: ctx.Ctrl, Addr: ctx.Addr, Data: data, Aux: ctx.aux}
		if wasDriving {
			rec.Data = ctx.out
		}
		bc.Trace.Push(rec)
	}

	// Phase 1 falling: write data and address bytes are held past the edge.
	b.WaitEdge(hwdefs.Phi1, false)
	data = b.ReadData()
	switch {
	case ctx.loadSched:
		ctx.Addr = uint16(data)<<8 | uint16(ctx.PendingLow)
	case ctx.incSched && !hwdefs.IsIO(ctx.Addr):
		ctx.Addr++
	}
	ctx.PendingLow = data

	// Phase 2: the control lines are stable.
	b.Delay(Phase2SettleNs)
	ctx.Cycles++
	ctx.Ctrl = b.Control()
	ctx.State = hwdefs.Classify(ctx.Ctrl)
	ctx.writeSched, ctx.loadSched, ctx.incSched = false, false, false
	ctx.aux = 0

	if hwdefs.IsAddressLoad(ctx.Ctrl) {
		ctx.loadSched = true
		ctx.aux |= trace.AuxLoad
	} else {
		switch ctx.State {
		case hwdefs.CycleRead:
			ctx.incSched = true
			if v, ok := bc.read(ctx.Addr); ok {
				bc.drive(v)
			}
		case hwdefs.CycleWrite:
			ctx.incSched = true
			ctx.writeSched = true
		}
	}

	if vec, ok := bc.IRQ.step(b, ctx.State); ok {
		bc.drive(vec)
	}
	if bc.IRQ.state == IRQRequestPending {
		ctx.aux |= trace.AuxIntReq
	}

	if bc.DMA.requested.Load() && !bc.DMA.acked.Load() {
		ctx.aux |= trace.AuxDMAReq | trace.AuxHalt
		bc.DMA.acknowledge(ctx.State)
	}
}

// AddLogContext implements log.Context.
func (bc *BusController) AddLogContext(z *log.EntryZ) {
	z.Uint("cycle", bc.ctx.Cycles).Hex16("addr", bc.ctx.Addr)
}

// Snapshot returns the state of the controller.
func (bc *BusController) Snapshot() *snapshot.Bus {
	return &snapshot.Bus{
		Cycles:     bc.ctx.Cycles,
		Addr:       bc.ctx.Addr,
		PendingLow: bc.ctx.PendingLow,
		Ctrl:       uint8(bc.ctx.Ctrl),
		State:      bc.ctx.State.String(),
		Driving:    bc.ctx.driving,
		Armed:      bc.armed,
		IRQ: snapshot.IRQ{
			State:    bc.IRQ.state.String(),
			Vector:   bc.IRQ.Vector,
			Pending:  bc.IRQ.Pending(),
			Enabled:  bc.IRQ.Enabled(),
			Serviced: bc.IRQ.Serviced(),
			Lost:     bc.IRQ.Lost(),
		},
		DMA: snapshot.DMA{
			State:     bc.DMA.state.String(),
			Requested: bc.DMA.requested.Load(),
			Acked:     bc.DMA.acked.Load(),
			Active:    bc.DMA.active.Load(),
			Transfers: bc.DMA.transfers,
			Refreshes: bc.DMA.refreshes,
		},
	}
}
