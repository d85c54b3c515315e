package backplane

import (
	"ebtks/hw/hwdefs"
)

// Result is the outcome of one host cycle.
type Result struct {
	Addr    uint16 // address the host believes it accessed
	Data    uint8
	Claimed bool // a device answered (read and interrupt acknowledge)
}

// Op is a queued host operation. Results are filled as its cycles complete.
type Op struct {
	Name    string
	Results []Result

	cycles int
}

// Done reports whether all the cycles of the operation have completed.
func (op *Op) Done() bool { return len(op.Results) == op.cycles }

// Data returns the data bytes of the completed cycles.
func (op *Op) Data() []byte {
	buf := make([]byte, len(op.Results))
	for i, r := range op.Results {
		buf[i] = r.Data
	}
	return buf
}

type hostCycle struct {
	ctrl hwdefs.Ctrl
	data uint8 // driven in write and address load cycles
	addr uint16
	op   *Op

	// The next cycle belongs to the same transaction: no halt or
	// interrupt acknowledge may be inserted.
	locked bool
}

// Host is a scripted host CPU. Operations are queued from the foreground
// and executed back to back; with nothing queued the host runs idle
// cycles. It honours Halt (DMA acknowledge, then stays off the bus) and
// the interrupt line.
type Host struct {
	bp *Backplane

	queue []hostCycle
	cur   hostCycle
	addr  uint16 // address of the next cycle, as tracked by the host

	override hwdefs.Ctrl
	hasNext  bool
	halted   bool

	// AckInterrupts makes the host acknowledge interrupts.
	AckInterrupts bool

	acks   []Result
	dmaAck int
}

func newHost(bp *Backplane) *Host {
	return &Host{bp: bp, AckInterrupts: bp.cfg.AckInterrupts}
}

// Queued returns the number of host cycles not yet started.
func (h *Host) Queued() int { return len(h.queue) }

func (h *Host) busy() bool { return h.cur.op != nil }

func (h *Host) Halted() bool { return h.halted }

// Addr returns the address the host will access next.
func (h *Host) Addr() uint16 { return h.addr }

// Acks returns the results of the interrupt acknowledge cycles.
func (h *Host) Acks() []Result { return h.acks }

// Vectors returns the vectors received on claimed acknowledge cycles.
func (h *Host) Vectors() []uint8 {
	var vecs []uint8
	for _, r := range h.acks {
		if r.Claimed {
			vecs = append(vecs, r.Data)
		}
	}
	return vecs
}

// DMAAcks returns the number of DMA acknowledge cycles run.
func (h *Host) DMAAcks() int { return h.dmaAck }

func (h *Host) push(op *Op, c hostCycle) {
	c.op = op
	op.cycles++
	h.queue = append(h.queue, c)
}

// LoadAddress queues the two address load cycles of addr, low byte first.
func (h *Host) LoadAddress(addr uint16) *Op {
	op := &Op{Name: "load"}
	h.push(op, hostCycle{ctrl: hwdefs.CtrlLMA, data: uint8(addr), addr: h.addr, locked: true})
	h.push(op, hostCycle{ctrl: hwdefs.CtrlLMA, data: uint8(addr >> 8), addr: h.addr})
	h.addr = addr
	return op
}

func (h *Host) step() uint16 {
	a := h.addr
	if !hwdefs.IsIO(a) {
		h.addr++
	}
	return a
}

// Read queues n read cycles.
func (h *Host) Read(n int) *Op {
	op := &Op{Name: "read"}
	for range n {
		h.push(op, hostCycle{ctrl: hwdefs.CtrlRD, addr: h.step()})
	}
	return op
}

// Write queues one write cycle per value.
func (h *Host) Write(vals ...uint8) *Op {
	op := &Op{Name: "write"}
	for _, v := range vals {
		h.push(op, hostCycle{ctrl: hwdefs.CtrlWR, data: v, addr: h.step()})
	}
	return op
}

// Idle queues n cycles without any control line asserted.
func (h *Host) Idle(n int) *Op {
	op := &Op{Name: "idle"}
	for range n {
		h.push(op, hostCycle{addr: h.addr})
	}
	return op
}

func (h *Host) phi1Fall() {
	switch {
	case h.hasNext:
		h.cur = hostCycle{ctrl: h.override, addr: h.addr}
		h.hasNext = false
	case h.halted:
		h.cur = hostCycle{}
	case len(h.queue) > 0:
		h.cur = h.queue[0]
		h.queue = h.queue[1:]
	default:
		h.cur = hostCycle{addr: h.addr}
	}
}

func (h *Host) phi2Rise() {
	c := h.cur.ctrl
	if hwdefs.IsAddressLoad(c) || hwdefs.Classify(c) == hwdefs.CycleWrite {
		h.bp.drive(drvHost, h.cur.data)
	}
}

func (h *Host) phi2Fall() {
	bp := h.bp

	switch hwdefs.Classify(h.cur.ctrl) {
	case hwdefs.CycleIntAck:
		h.acks = append(h.acks, Result{
			Data:    bp.ReadData(),
			Claimed: bp.drivers != 0,
		})
	case hwdefs.CycleDMAAck:
		h.dmaAck++
	}

	if op := h.cur.op; op != nil {
		r := Result{Addr: h.cur.addr, Data: h.cur.data}
		if h.cur.ctrl == hwdefs.CtrlRD {
			r.Data = bp.ReadData()
			r.Claimed = bp.lines[hwdefs.Ready]
		}
		op.Results = append(op.Results, r)
		h.cur.op = nil
	}
	if h.cur.locked {
		return
	}

	halt := bp.lines[hwdefs.Halt]
	switch {
	case h.halted:
		if !halt {
			h.halted = false
		}
	case halt:
		h.override = hwdefs.CtrlRD | hwdefs.CtrlWR
		h.hasNext = true
		h.halted = true
	case h.AckInterrupts && bp.irl():
		h.override = hwdefs.CtrlLMA | hwdefs.CtrlRD | hwdefs.CtrlWR
		h.hasNext = true
	}
}
