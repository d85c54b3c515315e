// Package backplane simulates the host side of the bus, with enough
// accuracy to run the bus controller on a development machine.
//
// Time only advances when the device code waits (WaitEdge, Delay, Idle).
// Each clock cycle is made of 5 edges:
//
//	phi1 rise   clock interrupt, host memory drives DMA read data
//	phi1 fall   host control lines change, DMA writes and address bytes latched
//	hold end    host stops driving the data of the previous cycle
//	phi2 rise   host drives write data and address bytes, requesters act
//	phi2 fall   host samples read data and vectors, decides the next cycle
//
// Violations of the bus protocol by the device (data bus contention,
// strobes outside phase 2, late clock interrupts, missing refresh) are
// recorded, not fatal.
package backplane

import (
	"fmt"

	"ebtks/emu/log"
	"ebtks/hw/hwdefs"
	"ebtks/hw/hwio"
	"ebtks/hw/snapshot"
)

type edge uint8

const (
	edgePhi1Rise edge = iota
	edgePhi1Fall
	edgeHoldEnd
	edgePhi2Rise
	edgePhi2Fall

	numEdges = 5
)

// Config describes the clock geometry and the checks performed.
type Config struct {
	PeriodNs   uint32 // clock period
	Phi1Ns     uint32 // phase 1 high time, from the start of the cycle
	HostHoldNs uint32 // host data hold time past phase-1 falling edge
	Phi2RiseNs uint32 // phase 2 rising edge, from the start of the cycle
	Phi2Ns     uint32 // phase 2 high time

	// LateISRNs is the maximum latency of the clock interrupt.
	LateISRNs uint32

	// RefreshLimit is the maximum number of consecutive DMA transfer cycles,
	// 0 disables the check.
	RefreshLimit int

	// DevicePriority is the position of the device in the interrupt
	// priority chain, lower is higher priority.
	DevicePriority int

	// AckInterrupts makes the host run interrupt acknowledge cycles when
	// the interrupt line is asserted.
	AckInterrupts bool
}

// DefaultConfig returns the HP-85 timings.
func DefaultConfig() Config {
	return Config{
		PeriodNs:       1640,
		Phi1Ns:         330,
		HostHoldNs:     60,
		Phi2RiseNs:     820,
		Phi2Ns:         330,
		LateISRNs:      100,
		RefreshLimit:   64,
		DevicePriority: 1,
		AckInterrupts:  true,
	}
}

func (cfg Config) offsets() ([numEdges]uint64, error) {
	offs := [numEdges]uint64{
		edgePhi1Rise: 0,
		edgePhi1Fall: uint64(cfg.Phi1Ns),
		edgeHoldEnd:  uint64(cfg.Phi1Ns + cfg.HostHoldNs),
		edgePhi2Rise: uint64(cfg.Phi2RiseNs),
		edgePhi2Fall: uint64(cfg.Phi2RiseNs + cfg.Phi2Ns),
	}
	for e := 1; e < numEdges; e++ {
		if offs[e] <= offs[e-1] {
			return offs, fmt.Errorf("clock edges out of order: %v", offs)
		}
	}
	if offs[edgePhi2Fall] >= uint64(cfg.PeriodNs) {
		return offs, fmt.Errorf("phase 2 ends after the period (%dns >= %dns)", offs[edgePhi2Fall], cfg.PeriodNs)
	}
	return offs, nil
}

// Data bus drivers.
type driver uint8

const (
	drvDevice driver = iota
	drvHost
	drvMemory
	drvRequester

	numDrivers
)

var driverNames = [numDrivers]string{"device", "host", "memory", "requester"}

// Violation is a bus protocol error.
type Violation struct {
	Cycle uint64
	At    uint64 // ns
	Msg   string
}

func (v Violation) String() string {
	return fmt.Sprintf("cycle %d (+%dns): %s", v.Cycle, v.At, v.Msg)
}

// Backplane implements hal.Board.
type Backplane struct {
	cfg  Config
	offs [numEdges]uint64

	now   uint64
	next  uint64 // index of the next unprocessed edge
	cycle uint64

	phi1, phi2   bool
	lastPhi1Rise uint64

	// Data bus.
	drivers uint8
	busVal  [numDrivers]uint8

	// Device outputs.
	lines   [hwdefs.NumLines]bool
	devCtrl hwdefs.Ctrl
	master  bool
	priIn   bool

	// Strobes issued by the device as bus master.
	strobeStart [hwdefs.NumLines]uint64
	strobeCycle [hwdefs.NumLines]uint64
	strobed     bool // a strobe was issued this cycle
	dataStrobe  bool // a RD or WR strobe was issued this cycle
	refreshRun  int

	// Host memory operation triggered by the strobe of the previous cycle.
	memOp      hwdefs.Line
	memPending bool
	memOpCycle uint64

	// Host memory, answers DMA strobes.
	ram []byte
	mem hwio.Resource
	mar uint16

	// Clock interrupt.
	handler    func()
	clockIRQ   bool
	masked     bool
	inISR      bool
	irqLatched bool
	isrCount   uint64

	Host       *Host
	requesters []*Requester

	violations []Violation
}

// New creates a backplane with 64KB of host memory.
func New(cfg Config) (*Backplane, error) {
	offs, err := cfg.offsets()
	if err != nil {
		return nil, fmt.Errorf("backplane: %w", err)
	}
	bp := &Backplane{
		cfg:  cfg,
		offs: offs,
		ram:  make([]byte, 0x10000),
	}
	hostmem := hwio.Mem{Name: "host memory", Data: bp.ram}
	bp.mem = hostmem.Resource()
	bp.Host = newHost(bp)
	return bp, nil
}

func (bp *Backplane) Config() Config { return bp.cfg }

// Memory returns the host memory.
func (bp *Backplane) Memory() []byte { return bp.ram }

// Cycle returns the index of the current cycle.
func (bp *Backplane) Cycle() uint64 { return bp.cycle }

func (bp *Backplane) Violations() []Violation { return bp.violations }

// ISRCount returns the number of clock interrupts serviced.
func (bp *Backplane) ISRCount() uint64 { return bp.isrCount }

func (bp *Backplane) violation(format string, args ...any) {
	v := Violation{Cycle: bp.cycle, At: bp.now - bp.lastPhi1Rise, Msg: fmt.Sprintf(format, args...)}
	bp.violations = append(bp.violations, v)
	log.ModSim.WarnZ("bus violation").
		Uint("cycle", v.Cycle).
		Nanos("at", v.At).
		String("msg", v.Msg).
		End()
}

func (bp *Backplane) edgeTime(idx uint64) uint64 {
	return (idx/numEdges)*uint64(bp.cfg.PeriodNs) + bp.offs[idx%numEdges]
}

// advance moves time to t, processing every edge up to t. It is re-entered
// from the clock interrupt.
func (bp *Backplane) advance(t uint64) {
	for bp.edgeTime(bp.next) <= t {
		idx := bp.next
		bp.now = bp.edgeTime(idx)
		bp.next++
		bp.processEdge(idx)
	}
	if t > bp.now {
		bp.now = t
	}
}

func (bp *Backplane) processEdge(idx uint64) {
	switch edge(idx % numEdges) {
	case edgePhi1Rise:
		bp.cycle = idx / numEdges
		bp.phi1 = true
		bp.lastPhi1Rise = bp.now
		if bp.memPending && bp.memOp == hwdefs.RD && bp.memOpCycle == bp.cycle {
			bp.drive(drvMemory, bp.mem.Read8(bp.mar))
			bp.mar++
		}
		bp.irqLatched = true
		bp.serviceIRQ()

	case edgePhi1Fall:
		bp.phi1 = false
		if bp.memPending && bp.memOpCycle == bp.cycle {
			switch bp.memOp {
			case hwdefs.WR:
				bp.mem.Write8(bp.mar, bp.ReadData())
				bp.mar++
			case hwdefs.LMA:
				bp.mar = uint16(bp.ReadData())<<8 | bp.mar>>8
			}
			bp.memPending = false
		}
		bp.undrive(drvMemory)
		bp.latchPriority()
		bp.Host.phi1Fall()

	case edgeHoldEnd:
		bp.undrive(drvHost)

	case edgePhi2Rise:
		bp.phi2 = true
		bp.Host.phi2Rise()
		for _, r := range bp.requesters {
			r.phi2Rise(bp)
		}

	case edgePhi2Fall:
		bp.phi2 = false
		bp.Host.phi2Fall()
		bp.undrive(drvRequester)
		bp.checkRefresh()
	}
}

func (bp *Backplane) drive(who driver, v uint8) {
	if others := bp.drivers &^ (1 << who); others != 0 {
		for d := range numDrivers {
			if others&(1<<d) != 0 {
				bp.violation("data bus contention: %s drives %02X while %s drives %02X",
					driverNames[who], v, driverNames[d], bp.busVal[d])
			}
		}
	}
	bp.drivers |= 1 << who
	bp.busVal[who] = v
}

func (bp *Backplane) undrive(who driver) {
	bp.drivers &^= 1 << who
}

// irl is the wired-or interrupt line.
func (bp *Backplane) irl() bool {
	if bp.lines[hwdefs.IntReq] {
		return true
	}
	for _, r := range bp.requesters {
		if r.requesting {
			return true
		}
	}
	return false
}

func (bp *Backplane) latchPriority() {
	devOut := bp.lines[hwdefs.PriOut]
	bp.priIn = false
	for _, r := range bp.requesters {
		if r.Priority < bp.cfg.DevicePriority && r.requesting {
			bp.priIn = true
		}
	}
	for _, r := range bp.requesters {
		r.priIn = devOut && bp.cfg.DevicePriority < r.Priority
		for _, o := range bp.requesters {
			if o.Priority < r.Priority && o.requesting {
				r.priIn = true
			}
		}
	}
}

func (bp *Backplane) checkRefresh() {
	if bp.dataStrobe {
		bp.refreshRun++
		if bp.cfg.RefreshLimit > 0 && bp.refreshRun == bp.cfg.RefreshLimit+1 {
			bp.violation("more than %d consecutive DMA cycles without refresh", bp.cfg.RefreshLimit)
		}
	} else {
		bp.refreshRun = 0
	}
	bp.dataStrobe = false
	bp.strobed = false
}

func (bp *Backplane) serviceIRQ() {
	for bp.irqLatched && bp.clockIRQ && !bp.masked && !bp.inISR && bp.handler != nil {
		bp.irqLatched = false
		if lat := bp.now - bp.lastPhi1Rise; lat > uint64(bp.cfg.LateISRNs) {
			bp.violation("clock interrupt serviced %dns after phase-1 rising edge", lat)
		}
		bp.inISR = true
		bp.handler()
		bp.inISR = false
		bp.isrCount++
	}
}

// AddRequester adds a scripted interrupt requester to the priority chain.
func (bp *Backplane) AddRequester(name string, vector uint8, priority int) (*Requester, error) {
	if priority == bp.cfg.DevicePriority {
		return nil, fmt.Errorf("requester %s: priority %d is the device's", name, priority)
	}
	for _, r := range bp.requesters {
		if r.Priority == priority {
			return nil, fmt.Errorf("requester %s: priority %d already used by %s", name, priority, r.Name)
		}
	}
	r := &Requester{Name: name, Vector: vector, Priority: priority}
	bp.requesters = append(bp.requesters, r)
	return r, nil
}

// Requester returns the requester with the given name, or nil.
func (bp *Backplane) Requester(name string) *Requester {
	for _, r := range bp.requesters {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// Run runs n clock cycles from the foreground.
func (bp *Backplane) Run(n int) {
	for range n {
		bp.Idle()
	}
}

// Drain runs until every queued host cycle has completed, plus two cycles
// so that the device sees the end of the last one.
func (bp *Backplane) Drain() error {
	limit := bp.cycle + uint64(bp.Host.Queued())*8 + 1000
	for bp.Host.Queued() > 0 || bp.Host.busy() {
		if bp.cycle > limit {
			return fmt.Errorf("host stalled at cycle %d with %d queued cycles", bp.cycle, bp.Host.Queued())
		}
		bp.Idle()
	}
	bp.Run(2)
	return nil
}

// Snapshot returns the state of the simulated host.
func (bp *Backplane) Snapshot() *snapshot.Backplane {
	return &snapshot.Backplane{
		Cycle:      bp.cycle,
		Now:        bp.now,
		HostHalted: bp.Host.halted,
		HostAddr:   bp.Host.addr,
		Queued:     bp.Host.Queued(),
		Violations: len(bp.violations),
	}
}

// AddLogContext implements log.Context.
func (bp *Backplane) AddLogContext(z *log.EntryZ) {
	z.Nanos("t", bp.now)
}
