package emu

import (
	"bytes"
	"errors"
	"fmt"

	"ebtks/emu/log"
	"ebtks/hw/backplane"
	"ebtks/hw/snapshot"
)

// Scenario step operations.
const (
	OpLoad     = "load"      // host address load
	OpRead     = "read"      // host reads
	OpWrite    = "write"     // host writes
	OpIdle     = "idle"      // host idle cycles
	OpWait     = "wait"      // run clock cycles
	OpRaise    = "raise"     // post an interrupt request
	OpWithdraw = "withdraw"  // cancel an interrupt request
	OpVectors  = "vectors"   // check the vectors acknowledged so far
	OpDMARead  = "dma_read"  // DMA read from host memory
	OpDMAWrite = "dma_write" // DMA write to host memory
)

// Step is one operation of a scenario. Host operations are queued and run
// concurrently with the following steps, DMA transfers and waits run the
// clock until they complete.
type Step struct {
	Op        string `toml:"op"`
	Addr      uint16 `toml:"addr,omitempty"`
	Count     int    `toml:"count,omitempty"`
	Data      []int  `toml:"data,omitempty"`
	Requester string `toml:"requester,omitempty"` // raise and withdraw, none for the device
	Expect    []int  `toml:"expect,omitempty"`
}

func (st *Step) validate(requesters map[string]bool) error {
	switch st.Op {
	case OpLoad:
	case OpRead, OpIdle, OpWait, OpDMARead:
		if st.Count <= 0 {
			return fmt.Errorf("count must be positive")
		}
	case OpWrite, OpDMAWrite:
		if len(st.Data) == 0 {
			return fmt.Errorf("missing data")
		}
	case OpRaise, OpWithdraw:
		if st.Requester != "" && !requesters[st.Requester] {
			return fmt.Errorf("unknown requester %q", st.Requester)
		}
	case OpVectors:
	default:
		return fmt.Errorf("unknown operation")
	}
	if _, err := bytesOf(st.Data); err != nil {
		return err
	}
	if _, err := bytesOf(st.Expect); err != nil {
		return fmt.Errorf("expect: %w", err)
	}
	if len(st.Expect) > 0 && st.Op != OpRead && st.Op != OpDMARead && st.Op != OpVectors {
		return fmt.Errorf("expect is only valid for read, dma_read and vectors")
	}
	return nil
}

// StepResult is the outcome of a scenario step.
type StepResult struct {
	Step Step
	Data []byte // bytes read, or acknowledged vectors
	N    int    // bytes transferred by DMA
}

// Report is the outcome of a scenario.
type Report struct {
	Steps      []StepResult
	Vectors    []uint8
	Violations []backplane.Violation
	Bus        *snapshot.Bus
	Host       *snapshot.Backplane
}

// Run executes the scenario steps of the configuration, then lets the host
// finish its queued cycles. The returned error reports bus violations and
// unmet expectations; the report is returned in any case.
func (m *Machine) Run() (*Report, error) {
	rep := &Report{Steps: make([]StepResult, len(m.steps))}
	bp := m.Backplane
	host := bp.Host
	reads := make(map[int]*backplane.Op)

	var errs []error
	expect := func(i int, got []byte) {
		want, _ := bytesOf(m.steps[i].Expect)
		if len(want) > 0 && !bytes.Equal(got, want) {
			errs = append(errs, fmt.Errorf("step #%d (%s): got % X, want % X", i+1, m.steps[i].Op, got, want))
		}
	}

	for i, st := range m.steps {
		res := &rep.Steps[i]
		res.Step = st
		data, _ := bytesOf(st.Data)

		log.ModEmu.DebugZ("scenario step").
			Int("step", i+1).
			String("op", st.Op).
			Hex16("addr", st.Addr).
			Int("count", st.Count).
			End()

		switch st.Op {
		case OpLoad:
			host.LoadAddress(st.Addr)
		case OpRead:
			reads[i] = host.Read(st.Count)
		case OpWrite:
			host.Write(data...)
		case OpIdle:
			host.Idle(st.Count)
		case OpWait:
			bp.Run(st.Count)
		case OpRaise:
			if st.Requester == "" {
				m.Bus.IRQ.Raise()
			} else {
				bp.Requester(st.Requester).Raise()
			}
		case OpWithdraw:
			if st.Requester == "" {
				m.Bus.IRQ.Withdraw()
			} else {
				bp.Requester(st.Requester).Withdraw()
			}
		case OpVectors:
			if err := bp.Drain(); err != nil {
				errs = append(errs, fmt.Errorf("step #%d (%s): %w", i+1, st.Op, err))
			}
			res.Data = host.Vectors()
			expect(i, res.Data)
		case OpDMARead:
			buf := make([]byte, st.Count)
			res.N = m.Bus.DMA.ReadBlock(st.Addr, buf)
			res.Data = buf[:res.N]
			expect(i, res.Data)
		case OpDMAWrite:
			res.N = m.Bus.DMA.WriteBlock(st.Addr, data)
			if res.N != len(data) {
				errs = append(errs, fmt.Errorf("step #%d (%s): wrote %d bytes, want %d", i+1, st.Op, res.N, len(data)))
			}
		}
	}

	if err := bp.Drain(); err != nil {
		errs = append(errs, err)
	}
	for i := range m.steps {
		if op, ok := reads[i]; ok {
			rep.Steps[i].Data = op.Data()
			expect(i, rep.Steps[i].Data)
		}
	}

	rep.Vectors = host.Vectors()
	rep.Violations = bp.Violations()
	rep.Bus = m.Bus.Snapshot()
	rep.Host = bp.Snapshot()

	if n := len(rep.Violations); n > 0 {
		errs = append(errs, fmt.Errorf("%d bus violations, first at %s", n, rep.Violations[0]))
	}
	return rep, errors.Join(errs...)
}
