package emu

import (
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"ebtks/emu/log"
	"ebtks/hw/hwdefs"
)

// A Check is a built-in scenario exercising one part of the bus
// controller.
type Check struct {
	Name   string
	Help   string
	Config func() Config
}

// CheckResult is the outcome of a check.
type CheckResult struct {
	Name    string
	Report  *Report
	Err     error
	Elapsed time.Duration
}

func u8(vals ...uint8) []int {
	ints := make([]int, len(vals))
	for i, v := range vals {
		ints[i] = int(v)
	}
	return ints
}

func pattern(n int) []int {
	ints := make([]int, n)
	for i := range ints {
		ints[i] = (i*37 + 11) & 0xFF
	}
	return ints
}

func slot(s uint8) *uint8 { return &s }

var Checks = []Check{
	{
		Name: "open-bus",
		Help: "unclaimed reads leave the bus floating",
		Config: func() Config {
			cfg := DefaultConfig()
			cfg.Steps = []Step{
				{Op: OpLoad, Addr: 0x1000},
				{Op: OpRead, Count: 2, Expect: u8(0xFF, 0xFF)},
				{Op: OpLoad, Addr: hwdefs.RomWindow},
				{Op: OpRead, Count: 1, Expect: u8(0xFF)},
				{Op: OpLoad, Addr: 0xFF30},
				{Op: OpRead, Count: 2, Expect: u8(0xFF, 0xFF)},
			}
			return cfg
		},
	},
	{
		Name: "option-rom",
		Help: "bank-switched option ROM selected through RSELEC",
		Config: func() Config {
			cfg := DefaultConfig()
			cfg.ROMs = []ROMConfig{
				{ID: 0o321, Data: u8(0x01, 0x02, 0x03)},
				{ID: 0o322, Data: u8(0xAA)},
			}
			cfg.Steps = []Step{
				{Op: OpLoad, Addr: 0xFF00 | uint16(hwdefs.RSELEC)},
				{Op: OpWrite, Data: u8(0o321)},
				{Op: OpLoad, Addr: hwdefs.RomWindow},
				{Op: OpRead, Count: 4, Expect: u8(0x01, 0x02, 0x03, 0xFF)},
				{Op: OpLoad, Addr: 0xFF00 | uint16(hwdefs.RSELEC)},
				{Op: OpWrite, Data: u8(0o322)},
				{Op: OpLoad, Addr: hwdefs.RomWindow},
				{Op: OpRead, Count: 1, Expect: u8(0xAA)},
				{Op: OpLoad, Addr: 0xFF00 | uint16(hwdefs.RSELEC)},
				{Op: OpWrite, Data: u8(0o001)},
				{Op: OpLoad, Addr: hwdefs.RomWindow},
				{Op: OpRead, Count: 1, Expect: u8(0xFF)},
			}
			return cfg
		},
	},
	{
		Name: "ram-expansion",
		Help: "host writes and reads back the RAM expansion",
		Config: func() Config {
			cfg := DefaultConfig()
			cfg.RAM = RAMConfig{Base: 0x8000, Size: 0x1000}
			cfg.Steps = []Step{
				{Op: OpLoad, Addr: 0x8FFE},
				{Op: OpWrite, Data: u8(0xCA, 0xFE, 0x01)},
				{Op: OpLoad, Addr: 0x8FFE},
				{Op: OpRead, Count: 3, Expect: u8(0xCA, 0xFE, 0xFF)},
			}
			return cfg
		},
	},
	{
		Name: "interrupt-chain",
		Help: "a higher priority requester is serviced first",
		Config: func() Config {
			cfg := DefaultConfig()
			cfg.Interrupt.Priority = 1
			cfg.Requesters = []RequesterConfig{{Name: "hi", Vector: 0x10, Priority: 0}}
			cfg.Steps = []Step{
				{Op: OpRaise, Requester: "hi"},
				{Op: OpRaise},
				{Op: OpWait, Count: 20},
				{Op: OpVectors, Expect: u8(0x10, 0x40)},
			}
			return cfg
		},
	},
	{
		Name: "interrupt-control",
		Help: "the host arms interrupts through the control register",
		Config: func() Config {
			cfg := DefaultConfig()
			cfg.Interrupt.Armed = false
			cfg.Interrupt.ControlSlot = slot(0x20)
			cfg.Steps = []Step{
				{Op: OpRaise},
				{Op: OpWait, Count: 6},
				{Op: OpVectors},
				{Op: OpLoad, Addr: 0xFF20},
				{Op: OpRead, Count: 1, Expect: u8(0x02)},
				{Op: OpWrite, Data: u8(0x01)},
				{Op: OpWait, Count: 10},
				{Op: OpVectors, Expect: u8(0x40)},
			}
			return cfg
		},
	},
	{
		Name: "dma-read",
		Help: "DMA read of host memory",
		Config: func() Config {
			cfg := DefaultConfig()
			cfg.Memory = []MemoryConfig{{Addr: 0x1000, Data: u8(0x11, 0x22, 0x33, 0x44)}}
			cfg.Steps = []Step{
				{Op: OpDMARead, Addr: 0x1000, Count: 4, Expect: u8(0x11, 0x22, 0x33, 0x44)},
			}
			return cfg
		},
	},
	{
		Name: "dma-burst",
		Help: "long DMA transfers yield for memory refresh",
		Config: func() Config {
			data := pattern(3*64 + 7)
			cfg := DefaultConfig()
			cfg.Steps = []Step{
				{Op: OpDMAWrite, Addr: 0x2FF0, Data: data},
				{Op: OpDMARead, Addr: 0x2FF0, Count: len(data), Expect: data},
			}
			return cfg
		},
	},
	{
		Name: "dma-host-busy",
		Help: "DMA halts the host in the middle of its cycles",
		Config: func() Config {
			cfg := DefaultConfig()
			cfg.Memory = []MemoryConfig{{Addr: 0x8000, Text: "HP-85"}}
			cfg.RAM = RAMConfig{Base: 0xC000, Size: 0x100}
			cfg.Steps = []Step{
				{Op: OpLoad, Addr: 0xC000},
				{Op: OpWrite, Data: u8(1, 2, 3, 4, 5, 6, 7, 8)},
				{Op: OpWait, Count: 4},
				{Op: OpDMARead, Addr: 0x8000, Count: 5, Expect: u8('H', 'P', '-', '8', '5')},
				{Op: OpLoad, Addr: 0xC000},
				{Op: OpRead, Count: 8, Expect: u8(1, 2, 3, 4, 5, 6, 7, 8)},
			}
			return cfg
		},
	},
}

// CheckByName returns the built-in check called name.
func CheckByName(name string) (Check, bool) {
	for _, c := range Checks {
		if c.Name == name {
			return c, true
		}
	}
	return Check{}, false
}

// RunCheck powers up a machine for c and runs its scenario.
func RunCheck(c Check) CheckResult {
	start := time.Now()
	res := CheckResult{Name: c.Name}

	m, err := PowerUp(c.Config())
	if err != nil {
		res.Err = err
		return res
	}
	res.Report, res.Err = m.Run()
	res.Elapsed = time.Since(start)
	return res
}

// RunChecks runs checks concurrently, each on its own machine. Results are
// in the order of checks; the returned error is that of the first failed
// check.
func RunChecks(checks []Check) ([]CheckResult, error) {
	results := make([]CheckResult, len(checks))

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, c := range checks {
		g.Go(func() error {
			results[i] = RunCheck(c)
			if err := results[i].Err; err != nil {
				log.ModEmu.WarnZ("check failed").
					String("check", c.Name).
					Error("err", err).
					End()
				return fmt.Errorf("check %s: %w", c.Name, err)
			}
			return nil
		})
	}
	return results, g.Wait()
}
