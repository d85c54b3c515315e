package emu

import (
	"fmt"
	"os"
	"path/filepath"

	"ebtks/emu/log"
	"ebtks/hw"
	"ebtks/hw/backplane"
	"ebtks/hw/trace"
)

// Machine is a bus controller plugged into a simulated backplane, with its
// option ROMs, RAM expansion and the scripted host side requesters.
type Machine struct {
	Backplane *backplane.Backplane
	Bus       *hw.BusController
	ROMs      *hw.RomBank
	RAM       *hw.RAMExpansion // nil without RAM expansion

	steps []Step
}

// PowerUp builds the machine described by cfg and arms the bus controller.
func PowerUp(cfg Config) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("power up failed: %w", err)
	}

	bp, err := backplane.New(cfg.backplane())
	if err != nil {
		return nil, fmt.Errorf("power up failed: %w", err)
	}
	m := &Machine{
		Backplane: bp,
		Bus:       hw.NewBusController(bp),
		ROMs:      hw.NewRomBank(),
		steps:     cfg.Steps,
	}

	// Host side.
	mem := bp.Memory()
	for _, mc := range cfg.Memory {
		data, _ := bytesOf(mc.Data)
		n := copy(mem[mc.Addr:], data)
		copy(mem[int(mc.Addr)+n:], mc.Text)
	}
	for _, rc := range cfg.Requesters {
		if _, err := bp.AddRequester(rc.Name, rc.Vector, rc.Priority); err != nil {
			return nil, fmt.Errorf("power up failed: %w", err)
		}
	}

	// Device side.
	bc := m.Bus
	if cfg.Trace.Depth > 0 {
		bc.Trace = trace.NewRing(cfg.Trace.Depth)
		if cfg.Trace.Start {
			bc.Trace.Start()
		}
	}

	if len(cfg.ROMs) > 0 {
		for _, rc := range cfg.ROMs {
			img, err := rc.image(cfg.dir)
			if err != nil {
				return nil, fmt.Errorf("power up failed: %w", err)
			}
			if err := m.ROMs.Load(rc.ID, img); err != nil {
				return nil, fmt.Errorf("power up failed: %w", err)
			}
		}
		m.ROMs.Install(bc)
	}

	if cfg.RAM.Size > 0 {
		m.RAM = hw.NewRAMExpansion(cfg.RAM.Base, cfg.RAM.Size)
		m.RAM.Install(bc)
	}

	bc.IRQ.Vector = cfg.Interrupt.Vector
	if cfg.Interrupt.Armed {
		bc.IRQ.Arm()
	}
	if slot := cfg.Interrupt.ControlSlot; slot != nil {
		bc.MapReg8(*slot, bc.IRQ.ControlReg("irqctl"))
	}

	bc.Arm()

	log.ModEmu.InfoZ("machine powered up").
		Int("roms", len(cfg.ROMs)).
		Int("ram", cfg.RAM.Size).
		Int("requesters", len(cfg.Requesters)).
		Int("steps", len(cfg.Steps)).
		End()
	return m, nil
}

func (rc ROMConfig) image(dir string) ([]byte, error) {
	if rc.File == "" {
		return bytesOf(rc.Data)
	}
	path := rc.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	img, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rom %03o: %w", rc.ID, err)
	}
	return img, nil
}

// Records returns the traced bus cycles, oldest first.
func (m *Machine) Records() []trace.Record {
	if m.Bus.Trace == nil {
		return nil
	}
	return m.Bus.Trace.Records()
}

// AddLogContext implements log.Context.
func (m *Machine) AddLogContext(z *log.EntryZ) {
	m.Backplane.AddLogContext(z)
	m.Bus.AddLogContext(z)
}
