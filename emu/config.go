package emu

import (
	"errors"
	"fmt"
	"io/fs"
	"math/bits"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/kirsle/configdir"

	"ebtks/emu/log"
	"ebtks/hw/backplane"
)

// Config describes a machine and, optionally, the scenario to run on it.
type Config struct {
	Clock      ClockConfig       `toml:"clock"`
	Trace      TraceConfig       `toml:"trace"`
	Interrupt  InterruptConfig   `toml:"interrupt"`
	ROMs       []ROMConfig       `toml:"rom"`
	RAM        RAMConfig         `toml:"ram"`
	Memory     []MemoryConfig    `toml:"memory"`
	Requesters []RequesterConfig `toml:"requester"`
	Steps      []Step            `toml:"step"`

	// directory of the config file, ROM paths are relative to it.
	dir string
}

// ClockConfig is the geometry of the simulated backplane clock.
type ClockConfig struct {
	PeriodNs      uint32 `toml:"period_ns"`
	Phi1Ns        uint32 `toml:"phi1_ns"`
	HostHoldNs    uint32 `toml:"host_hold_ns"`
	Phi2RiseNs    uint32 `toml:"phi2_rise_ns"`
	Phi2Ns        uint32 `toml:"phi2_ns"`
	LateISRNs     uint32 `toml:"late_isr_ns"`
	RefreshLimit  int    `toml:"refresh_limit"`
	AckInterrupts bool   `toml:"ack_interrupts"`
}

type TraceConfig struct {
	Depth int  `toml:"depth"` // power of 2, 0 disables tracing
	Start bool `toml:"start"`
}

type InterruptConfig struct {
	Vector   uint8 `toml:"vector"`
	Priority int   `toml:"priority"`
	Armed    bool  `toml:"armed"`

	// ControlSlot is the I/O slot of the interrupt control register, if
	// mapped.
	ControlSlot *uint8 `toml:"control_slot,omitempty"`
}

// ROMConfig is an option ROM image, read from File or given inline.
type ROMConfig struct {
	ID   uint8  `toml:"id"`
	File string `toml:"file,omitempty"`
	Data []int  `toml:"data,omitempty"`
}

type RAMConfig struct {
	Base uint16 `toml:"base"`
	Size int    `toml:"size"` // power of 2, 0 for none
}

// MemoryConfig preloads host memory.
type MemoryConfig struct {
	Addr uint16 `toml:"addr"`
	Data []int  `toml:"data,omitempty"`
	Text string `toml:"text,omitempty"`
}

// RequesterConfig is a scripted interrupt requester on the host side.
type RequesterConfig struct {
	Name     string `toml:"name"`
	Vector   uint8  `toml:"vector"`
	Priority int    `toml:"priority"`
}

// DefaultConfig returns a machine with HP-85 timings, tracing enabled and
// the interrupt logic armed on vector 0x40.
func DefaultConfig() Config {
	bp := backplane.DefaultConfig()
	return Config{
		Clock: ClockConfig{
			PeriodNs:      bp.PeriodNs,
			Phi1Ns:        bp.Phi1Ns,
			HostHoldNs:    bp.HostHoldNs,
			Phi2RiseNs:    bp.Phi2RiseNs,
			Phi2Ns:        bp.Phi2Ns,
			LateISRNs:     bp.LateISRNs,
			RefreshLimit:  bp.RefreshLimit,
			AckInterrupts: bp.AckInterrupts,
		},
		Trace: TraceConfig{Depth: 4096, Start: true},
		Interrupt: InterruptConfig{
			Vector:   0x40,
			Priority: bp.DevicePriority,
			Armed:    true,
		},
	}
}

func (cfg Config) backplane() backplane.Config {
	return backplane.Config{
		PeriodNs:       cfg.Clock.PeriodNs,
		Phi1Ns:         cfg.Clock.Phi1Ns,
		HostHoldNs:     cfg.Clock.HostHoldNs,
		Phi2RiseNs:     cfg.Clock.Phi2RiseNs,
		Phi2Ns:         cfg.Clock.Phi2Ns,
		LateISRNs:      cfg.Clock.LateISRNs,
		RefreshLimit:   cfg.Clock.RefreshLimit,
		DevicePriority: cfg.Interrupt.Priority,
		AckInterrupts:  cfg.Clock.AckInterrupts,
	}
}

func isPow2(n int) bool { return n > 0 && bits.OnesCount(uint(n)) == 1 }

func bytesOf(vals []int) ([]byte, error) {
	buf := make([]byte, len(vals))
	for i, v := range vals {
		if v < 0 || v > 0xFF {
			return nil, fmt.Errorf("value %d at index %d is not a byte", v, i)
		}
		buf[i] = byte(v)
	}
	return buf, nil
}

// Validate checks the configuration for errors that would otherwise be
// detected while building the machine.
func (cfg *Config) Validate() error {
	if cfg.Trace.Depth != 0 && !isPow2(cfg.Trace.Depth) {
		return fmt.Errorf("trace: depth %d is not a power of 2", cfg.Trace.Depth)
	}
	if cfg.RAM.Size != 0 {
		if !isPow2(cfg.RAM.Size) || cfg.RAM.Size > 0x10000 {
			return fmt.Errorf("ram: size %d is not a power of 2 up to 64K", cfg.RAM.Size)
		}
		if int(cfg.RAM.Base)%cfg.RAM.Size != 0 {
			return fmt.Errorf("ram: base %04X is not aligned on its size", cfg.RAM.Base)
		}
	}
	for i, rom := range cfg.ROMs {
		if (rom.File == "") == (len(rom.Data) == 0) {
			return fmt.Errorf("rom #%d (id %03o): exactly one of file and data must be set", i, rom.ID)
		}
		if _, err := bytesOf(rom.Data); err != nil {
			return fmt.Errorf("rom #%d: %w", i, err)
		}
	}
	for i, mem := range cfg.Memory {
		if _, err := bytesOf(mem.Data); err != nil {
			return fmt.Errorf("memory #%d: %w", i, err)
		}
		if n := int(mem.Addr) + len(mem.Data) + len(mem.Text); n > 0x10000 {
			return fmt.Errorf("memory #%d: %d bytes past the end of memory", i, n-0x10000)
		}
	}
	names := make(map[string]bool)
	for _, req := range cfg.Requesters {
		if req.Name == "" {
			return fmt.Errorf("requester: missing name")
		}
		if names[req.Name] {
			return fmt.Errorf("requester %q: defined twice", req.Name)
		}
		names[req.Name] = true
	}
	for i := range cfg.Steps {
		if err := cfg.Steps[i].validate(names); err != nil {
			return fmt.Errorf("step #%d (%s): %w", i+1, cfg.Steps[i].Op, err)
		}
	}
	return nil
}

// ConfigDir returns the ebtks directory in the user configuration
// directory, creating it if needed.
var ConfigDir = sync.OnceValue(func() string {
	dir := configdir.LocalConfig("ebtks")
	if err := configdir.MakePath(dir); err != nil {
		log.ModEmu.Warnf("failed to create directory %s: %v", dir, err)
	}
	return dir
})

const cfgFilename = "config.toml"

// LoadConfig reads the configuration at path. Unset values keep their
// default.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if und := md.Undecoded(); len(und) > 0 {
		return Config{}, fmt.Errorf("load config: %s: unknown keys %v", path, und)
	}
	cfg.dir = filepath.Dir(path)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config: %s: %w", path, err)
	}
	return cfg, nil
}

// LoadConfigOrDefault loads the configuration from the ebtks config
// directory, or provides the default one.
func LoadConfigOrDefault() Config {
	path := filepath.Join(ConfigDir(), cfgFilename)
	cfg, err := LoadConfig(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.ModEmu.Warnf("using default configuration: %v", err)
		}
		return DefaultConfig()
	}
	return cfg
}

// SaveConfig into the ebtks config directory.
func SaveConfig(cfg Config) error {
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(ConfigDir(), cfgFilename), buf, 0644)
}
