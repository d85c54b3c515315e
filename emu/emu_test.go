package emu

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebtks/hw/hwdefs"
)

const scenarioTOML = `
[trace]
depth = 256

[interrupt]
vector = 0x42
control_slot = 0x20

[[rom]]
id = 0o321
file = "rom321.bin"

[ram]
base = 0x8000
size = 0x100

[[memory]]
addr = 0x1000
text = "HP-85"

[[requester]]
name = "hpib"
vector = 0x10
priority = 0

[[step]]
op = "load"
addr = 0xFF18

[[step]]
op = "write"
data = [0o321]

[[step]]
op = "load"
addr = 0x6000

[[step]]
op = "read"
count = 2
expect = [0xA1, 0xA2]

[[step]]
op = "dma_read"
addr = 0x1000
count = 5

[[step]]
op = "raise"
requester = "hpib"

[[step]]
op = "wait"
count = 10

[[step]]
op = "vectors"
expect = [0x10]
`

func TestLoadConfig(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"scenario.toml": scenarioTOML,
		"rom321.bin":    "\xA1\xA2\xA3",
	})

	cfg, err := LoadConfig(filepath.Join(dir, "scenario.toml"))
	require.NoError(t, err)

	// Unset values keep their default.
	def := DefaultConfig()
	assert.Equal(t, def.Clock, cfg.Clock)
	assert.True(t, cfg.Interrupt.Armed)
	assert.Equal(t, uint8(0x42), cfg.Interrupt.Vector)
	require.NotNil(t, cfg.Interrupt.ControlSlot)
	assert.Equal(t, uint8(0x20), *cfg.Interrupt.ControlSlot)
	require.Len(t, cfg.ROMs, 1)
	assert.Equal(t, uint8(0o321), cfg.ROMs[0].ID)
	assert.Len(t, cfg.Steps, 8)

	m := powerUp(t, cfg)
	rep, err := m.Run()
	require.NoError(t, err)

	assert.Equal(t, []byte("HP-85"), rep.Steps[4].Data)
	assert.Equal(t, 5, rep.Steps[4].N)
	assert.Equal(t, []byte{0xA1, 0xA2}, rep.Steps[3].Data)
	assert.Equal(t, []uint8{0x10}, rep.Vectors)
	assert.Empty(t, rep.Violations)
	assert.Equal(t, uint8(0o321), m.ROMs.Selected())
	assert.NotEmpty(t, m.Records())
	assert.True(t, rep.Bus.Armed)
	assert.Equal(t, uint32(1), rep.Bus.DMA.Transfers)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		toml string
		err  string
	}{
		{"unknown key", "[trace]\ndeph = 4\n", "unknown keys"},
		{"trace depth", "[trace]\ndepth = 100\n", "power of 2"},
		{"ram size", "[ram]\nbase = 0x8000\nsize = 0x300\n", "power of 2"},
		{"ram alignment", "[ram]\nbase = 0x8080\nsize = 0x100\n", "aligned"},
		{"rom source", "[[rom]]\nid = 1\n", "exactly one of file and data"},
		{"rom byte", "[[rom]]\nid = 1\ndata = [256]\n", "not a byte"},
		{"unknown op", "[[step]]\nop = \"jump\"\n", "unknown operation"},
		{"missing count", "[[step]]\nop = \"read\"\n", "count must be positive"},
		{"missing data", "[[step]]\nop = \"dma_write\"\naddr = 0x1000\n", "missing data"},
		{"unknown requester", "[[step]]\nop = \"raise\"\nrequester = \"hpib\"\n", "unknown requester"},
		{"misplaced expect", "[[step]]\nop = \"write\"\ndata = [1]\nexpect = [1]\n", "expect is only valid"},
		{"duplicate requester", "[[requester]]\nname = \"a\"\n[[requester]]\nname = \"a\"\n", "defined twice"},
		{"memory overflow", "[[memory]]\naddr = 0xFFFE\ntext = \"abc\"\n", "past the end"},
		{"syntax", "[trace\n", "load config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeFiles(t, map[string]string{"cfg.toml": tt.toml})
			_, err := LoadConfig(filepath.Join(dir, "cfg.toml"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestPowerUpMissingROM(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ROMs = []ROMConfig{{ID: 0o321, File: filepath.Join(t.TempDir(), "nope.bin")}}
	_, err := PowerUp(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rom 321")
}

func TestPowerUpBadClock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Clock.Phi2RiseNs = cfg.Clock.Phi1Ns
	_, err := PowerUp(cfg)
	assert.Error(t, err)
}

func TestExpectationMismatch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Memory = []MemoryConfig{{Addr: 0x1000, Data: []int{1, 2}}}
	cfg.Steps = []Step{
		{Op: OpLoad, Addr: 0x1000},
		{Op: OpRead, Count: 1, Expect: []int{0x00}},
		{Op: OpDMARead, Addr: 0x1000, Count: 2, Expect: []int{1, 3}},
	}
	m := powerUp(t, cfg)
	rep, err := m.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step #2 (read): got FF, want 00")
	assert.Contains(t, err.Error(), "step #3 (dma_read): got 01 02, want 01 03")
	assert.NotNil(t, rep)
}

func TestInterruptWithdrawStep(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Clock.AckInterrupts = false
	cfg.Steps = []Step{
		{Op: OpRaise},
		{Op: OpWait, Count: 3},
		{Op: OpWithdraw},
		{Op: OpWait, Count: 3},
	}
	m := powerUp(t, cfg)
	rep, err := m.Run()
	require.NoError(t, err)
	assert.Empty(t, rep.Vectors)
	assert.Equal(t, "Idle", rep.Bus.IRQ.State)
	assert.False(t, m.Backplane.Asserted(hwdefs.IntReq))
}

func TestTraceDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Trace.Depth = 0
	m := powerUp(t, cfg)
	_, err := m.Run()
	require.NoError(t, err)
	assert.Nil(t, m.Records())
}

func TestChecks(t *testing.T) {
	for _, c := range Checks {
		t.Run(c.Name, func(t *testing.T) {
			res := RunCheck(c)
			require.NoError(t, res.Err)
			assert.Empty(t, res.Report.Violations)
		})
	}
}

func TestRunChecks(t *testing.T) {
	results, err := RunChecks(Checks)
	require.NoError(t, err)
	require.Len(t, results, len(Checks))
	for i, res := range results {
		assert.Equal(t, Checks[i].Name, res.Name)
	}

	c, ok := CheckByName("dma-burst")
	require.True(t, ok)
	assert.Equal(t, "dma-burst", c.Name)
	_, ok = CheckByName("nope")
	assert.False(t, ok)
}
