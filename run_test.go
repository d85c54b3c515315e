package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebtks/emu"
)

func TestProfileWrittenOnFailure(t *testing.T) {
	cfg := emu.DefaultConfig()
	cfg.Steps = []emu.Step{
		{Op: emu.OpLoad, Addr: 0x1000},
		{Op: emu.OpRead, Count: 1, Expect: []int{0x00}},
	}
	m, err := emu.PowerUp(cfg)
	require.NoError(t, err)

	dir := t.TempDir()
	rep, err := runProfiled(m, dir, "cpu")
	require.Error(t, err)
	require.NotNil(t, rep)

	fi, err := os.Stat(filepath.Join(dir, "cpu.pprof"))
	require.NoError(t, err)
	assert.NotZero(t, fi.Size())
}
