package hwio_test

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ebtks/hw/hwio"
)

type testBus struct {
	t      testing.TB
	IO     *hwio.IOTable
	Claims hwio.Claims

	ROM hwio.Mem
	RAM hwio.Mem
	DEV hwio.Device

	devval uint8
}

func newTestBus(tb testing.TB) *testBus {
	b := &testBus{t: tb, IO: hwio.NewIOTable("test")}

	// $6000-$7FFF, 4K mirrored twice.
	b.ROM = hwio.Mem{
		Name:  "rom",
		Base:  0x6000,
		Data:  bytes.Repeat([]byte("\x12\x34"), 0x800),
		VSize: 0x2000,
		Flags: hwio.MemFlagNoROLog,
	}
	// $8000-$8FFF
	b.RAM = hwio.Mem{
		Name: "ram",
		Base: 0x8000,
		Data: make([]byte, 0x1000),
	}
	// $8800-$88FF, shadowed by RAM.
	b.DEV = hwio.Device{
		Name:    "dev",
		Base:    0x8800,
		Size:    0x100,
		ReadCb:  func(addr uint16) uint8 { return 0xE1 },
		WriteCb: func(addr uint16, val uint8) { b.devval = uint8(addr) & val },
	}

	b.Claims.Add(b.ROM.Resource())
	b.Claims.Add(b.RAM.Resource())
	b.Claims.Add(&b.DEV)
	return b
}

func (b *testBus) wantRead8(addr uint16, want uint8) {
	b.t.Helper()

	got, ok := b.Claims.Read8(addr)
	if !ok {
		b.t.Errorf("Read8(%04X) not claimed", addr)
		return
	}
	if got != want {
		b.t.Errorf("Read8(%04X) = %02X, want %02X", addr, got, want)
	}
}

func (b *testBus) wantUnclaimed(addr uint16) {
	b.t.Helper()

	if _, ok := b.Claims.Read8(addr); ok {
		b.t.Errorf("Read8(%04X) claimed, want unclaimed", addr)
	}
}

func TestClaimsMem(t *testing.T) {
	b := newTestBus(t)

	b.wantRead8(0x6000, 0x12)
	b.wantRead8(0x6001, 0x34)
	b.wantRead8(0x7001, 0x34) // mirror
	b.wantUnclaimed(0x5FFF)

	// ROM writes are dropped.
	b.Claims.Write8(0x6000, 0xFF)
	b.wantRead8(0x6000, 0x12)

	b.wantRead8(0x8000, 0x00)
	if !b.Claims.Write8(0x8000, 0x99) {
		t.Fatalf("Write8(8000) not claimed")
	}
	b.wantRead8(0x8000, 0x99)
	b.wantUnclaimed(0x9000)
}

func TestClaimsPriority(t *testing.T) {
	b := newTestBus(t)

	// RAM has priority over DEV on $8800-$88FF.
	b.Claims.Write8(0x8810, 0x27)
	b.wantRead8(0x8810, 0x27)
	if b.devval != 0 {
		t.Errorf("devval = %02X, lower priority resource written", b.devval)
	}

	if !b.Claims.Remove(b.Claims.At(1)) {
		t.Fatalf("Remove(RAM) failed")
	}
	b.wantRead8(0x8810, 0xE1)
	b.Claims.Write8(0x8820, 0x27)
	if b.devval != 0x20 {
		t.Errorf("devval = %02X, want 0x20", b.devval)
	}
	b.wantUnclaimed(0x8000)
}

func TestClaimsOverlaps(t *testing.T) {
	b := newTestBus(t)

	want := []hwio.Overlap{{Addr: 0x8800, First: 1, Then: 2}}
	if diff := cmp.Diff(want, b.Claims.Overlaps()); diff != "" {
		t.Errorf("Overlaps() mismatch (-want +got):\n%s", diff)
	}

	b.Claims.Remove(&b.DEV)
	if ovs := b.Claims.Overlaps(); len(ovs) != 0 {
		t.Errorf("Overlaps() = %v, want none", ovs)
	}
}

func TestClaimsFull(t *testing.T) {
	var c hwio.Claims
	for range hwio.MaxClaims {
		c.Add(&hwio.Device{Base: 0, Size: 1})
	}

	defer func() {
		if recover() == nil {
			t.Errorf("Add on a full list should panic")
		}
	}()
	c.Add(&hwio.Device{Base: 0, Size: 1})
}

func TestDeviceClaimCb(t *testing.T) {
	selected := false
	d := &hwio.Device{
		Base:    0x6000,
		Size:    0x2000,
		ClaimCb: func(uint16) bool { return selected },
		ReadCb:  func(addr uint16) uint8 { return uint8(addr >> 8) },
	}

	if d.Claims(0x6000) {
		t.Errorf("unselected device claims $6000")
	}
	selected = true
	if !d.Claims(0x7FFF) || d.Claims(0x8000) {
		t.Errorf("selected device claims wrong range")
	}
	if got := d.Read8(0x7F00); got != 0x7F {
		t.Errorf("Read8(7F00) = %02X, want 7F", got)
	}
}

func TestMemNotPow2(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("non pow2 memory should panic")
		}
	}()
	m := hwio.Mem{Data: make([]byte, 3)}
	m.Resource()
}

func TestMemWriteCb(t *testing.T) {
	var gotAddr uint16
	var gotVal uint8
	m := hwio.Mem{
		Base:    0x1000,
		Data:    make([]byte, 16),
		WriteCb: func(addr uint16, val uint8) { gotAddr, gotVal = addr, val },
	}
	r := m.Resource()
	r.Write8(0x1003, 0xAB)
	if gotAddr != 0x1003 || gotVal != 0xAB {
		t.Errorf("write callback got %04X=%02X", gotAddr, gotVal)
	}
	if got := r.Read8(0x1003); got != 0 {
		t.Errorf("callback write reached memory: %02X", got)
	}
}
