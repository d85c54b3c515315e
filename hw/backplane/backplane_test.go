package backplane

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ebtks/hw/hwdefs"
)

func newTestBackplane(t *testing.T) *Backplane {
	t.Helper()
	bp, err := New(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return bp
}

func wantViolations(t *testing.T, bp *Backplane, substrs ...string) {
	t.Helper()
	vs := bp.Violations()
	if len(vs) != len(substrs) {
		t.Fatalf("got %d violations, want %d: %v", len(vs), len(substrs), vs)
	}
	for i, s := range substrs {
		if !strings.Contains(vs[i].Msg, s) {
			t.Errorf("violation %d = %q, want it to contain %q", i, vs[i].Msg, s)
		}
	}
}

func TestConfigEdgeOrder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Phi2RiseNs = 200
	if _, err := New(cfg); err == nil {
		t.Errorf("phase 2 before the end of phase 1: want error")
	}

	cfg = DefaultConfig()
	cfg.PeriodNs = 1000
	if _, err := New(cfg); err == nil {
		t.Errorf("phase 2 past the period: want error")
	}
}

func TestHostOpenBus(t *testing.T) {
	bp := newTestBackplane(t)

	bp.Host.LoadAddress(0x1234)
	rd := bp.Host.Read(2)
	if err := bp.Drain(); err != nil {
		t.Fatal(err)
	}

	want := []Result{
		{Addr: 0x1234, Data: 0xFF},
		{Addr: 0x1235, Data: 0xFF},
	}
	if diff := cmp.Diff(want, rd.Results); diff != "" {
		t.Errorf("read results mismatch (-want +got):\n%s", diff)
	}
	if !rd.Done() {
		t.Errorf("read not done")
	}
	if got := bp.Host.Addr(); got != 0x1236 {
		t.Errorf("host address = %04X, want 1236", got)
	}
	wantViolations(t, bp)
}

func TestHostIOAddressDoesNotIncrement(t *testing.T) {
	bp := newTestBackplane(t)

	bp.Host.LoadAddress(0xFF40)
	wr := bp.Host.Write(1, 2, 3)
	if err := bp.Drain(); err != nil {
		t.Fatal(err)
	}
	for i, r := range wr.Results {
		if r.Addr != 0xFF40 {
			t.Errorf("write %d at %04X, want FF40", i, r.Addr)
		}
	}
	if diff := cmp.Diff([]byte{1, 2, 3}, wr.Data()); diff != "" {
		t.Errorf("write data mismatch (-want +got):\n%s", diff)
	}
}

func TestContention(t *testing.T) {
	bp := newTestBackplane(t)

	// Driving the bus on phase-1 rising edge collides with the host write
	// data of the previous cycle.
	bp.AttachClockHandler(func() {
		bp.DriveData(0x55)
		bp.ReleaseData()
	})
	bp.EnableClockIRQ(true)

	bp.Host.Write(0xAA)
	if err := bp.Drain(); err != nil {
		t.Fatal(err)
	}
	wantViolations(t, bp, "contention")
}

func TestStrobeWithoutMastership(t *testing.T) {
	bp := newTestBackplane(t)
	bp.WaitEdge(hwdefs.Phi2, true)
	bp.Assert(hwdefs.RD)
	wantViolations(t, bp, "not bus master")
	if bp.Control() != 0 {
		t.Errorf("control = %s, want none", bp.Control())
	}
}

func TestWriteStrobeWithoutData(t *testing.T) {
	bp := newTestBackplane(t)
	bp.Assert(hwdefs.Halt)
	bp.Run(4)
	bp.DriveControl(true)

	writeCycle := func(drive bool) {
		bp.WaitEdge(hwdefs.Phi2, true)
		if drive {
			bp.DriveData(0x5A)
		}
		bp.Delay(20)
		bp.Assert(hwdefs.WR)
		bp.Delay(200)
		bp.Release(hwdefs.WR)
		bp.WaitEdge(hwdefs.Phi1, false)
		bp.Delay(30)
		bp.ReleaseData()
	}
	writeCycle(false)
	writeCycle(true)

	bp.DriveControl(false)
	bp.Release(hwdefs.Halt)
	wantViolations(t, bp, "does not drive the data bus")
	if got := bp.Memory()[1]; got != 0x5A {
		t.Errorf("memory[1] = %02X, want 5A", got)
	}
}

func TestLateInterrupt(t *testing.T) {
	bp := newTestBackplane(t)

	var n int
	bp.AttachClockHandler(func() { n++ })
	bp.EnableClockIRQ(true)
	bp.DisableInterrupts()
	bp.Delay(200)
	bp.EnableInterrupts()

	if n != 1 {
		t.Errorf("handler ran %d times, want 1", n)
	}
	wantViolations(t, bp, "serviced 200ns after")
}

func TestClearPendingIRQ(t *testing.T) {
	bp := newTestBackplane(t)

	var n int
	bp.AttachClockHandler(func() { n++ })
	bp.EnableClockIRQ(false)
	bp.Run(3)
	bp.Delay(500)
	bp.ClearPendingIRQ()
	bp.EnableClockIRQ(true)

	if n != 0 {
		t.Errorf("handler ran %d times, want 0", n)
	}
	bp.Run(2)
	if n != 2 {
		t.Errorf("handler ran %d times, want 2", n)
	}
	wantViolations(t, bp)
}

func TestRequesterChain(t *testing.T) {
	bp := newTestBackplane(t)

	lo, err := bp.AddRequester("lo", 0x20, 2)
	if err != nil {
		t.Fatal(err)
	}
	hi, err := bp.AddRequester("hi", 0x10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := bp.AddRequester("dup", 0x30, 2); err == nil {
		t.Errorf("duplicate priority: want error")
	}
	if _, err := bp.AddRequester("dev", 0x30, bp.Config().DevicePriority); err == nil {
		t.Errorf("device priority: want error")
	}

	lo.Raise()
	hi.Raise()
	bp.Run(6)

	if diff := cmp.Diff([]uint8{0x10, 0x20}, bp.Host.Vectors()); diff != "" {
		t.Errorf("vectors mismatch (-want +got):\n%s", diff)
	}
	if hi.Serviced() != 1 || lo.Serviced() != 1 {
		t.Errorf("serviced hi=%d lo=%d, want 1,1", hi.Serviced(), lo.Serviced())
	}
	if bp.Requester("lo") != lo {
		t.Errorf("Requester(lo) lookup failed")
	}
	wantViolations(t, bp)
}

func TestHostHalt(t *testing.T) {
	bp := newTestBackplane(t)

	rd := bp.Host.Read(4)
	bp.Assert(hwdefs.Halt)
	bp.Run(4)

	if !bp.Host.Halted() {
		t.Fatalf("host not halted")
	}
	if bp.Host.DMAAcks() != 1 {
		t.Errorf("DMA acknowledge cycles = %d, want 1", bp.Host.DMAAcks())
	}
	if rd.Done() {
		t.Errorf("host read completed while halted")
	}

	bp.Release(hwdefs.Halt)
	if err := bp.Drain(); err != nil {
		t.Fatal(err)
	}
	if bp.Host.Halted() {
		t.Errorf("host still halted")
	}
	if !rd.Done() {
		t.Errorf("host read not resumed")
	}
	wantViolations(t, bp)
}
