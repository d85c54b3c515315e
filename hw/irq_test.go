package hw

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"ebtks/hw/backplane"
	"ebtks/hw/hwdefs"
)

const devVector = 0x42

func newIRQRig(t *testing.T, devPrio int) *rig {
	t.Helper()
	cfg := backplane.DefaultConfig()
	cfg.DevicePriority = devPrio
	return newRigConfig(t, cfg, func(r *rig) {
		r.bc.IRQ.Vector = devVector
		r.bc.IRQ.Arm()
		r.bc.MapReg8(0x20, r.bc.IRQ.ControlReg("irqctl"))
	})
}

func wantVectors(t *testing.T, r *rig, want ...uint8) {
	t.Helper()
	if diff := cmp.Diff(want, r.bp.Host.Vectors()); diff != "" {
		t.Errorf("vectors mismatch (-want +got):\n%s", diff)
	}
}

func TestInterruptServiced(t *testing.T) {
	r := newIRQRig(t, 1)

	r.bc.IRQ.Raise()
	r.bp.Run(6)

	wantVectors(t, r, devVector)
	if r.bc.IRQ.Pending() || r.bc.IRQ.Serviced() != 1 {
		t.Errorf("pending=%t serviced=%d, want false,1", r.bc.IRQ.Pending(), r.bc.IRQ.Serviced())
	}
	if r.bc.IRQ.State() != IRQIdle || r.bp.Asserted(hwdefs.IntReq) {
		t.Errorf("request still presented")
	}
	wantNoViolations(t, r.bp)
}

func TestInterruptFairness(t *testing.T) {
	tests := []struct {
		name     string
		devPrio  int
		reqPrio  int
		reqCount int
		want     []uint8
		lost     uint32
	}{
		{"higher first", 1, 0, 1, []uint8{0x10, devVector}, 1},
		{"higher twice", 1, 0, 2, []uint8{0x10, 0x10, devVector}, 2},
		{"device first", 0, 1, 1, []uint8{devVector, 0x10}, 0},
		{"device first, lower twice", 0, 1, 2, []uint8{devVector, 0x10, 0x10}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newIRQRig(t, tt.devPrio)
			req, err := r.bp.AddRequester("other", 0x10, tt.reqPrio)
			if err != nil {
				t.Fatal(err)
			}

			for range tt.reqCount {
				req.Raise()
			}
			r.bc.IRQ.Raise()
			r.bp.Run(20)

			wantVectors(t, r, tt.want...)
			if got := r.bc.IRQ.Lost(); got != tt.lost {
				t.Errorf("lost arbitrations = %d, want %d", got, tt.lost)
			}
			if !r.bc.IRQ.Enabled() {
				t.Errorf("device disarmed")
			}
			wantNoViolations(t, r.bp)
		})
	}
}

func TestInterruptDisarmedByForeignAck(t *testing.T) {
	r := newIRQRig(t, 1)
	req, err := r.bp.AddRequester("other", 0x10, 0)
	if err != nil {
		t.Fatal(err)
	}

	// Acknowledge of the higher priority device while ours is idle.
	req.Raise()
	r.bp.Run(4)
	if r.bc.IRQ.Enabled() {
		t.Fatalf("device still armed after a foreign acknowledge")
	}

	r.bc.IRQ.Raise()
	r.bp.Run(10)
	wantVectors(t, r, 0x10)

	// Re-armed by the host through the control register.
	r.bp.Host.LoadAddress(0xFF20)
	ctl := r.bp.Host.Read(1)
	r.bp.Host.Write(IRQCtrlEnable)
	r.drain(t)
	r.bp.Run(4)

	if got := ctl.Results[0].Data; got != IRQCtrlPending {
		t.Errorf("control register = %02X, want %02X", got, IRQCtrlPending)
	}
	wantVectors(t, r, 0x10, devVector)
	wantNoViolations(t, r.bp)
}

func TestInterruptWithdraw(t *testing.T) {
	r := newIRQRig(t, 1)
	r.bp.Host.AckInterrupts = false

	r.bc.IRQ.Raise()
	r.bp.Run(2)
	if r.bc.IRQ.State() != IRQRequestPending || !r.bp.Asserted(hwdefs.IntReq) {
		t.Fatalf("request not presented")
	}

	r.bc.IRQ.Withdraw()
	r.bp.Run(2)
	if r.bc.IRQ.State() != IRQIdle || r.bp.Asserted(hwdefs.IntReq) || r.bp.Asserted(hwdefs.PriOut) {
		t.Errorf("request still presented after withdraw")
	}

	r.bp.Host.AckInterrupts = true
	r.bp.Run(4)
	wantVectors(t, r)
}

func TestInterruptGating(t *testing.T) {
	t.Run("disarmed", func(t *testing.T) {
		r := newIRQRig(t, 1)
		r.bc.IRQ.Disarm()
		r.bc.IRQ.Raise()
		r.bp.Run(6)
		wantVectors(t, r)
		if !r.bc.IRQ.Pending() {
			t.Errorf("request dropped")
		}
	})
	t.Run("not wanted", func(t *testing.T) {
		want := false
		r := newIRQRig(t, 1)
		r.bc.IRQ.SetWants(func() bool { return want })
		r.bc.IRQ.Raise()
		r.bp.Run(6)
		wantVectors(t, r)

		want = true
		r.bp.Run(6)
		wantVectors(t, r, devVector)
	})
}
