package hw

import (
	"testing"

	"ebtks/hw/backplane"
	"ebtks/hw/trace"
)

type rig struct {
	bp *backplane.Backplane
	bc *BusController
}

// newRig creates a bus controller on a simulated backplane. setup, if not
// nil, runs before the controller is armed.
func newRig(t *testing.T, setup func(r *rig)) *rig {
	t.Helper()
	return newRigConfig(t, backplane.DefaultConfig(), setup)
}

func newRigConfig(t *testing.T, cfg backplane.Config, setup func(r *rig)) *rig {
	t.Helper()
	bp, err := backplane.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	r := &rig{bp: bp, bc: NewBusController(bp)}
	r.bc.Trace = trace.NewRing(1024)
	r.bc.Trace.Start()
	if setup != nil {
		setup(r)
	}
	r.bc.Arm()
	return r
}

func (r *rig) drain(t *testing.T) {
	t.Helper()
	if err := r.bp.Drain(); err != nil {
		t.Fatal(err)
	}
}

func wantNoViolations(t *testing.T, bp *backplane.Backplane) {
	t.Helper()
	for _, v := range bp.Violations() {
		t.Errorf("bus violation: %s", v)
	}
}

// drivenCycles returns the traced cycles where the controller drove the
// data bus.
func (r *rig) drivenCycles() []trace.Record {
	var recs []trace.Record
	for _, rec := range r.bc.Trace.Records() {
		if rec.Aux&trace.AuxDriven != 0 {
			recs = append(recs, rec)
		}
	}
	return recs
}
