package hwdefs

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		ctrl Ctrl
		want CycleState
		load bool
	}{
		{0, CycleIdle, false},
		{CtrlRD, CycleRead, false},
		{CtrlWR, CycleWrite, false},
		{CtrlRD | CtrlWR, CycleDMAAck, false},
		{CtrlLMA, CycleIdle, true},
		{CtrlLMA | CtrlRD, CycleRead, true},
		{CtrlLMA | CtrlWR, CycleWrite, true},
		{CtrlLMA | CtrlRD | CtrlWR, CycleIntAck, false},
	}
	for _, tt := range tests {
		if got := Classify(tt.ctrl); got != tt.want {
			t.Errorf("Classify(%s) = %s, want %s", tt.ctrl, got, tt.want)
		}
		if got := IsAddressLoad(tt.ctrl); got != tt.load {
			t.Errorf("IsAddressLoad(%s) = %t, want %t", tt.ctrl, got, tt.load)
		}
	}
}

func TestCtrlString(t *testing.T) {
	if s := (CtrlLMA | CtrlWR).String(); s != "lma|wr" {
		t.Errorf("String() = %q, want lma|wr", s)
	}
	if s := Ctrl(0).String(); s != "-" {
		t.Errorf("String() = %q, want -", s)
	}
	if CtrlBit(RD) != CtrlRD || CtrlBit(Halt) != 0 {
		t.Errorf("CtrlBit mismatch")
	}
}
