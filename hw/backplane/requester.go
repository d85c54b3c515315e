package backplane

import "ebtks/hw/hwdefs"

// Requester is a scripted peripheral of the interrupt priority chain. It
// asserts the interrupt line while it has pending interrupts and drives its
// vector on acknowledge cycles where no higher priority device requests.
type Requester struct {
	Name     string
	Vector   uint8
	Priority int // position in the chain, lower is higher priority

	pending    int
	requesting bool
	priIn      bool
	serviced   int
}

// Raise posts one interrupt.
func (r *Requester) Raise() { r.pending++ }

// Withdraw drops every pending interrupt.
func (r *Requester) Withdraw() {
	r.pending = 0
	r.requesting = false
}

func (r *Requester) Pending() int  { return r.pending }
func (r *Requester) Serviced() int { return r.serviced }

func (r *Requester) phi2Rise(bp *Backplane) {
	intack := hwdefs.Classify(bp.Host.cur.ctrl) == hwdefs.CycleIntAck
	switch {
	case intack && r.requesting && !r.priIn:
		bp.drive(drvRequester, r.Vector)
		r.requesting = false
		r.pending--
		r.serviced++
	case !r.requesting && r.pending > 0:
		r.requesting = true
	}
}
