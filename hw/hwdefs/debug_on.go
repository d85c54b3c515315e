//go:build busdebug

package hwdefs

// Debug enables validation and logging on the interrupt path. It breaks the
// real-time contract and must never ship.
const Debug = true
