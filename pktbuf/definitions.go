package pktbuf

//go:generate stringer -type=State -linecomment -output stringers.go .

// State is the ownership state of a pool slot.
type State uint8

const (
	StateFree     State = iota // free
	StateOwned                 // owned
	StateInFlight              // in-flight
)

// Owner tags the task holding a buffer. Owners are assigned by the firmware
// task table, the pool only stores them for introspection.
type Owner uint8

// Handle refers to a pool slot at a given generation. The zero Handle is
// never valid. Handles are consumed by [Pool.Release].
type Handle struct {
	idx uint16
	gen uint16
}

// IsZero reports whether h is the zero (invalid) handle.
func (h Handle) IsZero() bool { return h.gen == 0 }

// Index returns the slot index h refers to.
func (h Handle) Index() int { return int(h.idx) }
