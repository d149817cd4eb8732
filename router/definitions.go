package router

import (
	"github.com/soypat/lgate"
	"github.com/soypat/lgate/link"
)

//go:generate stringer -type=Action -linecomment -output stringers.go .

// Action is what the caller does with a routed buffer.
type Action uint8

const (
	// ActionDrop releases the buffer and counts the decision reason.
	ActionDrop Action = iota // drop
	// ActionForward transmits the rewritten frame on the decision interface.
	ActionForward // forward
	// ActionReply transmits the frame, rewritten in place into a reply, on the ingress interface.
	ActionReply // reply
	// ActionResolve transmits the ARP request the buffer was rewritten into.
	// The original frame is lost and counted with the decision reason.
	ActionResolve // resolve
	// ActionLocal hands the frame to [Router.Deliver].
	ActionLocal // local
)

// Decision is the outcome of routing one frame.
type Decision struct {
	Action Action
	Iface  link.ID
	Reason lgate.DropReason
}

func drop(reason lgate.DropReason) Decision {
	return Decision{Action: ActionDrop, Reason: reason}
}
