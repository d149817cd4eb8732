package arp

import (
	"time"

	"github.com/soypat/lgate/ethernet"
)

// Handler answers ARP requests for one local address and learns sender mappings.
// All operations work in place on the received packet.
type Handler struct {
	ourHWAddr    [6]byte
	ourProtoAddr [4]byte
}

type HandlerConfig struct {
	HardwareAddr [6]byte
	ProtocolAddr [4]byte
}

func (h *Handler) Reset(cfg HandlerConfig) error {
	if cfg.ProtocolAddr == [4]byte{} || ethernet.IsMulticastAddr(&cfg.HardwareAddr) {
		return errInvalidConfig
	}
	*h = Handler{
		ourHWAddr:    cfg.HardwareAddr,
		ourProtoAddr: cfg.ProtocolAddr,
	}
	return nil
}

// HardwareAddr returns the local hardware address.
func (h *Handler) HardwareAddr() [6]byte { return h.ourHWAddr }

// ProtocolAddr returns the local IPv4 address.
func (h *Handler) ProtocolAddr() [4]byte { return h.ourProtoAddr }

// IsRequestForUs reports whether afrm asks for the local protocol address.
func (h *Handler) IsRequestForUs(afrm Frame) bool {
	_, tip := afrm.Target4()
	return afrm.Operation() == OpRequest && *tip == h.ourProtoAddr
}

// Respond turns a request for the local address into the matching reply in
// place: operation set to reply, target set to the requester and sender set to
// the local addresses. The caller swaps the link layer addresses.
func (h *Handler) Respond(afrm Frame) error {
	if !h.IsRequestForUs(afrm) {
		return errNotRequest
	}
	afrm.SetOperation(OpReply)
	afrm.SwapTargetSender()
	shw, _ := afrm.Sender4()
	*shw = h.ourHWAddr
	return nil
}

// Learn records the sender of afrm into cache. Probes carrying an unspecified
// sender address are not learned.
func (h *Handler) Learn(afrm Frame, cache *Cache, now time.Time) bool {
	if afrm.IsProbe() {
		return false
	}
	shw, sip := afrm.Sender4()
	if *sip == h.ourProtoAddr {
		return false // Address conflict or our own packet looped back.
	}
	return cache.Confirm(*sip, *shw, now)
}

// PutRequest writes a request asking for the hardware address of target to dst.
func (h *Handler) PutRequest(dst []byte, target [4]byte) (int, error) {
	hdr := Header{
		Op:       OpRequest,
		SenderHW: h.ourHWAddr,
		SenderIP: h.ourProtoAddr,
		TargetIP: target,
	}
	return hdr.Put(dst, nil)
}
