package link

import (
	"errors"
)

//go:generate stringer -type=ID,Status -linecomment -output stringers.go .

// ID identifies an interface of the gateway.
type ID uint8

const (
	Ethernet ID = iota // eth
	Radio              // radio
)

// NumIDs is the amount of gateway interfaces.
const NumIDs = 2

// Status is the link state reported by an adapter.
type Status uint8

const (
	Down Status = iota // down
	Up                 // up
)

var (
	// ErrNoFrame is returned by TryReceive when no frame is available.
	ErrNoFrame = errors.New("link: no frame")
	// ErrBusy is returned by Transmit when the transmit path cannot take a frame right now.
	ErrBusy = errors.New("link: transmit busy")
	// ErrLink is returned on transceiver failure.
	ErrLink = errors.New("link: transceiver error")
)

// Adapter is the contract between the gateway and a transceiver driver.
// No method blocks.
type Adapter interface {
	// TryReceive copies the next received frame into dst and returns its length.
	// It returns [ErrNoFrame] when no frame is available and [io.ErrShortBuffer]
	// when the frame does not fit dst, in which case the frame is discarded.
	// TryReceive(nil) discards the next frame.
	TryReceive(dst []byte) (int, error)
	// Transmit sends frame. The frame bytes are not retained after Transmit returns.
	// It returns [ErrBusy] or [ErrLink] on failure.
	Transmit(frame []byte) error
	// Status returns the current link state.
	Status() Status
}
