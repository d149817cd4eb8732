//go:build !linux

package hostlink

import (
	"context"
	"errors"
	"net/netip"

	"github.com/soypat/lgate/link"
)

// Tap is only available on linux.
type Tap struct {
	port
}

var _ link.Adapter = (*Tap)(nil)

func OpenTap(name string, hostAddr netip.Prefix, cfg Config) (*Tap, error) {
	return nil, errors.ErrUnsupported
}

func (tap *Tap) Name() string                  { return "" }
func (tap *Tap) Run(ctx context.Context) error { return errors.ErrUnsupported }
func (tap *Tap) Transmit(frame []byte) error   { return link.ErrLink }
func (tap *Tap) MTU() (int, error)             { return -1, errors.ErrUnsupported }
func (tap *Tap) Close() error                  { return errors.ErrUnsupported }
