//go:build linux

package hostlink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/soypat/lgate/link"
)

// Tap is the Ethernet adapter over a linux TAP interface. Frames written by
// the gateway appear as received on the host interface and vice versa.
type Tap struct {
	port
	f    *os.File // /dev/net/tun bound to the interface.
	name string
}

var _ link.Adapter = (*Tap)(nil)

// OpenTap creates or attaches to the TAP interface name and brings it up. If
// hostAddr is valid it is assigned to the host side of the interface.
func OpenTap(name string, hostAddr netip.Prefix, cfg Config) (*Tap, error) {
	if len(name) >= unix.IFNAMSIZ {
		return nil, errors.New("hostlink: interface name too long")
	}
	fd, err := unix.Open("/dev/net/tun", unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("hostlink: open tun device: %w", err)
	}
	ifr, err := unix.NewIfreq(name)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	ifr.SetUint16(unix.IFF_TAP | unix.IFF_NO_PI)
	if err = unix.IoctlIfreq(fd, unix.TUNSETIFF, ifr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("hostlink: create tap %s: %w", name, err)
	}
	// Non blocking so Close unblocks a pending Read through the runtime poller.
	if err = unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, err
	}
	tap := &Tap{f: os.NewFile(uintptr(fd), "/dev/net/tun"), name: name}
	if err = tap.reset(cfg); err != nil {
		tap.f.Close()
		return nil, err
	}
	if err = setLinkUp(name); err != nil {
		tap.f.Close()
		return nil, err
	}
	if hostAddr.IsValid() {
		err = exec.Command("ip", "addr", "replace", hostAddr.String(), "dev", name).Run()
		if err != nil {
			tap.f.Close()
			return nil, fmt.Errorf("hostlink: assign %s to %s: %w", hostAddr, name, err)
		}
	}
	return tap, nil
}

// Name returns the interface name.
func (tap *Tap) Name() string { return tap.name }

// Run reads frames from the interface until ctx is done or the Tap is closed.
func (tap *Tap) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		tap.f.Close()
	}()
	return tap.readLoop(ctx, tap.name, tap.f.Read)
}

// Transmit writes frame to the interface.
func (tap *Tap) Transmit(frame []byte) error {
	_, err := tap.f.Write(frame)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.ENOBUFS):
		return link.ErrBusy
	}
	tap.debug("hostlink:tx", slog.String("dev", tap.name), slog.String("err", err.Error()))
	return link.ErrLink
}

// MTU returns the interface MTU as configured on the host.
func (tap *Tap) MTU() (int, error) {
	sock, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return 0, err
	}
	defer unix.Close(sock)
	ifr, err := unix.NewIfreq(tap.name)
	if err != nil {
		return 0, err
	}
	if err = unix.IoctlIfreq(sock, unix.SIOCGIFMTU, ifr); err != nil {
		return 0, err
	}
	return int(ifr.Uint32()), nil
}

// Close releases the interface.
func (tap *Tap) Close() error { return tap.f.Close() }

func setLinkUp(name string) error {
	sock, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("hostlink: socket: %w", err)
	}
	defer unix.Close(sock)
	ifr, err := unix.NewIfreq(name)
	if err != nil {
		return err
	}
	if err = unix.IoctlIfreq(sock, unix.SIOCGIFFLAGS, ifr); err != nil {
		return fmt.Errorf("hostlink: get flags of %s: %w", name, err)
	}
	ifr.SetUint16(ifr.Uint16() | unix.IFF_UP | unix.IFF_RUNNING)
	if err = unix.IoctlIfreq(sock, unix.SIOCSIFFLAGS, ifr); err != nil {
		return fmt.Errorf("hostlink: bring %s up: %w", name, err)
	}
	return nil
}
