package lgate

import (
	"errors"
)

// ValidateFlags tune the checks a [Validator] performs.
type ValidateFlags uint64

const (
	validateReserved ValidateFlags = 1 << iota
	// ValidateEvilBit rejects IPv4 packets with the RFC 3514 evil bit set.
	ValidateEvilBit
	// ValidateAllowMultiErrors accumulates every error found instead of the first only.
	ValidateAllowMultiErrors
)

// Validator accumulates frame validation errors. The zero value is ready to
// use and records the first error without allocating, so Parse functions keep
// one on the stack.
type Validator struct {
	first error
	more  []error
	flags ValidateFlags
}

// NewValidator returns a Validator with the given flags set.
func NewValidator(flags ValidateFlags) *Validator {
	if flags&validateReserved != 0 {
		panic("lgate: reserved validate flag")
	}
	return &Validator{flags: flags}
}

func (v *Validator) Flags() ValidateFlags { return v.flags }

// ResetErr clears accumulated errors, keeping storage for reuse.
func (v *Validator) ResetErr() {
	v.first = nil
	clear(v.more)
	v.more = v.more[:0]
}

func (v *Validator) HasError() bool { return v.first != nil }

// Err returns the accumulated errors, or nil if none were found. Multiple
// errors are joined.
func (v *Validator) Err() error {
	if len(v.more) == 0 {
		return v.first
	}
	return errors.Join(append([]error{v.first}, v.more...)...)
}

// ErrPop returns the accumulated error and resets the Validator.
func (v *Validator) ErrPop() error {
	err := v.Err()
	v.ResetErr()
	return err
}

// AddError records err. Without [ValidateAllowMultiErrors] only the first error is kept.
func (v *Validator) AddError(err error) {
	switch {
	case err == nil:
		panic("lgate: nil validation error")
	case v.first == nil:
		v.first = err
	case v.flags&ValidateAllowMultiErrors != 0:
		v.more = append(v.more, err)
	}
}
