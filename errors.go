package lgate

//go:generate stringer -type=errGeneric,DropReason -linecomment -output stringers.go .

type errGeneric uint8

// Generic errors shared by every layer of the gateway. Package level errors
// wrap one of these so callers classify failures with [errors.Is].
const (
	_                errGeneric = iota // non-initialized err
	ErrMalformed                       // malformed frame
	ErrCapacity                        // insufficient buffer capacity
	ErrExhausted                       // buffer pool exhausted
	ErrShortBuffer                     // short buffer
	ErrInvalidConfig                   // invalid configuration
	ErrInvalidAddr                     // invalid address
	ErrBadCRC                          // incorrect checksum
)

func (err errGeneric) Error() string {
	return err.String()
}

// Malformed returns a static error with message msg that matches [ErrMalformed]
// when tested with [errors.Is]. It is meant to be called at package initialization.
func Malformed(msg string) error {
	return &kindError{msg: msg, kind: ErrMalformed}
}

// BadCRC returns a static checksum error that also matches [ErrMalformed].
func BadCRC(msg string) error {
	return &kindError{msg: msg, kind: ErrBadCRC}
}

type kindError struct {
	msg  string
	kind errGeneric
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() []error {
	if e.kind == ErrBadCRC {
		return []error{ErrBadCRC, ErrMalformed}
	}
	return []error{e.kind}
}
