// Package kerrors defines the error-kind taxonomy described in the core's
// error handling design: errors are tagged by the subsystem that produced
// them so callers can apply the right propagation policy (fatal at the
// main thread, non-fatal and recorded on a source, or local to a packet).
package kerrors

import "fmt"

// Kind classifies where an error originated and how it should propagate.
type Kind int

const (
	// KindConfig is fatal at startup.
	KindConfig Kind = iota
	// KindDriver is a non-fatal datasource/driver error recorded on the source.
	KindDriver
	// KindFrame is a malformed IPC frame; closes the offending transport.
	KindFrame
	// KindDissector is a malformed packet; recorded on the packet, chain continues.
	KindDissector
	// KindResource is a local allocation/capacity failure (chainbuf, registry).
	KindResource
	// KindAPI is surfaced to HTTP callers as 4xx/5xx.
	KindAPI
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindDriver:
		return "driver"
	case KindFrame:
		return "frame"
	case KindDissector:
		return "dissector"
	case KindResource:
		return "resource"
	case KindAPI:
		return "api"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind tag.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a Kind-tagged error, wrapping err.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		if ke, ok := err.(*Error); ok {
			if ke.Kind == kind {
				return true
			}
			err = ke.Err
			continue
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// InvalidFrame, FrameTooLarge, IEParseError, NoProto are the sentinel
// conditions named explicitly in the core's frame codec and datasource
// contracts (§4.1, §4.4, §4.7).
var (
	ErrInvalidFrame  = fmt.Errorf("frame: invalid frame")
	ErrFrameTooLarge = fmt.Errorf("frame: frame exceeds size limit")
	ErrNeedMore      = fmt.Errorf("frame: need more data")
	ErrIEParse       = fmt.Errorf("dot11: malformed information element")
	ErrNoProto       = fmt.Errorf("datasource: no prototype claimed the definition")
)
