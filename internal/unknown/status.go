package unknown

import (
	"errors"
	"fmt"
)

// Status is the result code reported to host frameworks.
type Status int32

const (
	StatusOK          Status = 0
	StatusPointer     Status = -2147467261 // 0x80004003
	StatusNoInterface Status = -2147467262 // 0x80004002
	StatusFail        Status = -2147467259 // 0x80004005
)

// StatusOf maps an error returned by a query to its status code.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrPointer):
		return StatusPointer
	case errors.Is(err, ErrNoInterface):
		return StatusNoInterface
	default:
		return StatusFail
	}
}

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusPointer:
		return "invalid pointer"
	case StatusNoInterface:
		return "no interface"
	case StatusFail:
		return "fail"
	default:
		return fmt.Sprintf("status(%#x)", uint32(s))
	}
}

// Succeeded reports whether s is a success code.
func (s Status) Succeeded() bool {
	return s >= 0
}
