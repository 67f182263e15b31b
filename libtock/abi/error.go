package abi

import "strconv"

// Code is a kernel return code. Negative values are errors.
type Code int

const (
	Success        Code = 0
	ErrFail        Code = -1
	ErrBusy        Code = -2
	ErrAlready     Code = -3
	ErrOff         Code = -4
	ErrReserve     Code = -5
	ErrInvalid     Code = -6
	ErrSize        Code = -7
	ErrCancel      Code = -8
	ErrNoMem       Code = -9
	ErrNoSupport   Code = -10
	ErrNoDevice    Code = -11
	ErrUninstalled Code = -12
	ErrNoAck       Code = -13
)

func (c Code) Error() string {
	switch c {
	case Success:
		return "success"
	case ErrFail:
		return "generic failure"
	case ErrBusy:
		return "busy"
	case ErrAlready:
		return "already in progress"
	case ErrOff:
		return "device off"
	case ErrReserve:
		return "reservation required"
	case ErrInvalid:
		return "invalid argument"
	case ErrSize:
		return "size too large"
	case ErrCancel:
		return "canceled"
	case ErrNoMem:
		return "out of memory"
	case ErrNoSupport:
		return "not supported"
	case ErrNoDevice:
		return "no such device"
	case ErrUninstalled:
		return "driver uninstalled"
	case ErrNoAck:
		return "no acknowledgement"
	default:
		return "kernel error " + strconv.Itoa(int(c))
	}
}

// Word encodes c the way the kernel passes it in an upcall argument.
func (c Code) Word() uint {
	return uint(int(c))
}

// StatusError decodes an upcall status word. Zero and positive values are success.
func StatusError(w uint) error {
	v := int(w)
	if v >= 0 {
		return nil
	}
	return Code(v)
}
