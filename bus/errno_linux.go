//go:build linux && !tinygo

package bus

import (
	"errors"
	"strings"

	"golang.org/x/sys/unix"
)

func classifyErrno(err error) Kind {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errnoKind(errno)
	}
	// periph's sysfs driver formats the ioctl error with %v, which drops the
	// errno from the chain. Fall back to the kernel's message text.
	msg := err.Error()
	for _, errno := range []unix.Errno{unix.EREMOTEIO, unix.ENXIO, unix.ETIMEDOUT} {
		if strings.Contains(msg, errno.Error()) {
			return errnoKind(errno)
		}
	}
	return Io
}

func errnoKind(errno unix.Errno) Kind {
	switch errno {
	case unix.EREMOTEIO, unix.ENXIO:
		return Nack
	case unix.ETIMEDOUT:
		return Timeout
	default:
		return Io
	}
}
