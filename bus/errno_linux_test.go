//go:build linux && !tinygo

package bus

import (
	"errors"
	"fmt"
	"testing"

	"golang.org/x/sys/unix"
)

func TestClassifyErrno(t *testing.T) {
	var tests = []struct {
		err  error
		want Kind
	}{
		{err: unix.EREMOTEIO, want: Nack},
		{err: fmt.Errorf("ioctl: %w", unix.ENXIO), want: Nack},
		{err: unix.ETIMEDOUT, want: Timeout},
		{err: unix.EIO, want: Io},
		// sysfs-i2c formats with %v
		{err: fmt.Errorf("sysfs-i2c: %v", unix.EREMOTEIO), want: Nack},
		{err: errors.New("sysfs-i2c: something else"), want: Io},
	}
	for _, test := range tests {
		if got := classify(test.err); got != test.want {
			t.Errorf("classify(%v)=%s expected %s", test.err, got, test.want)
		}
	}
}
