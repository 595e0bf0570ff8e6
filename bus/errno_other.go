//go:build !linux || tinygo

package bus

func classifyErrno(err error) Kind {
	return Io
}
