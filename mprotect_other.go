//go:build !unix

package timepin

const (
	mprotectExec = 0
	mprotectRX   = 0
	mprotectRWX  = 0
)

func mprotect(buf []byte, flags int) error {
	return ErrUnsupported
}
