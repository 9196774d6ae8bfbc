//go:build arm64 && !cgo

package timepin

import "fmt"

func syncICache(code []byte) error {
	return fmt.Errorf("%w: arm64 needs cgo to flush the instruction cache", ErrUnsupported)
}
