//go:build !cgo

package entry

// Replacement returns 0: without cgo there is no C entry point to install.
func Replacement() uintptr {
	return 0
}
