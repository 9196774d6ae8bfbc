//go:build !amd64 && !arm64

package timepin

var hostISA *isa
