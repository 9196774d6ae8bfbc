package timepin

var hostISA = &arm64ISA
