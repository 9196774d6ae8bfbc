package timepin

var hostISA = &x86ISA
