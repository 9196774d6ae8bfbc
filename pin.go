package timepin

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/tliron/commonlog"
)

// logger is looked up on each use: the commonlog backend registers in the
// binary's init, which may run after this package's.
func logger() commonlog.Logger {
	return commonlog.GetLogger("timepin")
}

// DefaultOverride leaves the intercepted setter's effect unchanged.
const DefaultOverride = 1.0

// Status is the outcome recorded for the single hook.
type Status int32

const (
	StatusUnresolved Status = iota
	StatusModuleMissing
	StatusCapabilityMissing
	StatusTargetMissing
	StatusInstalled
	StatusInstallFailed
)

func (s Status) String() string {
	switch s {
	case StatusUnresolved:
		return "unresolved"
	case StatusModuleMissing:
		return "module-missing"
	case StatusCapabilityMissing:
		return "capability-missing"
	case StatusTargetMissing:
		return "target-missing"
	case StatusInstalled:
		return "installed"
	case StatusInstallFailed:
		return "install-failed"
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

// HookRecord describes the hook. Trampoline is only meaningful when Status
// is StatusInstalled.
type HookRecord struct {
	Target      uintptr
	Replacement uintptr
	Trampoline  uintptr
	Status      Status
}

// Pin owns the process-wide state behind one intercepted setter: the
// override value, the hook record and the attach state.
//
// The replacement function has no context argument, so the state has to be
// reachable from a bare C function. Use Default for that.
//
// The trampoline is published before the target is patched, and the status
// only becomes StatusInstalled once the installer returns. A host call that
// lands in between already goes through Intercept and is forwarded with the
// override; Record still reports the previous status for that window.
type Pin struct {
	override atomic.Uint64
	origin   atomic.Uintptr

	target      atomic.Uintptr
	replacement atomic.Uintptr
	status      atomic.Int32
	state       atomic.Int32
	attached    atomic.Bool

	// Written by Attach before origin is published and read only after
	// origin or state is observed.
	platform   Platform
	capability Resolver
	watch      []string
}

// NewPin returns a Pin holding DefaultOverride.
func NewPin() *Pin {
	p := &Pin{}
	p.SetOverride(DefaultOverride)
	return p
}

var defaultPin = NewPin()

// Default returns the Pin used by the exported entry points.
func Default() *Pin {
	return defaultPin
}

// SetOverride stores the value forwarded on every intercepted call. It may
// be called at any time from any goroutine. Before the hook is installed
// the value is only latent. Any value is accepted, including NaN and the
// infinities.
func (p *Pin) SetOverride(v float64) {
	p.override.Store(math.Float64bits(v))
	logger().Info("override updated", "value", v)
}

// Override returns the current override value.
func (p *Pin) Override() float64 {
	return math.Float64frombits(p.override.Load())
}

// Record returns a snapshot of the hook record.
func (p *Pin) Record() HookRecord {
	return HookRecord{
		Target:      p.target.Load(),
		Replacement: p.replacement.Load(),
		Trampoline:  p.origin.Load(),
		Status:      Status(p.status.Load()),
	}
}

// Intercept runs in place of the original setter. The caller's argument is
// only logged; the original body receives the override instead, so every
// call re-asserts it.
func (p *Pin) Intercept(requested float32) {
	fn := p.origin.Load()
	v := p.Override()
	logger().Debug("intercepted", "requested", requested, "forwarded", v)
	if fn == 0 {
		return
	}
	p.platform.Caller.CallFloat32(fn, float32(v))
}

// ApplyNow pushes the current override through the trampoline without
// waiting for the host to call the setter. It does nothing until the hook
// is installed.
func (p *Pin) ApplyNow() {
	if p.State() != StateInstalled {
		logger().Debug("apply skipped", "state", p.State())
		return
	}

	v := p.Override()
	p.platform.Caller.CallFloat32(p.origin.Load(), float32(v))
	logger().Info("override applied", "value", v)

	for _, name := range p.watch {
		addr := p.capability.Resolve(name)
		logger().Debug("watched", "name", name, "found", addr != 0, "address", hexAddr(addr))
	}
}

func hexAddr(addr uintptr) string {
	return fmt.Sprintf("%#x", addr)
}
