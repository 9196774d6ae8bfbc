package timepin

import (
	"context"
	"errors"
	"fmt"
)

// State is a step of the attach sequence. Transitions only move forward.
type State int32

const (
	StateIdle State = iota
	StateAwaitingModule
	StateAwaitingCapability
	StateAwaitingTarget
	StateInstalling
	StateInstalled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingModule:
		return "awaiting-module"
	case StateAwaitingCapability:
		return "awaiting-capability"
	case StateAwaitingTarget:
		return "awaiting-target"
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// State returns the current step of the attach sequence.
func (p *Pin) State() State {
	return State(p.state.Load())
}

// Start runs Attach on its own goroutine and forgets about it. Every
// outcome ends in a log record; nothing is reported back to the caller.
func (p *Pin) Start(cfg Config, platform Platform) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				state := p.State()
				switch state {
				case StateInstalled, StateFailed:
					// Already terminal.
					logger().Error("attach panicked", "panic", r, "state", state)
					return
				}
				status := failedStatus(state)
				p.status.Store(int32(status))
				p.state.Store(int32(StateFailed))
				logger().Error("attach panicked", "panic", r, "state", state, "status", status)
			}
		}()
		_ = p.Attach(context.Background(), cfg, platform)
	}()
}

// Attach runs the one-shot sequence: wait for the module, find the name
// resolution callback, resolve the target, install the hook and push the
// current override once. It returns the terminal error, if any. A Pin can
// only be attached once.
func (p *Pin) Attach(ctx context.Context, cfg Config, platform Platform) error {
	if !p.attached.CompareAndSwap(false, true) {
		return ErrAlreadyAttached
	}

	p.platform = platform
	p.watch = cfg.Watch
	p.replacement.Store(platform.Replacement)

	p.enter(StateAwaitingModule)
	m, err := AwaitModule(ctx, platform.Modules, cfg.Module, cfg.SettleDelay)
	if err != nil {
		return p.fail(StatusModuleMissing, err, "module not found", "module", cfg.Module)
	}
	logger().Info("module found", "module", m.Name())

	p.enter(StateAwaitingCapability)
	capability, err := ResolveCapability(m, cfg.Capability)
	if err != nil {
		return p.fail(StatusCapabilityMissing, err, "capability not found", "symbol", cfg.Capability)
	}
	logger().Info("capability found", "symbol", cfg.Capability, "address", hexAddr(capability))
	p.capability = nativeResolver{caller: platform.Caller, fn: capability}

	p.enter(StateAwaitingTarget)
	target, name, err := ResolveByName(p.capability, cfg.Candidates)
	if err != nil {
		return p.fail(StatusTargetMissing, err, "target not found", "candidates", cfg.Candidates)
	}
	p.target.Store(target)
	logger().Info("target found", "name", name, "address", hexAddr(target))

	p.enter(StateInstalling)
	if err := p.install(target, platform); err != nil {
		return p.fail(StatusInstallFailed, err, "install failed", "target", hexAddr(target))
	}

	p.status.Store(int32(StatusInstalled))
	p.enter(StateInstalled)
	logger().Notice("install succeeded", "target", hexAddr(target), "trampoline", hexAddr(p.origin.Load()))

	p.ApplyNow()
	return nil
}

func (p *Pin) install(target uintptr, platform Platform) error {
	if platform.Replacement == 0 {
		return fmt.Errorf("%w: no replacement address", ErrInstallFailed)
	}
	if platform.Hooker == nil {
		return fmt.Errorf("%w: no hooker", ErrInstallFailed)
	}

	err := platform.Hooker.Install(target, platform.Replacement, &p.origin)
	if err != nil {
		p.origin.Store(0)
		if !errors.Is(err, ErrInstallFailed) {
			err = fmt.Errorf("%w: %w", ErrInstallFailed, err)
		}
		return err
	}
	if p.origin.Load() == 0 {
		return fmt.Errorf("%w: hooker returned no trampoline", ErrInstallFailed)
	}
	return nil
}

// failedStatus is the status recorded when the sequence breaks off in s.
func failedStatus(s State) Status {
	switch s {
	case StateAwaitingCapability:
		return StatusCapabilityMissing
	case StateAwaitingTarget:
		return StatusTargetMissing
	case StateInstalling:
		return StatusInstallFailed
	}
	return StatusModuleMissing
}

func (p *Pin) enter(s State) {
	p.state.Store(int32(s))
	logger().Debug("attach state", "state", s)
}

func (p *Pin) fail(status Status, err error, message string, keysAndValues ...any) error {
	p.status.Store(int32(status))
	p.state.Store(int32(StateFailed))
	logger().Warning(message, append(keysAndValues, "status", status, "error", err)...)
	return err
}
