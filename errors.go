package timepin

import "errors"

var (
	// ErrModuleAbsent means the target module isn't mapped and couldn't
	// be loaded.
	ErrModuleAbsent = errors.New("module absent")
	// ErrCapabilityAbsent means the module doesn't export the name
	// resolution callback.
	ErrCapabilityAbsent = errors.New("resolution capability absent")
	// ErrTargetAbsent means no candidate name resolved.
	ErrTargetAbsent = errors.New("target absent")
	// ErrInstallFailed wraps every hook installation failure.
	ErrInstallFailed = errors.New("install failed")
	// ErrAlreadyAttached means the attach sequence already ran.
	ErrAlreadyAttached = errors.New("already attached")

	// ErrDoubleHook means the target is already patched.
	ErrDoubleHook = errors.New("double hook")
	// ErrUnpatchable means the prologue holds an instruction that can't
	// be relocated.
	ErrUnpatchable = errors.New("unpatchable prologue")
	// ErrTooShort means the function ends before the patch window.
	ErrTooShort = errors.New("function too short for redirect")
	// ErrUnsupported means the architecture or OS has no hooker.
	ErrUnsupported = errors.New("unsupported platform")
)
