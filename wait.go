package timepin

import (
	"context"
	"fmt"
	"time"
)

// DefaultSettleDelay is how long to wait before the first module lookup.
// Probing too early races the host's own initialization.
const DefaultSettleDelay = 8 * time.Second

// AwaitModule waits for settle and then looks the module up once,
// forcing a load when the module exists on the search path but isn't
// mapped. A missing module is reported as ErrModuleAbsent and is never
// retried.
func AwaitModule(ctx context.Context, table ModuleTable, name string, settle time.Duration) (Module, error) {
	if settle > 0 {
		timer := time.NewTimer(settle)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m, err := table.FindOrLoad(name, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrModuleAbsent, name, err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrModuleAbsent, name)
	}
	return m, nil
}
