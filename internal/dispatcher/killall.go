package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// KillAllByName sends every process called name the polite termination
// signal, waits delay, then force-kills whatever is left. Processes that
// vanish in between are not an error.
func KillAllByName(ctx context.Context, name string, delay time.Duration) error {
	pids, err := FindByName(name)
	if err != nil {
		return fmt.Errorf("list processes named %s: %w", name, err)
	}
	if len(pids) == 0 {
		return nil
	}
	zap.S().Infow("sweeping processes", "name", name, "pids", pids)

	var errs []error
	for _, pid := range pids {
		if err := signalPid(pid, false); err != nil {
			errs = append(errs, err)
		}
	}

	timer := time.NewTimer(delay)
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
	}

	remaining, err := FindByName(name)
	if err != nil {
		return fmt.Errorf("list processes named %s: %w", name, err)
	}
	for _, pid := range remaining {
		zap.S().Warnw("force killing process", "name", name, "pid", pid)
		if err := signalPid(pid, true); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
