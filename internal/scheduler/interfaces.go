package scheduler

import "context"

// DelayedSweeper pays out delayed withdrawals whose hold has elapsed.
// It returns how many were paid.
type DelayedSweeper interface {
	ProcessDueDelayed(ctx context.Context) (int, error)
}
