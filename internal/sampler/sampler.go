package sampler

import (
	"context"
	"errors"
)

// ErrDeviceUnavailable wraps every failure to enumerate or query the
// monitored GPU. The monitor treats it as tick-scoped and retries on
// the next tick.
var ErrDeviceUnavailable = errors.New("gpu device unavailable")

// Sampler reads the current utilization of one GPU as an integer
// percentage in [0,100].
type Sampler interface {
	Sample(ctx context.Context) (int, error)
	Name() string
	Close() error
}
