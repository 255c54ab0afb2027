package applier

import (
	"context"
	"errors"
	"log/slog"

	"github.com/speedwagon-io/gpuglow/internal/model"
)

// ErrApplyFailed wraps every failure to push a color to the lighting
// hardware: missing command, non-zero exit, timeout. Tick-scoped; the
// monitor logs it and retries on the next tick.
var ErrApplyFailed = errors.New("failed to apply color")

// Applier pushes a color to the lighting hardware. Best effort: there
// is no confirmation read-back.
type Applier interface {
	Apply(ctx context.Context, color model.RGB) error
	Health(ctx context.Context) error
}

// LogApplier logs colors instead of applying them (for dry-run mode).
type LogApplier struct {
	log *slog.Logger
}

func NewLogApplier(log *slog.Logger) *LogApplier {
	return &LogApplier{log: log}
}

func (a *LogApplier) Apply(ctx context.Context, color model.RGB) error {
	a.log.Info("APPLY",
		slog.String("color", color.Hex()),
	)
	return nil
}

func (a *LogApplier) Health(ctx context.Context) error {
	return nil
}
