package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/speedwagon-io/gpuglow/internal/applier"
	"github.com/speedwagon-io/gpuglow/internal/config"
	"github.com/speedwagon-io/gpuglow/internal/gradient"
	"github.com/speedwagon-io/gpuglow/internal/journal"
	"github.com/speedwagon-io/gpuglow/internal/lib/logger/sl"
	"github.com/speedwagon-io/gpuglow/internal/model"
	"github.com/speedwagon-io/gpuglow/internal/sampler"
)

// Monitor drives the sample -> colorize -> apply loop. One tick per
// polling interval; every failure inside a tick is logged and retried
// implicitly on the next one.
type Monitor struct {
	log        *slog.Logger
	cfg        *config.Config
	grad       gradient.Gradient
	resetColor *model.RGB
	sampler    sampler.Sampler
	applier    applier.Applier
	journal    journal.Journal
	stopCh     chan struct{}
	wg         sync.WaitGroup

	mu            sync.RWMutex
	lastColor     *model.RGB
	lastSampleErr error
}

// NewMonitor wires the loop. journal may be nil; resetColor non-nil
// means Stop applies it before closing (opt-in shutdown reset).
func NewMonitor(
	log *slog.Logger,
	cfg *config.Config,
	grad gradient.Gradient,
	resetColor *model.RGB,
	smp sampler.Sampler,
	app applier.Applier,
	jrnl journal.Journal,
) *Monitor {
	return &Monitor{
		log:        log,
		cfg:        cfg,
		grad:       grad,
		resetColor: resetColor,
		sampler:    smp,
		applier:    app,
		journal:    jrnl,
		stopCh:     make(chan struct{}),
	}
}

// Start runs an immediate tick, then one per polling interval until the
// context is cancelled or Stop is called. The interval elapses
// unconditionally, whether or not the tick succeeded.
func (m *Monitor) Start(ctx context.Context) {
	m.log.Info("starting gpu monitor",
		slog.Int("gpu_index", m.cfg.GPU.Index),
		slog.String("sampler", m.sampler.Name()),
		slog.Duration("interval", m.cfg.Polling.Interval),
		slog.String("low", m.grad.Low.Hex()),
		slog.String("high", m.grad.High.Hex()),
	)

	ticker := time.NewTicker(m.cfg.Polling.Interval)
	defer ticker.Stop()

	if m.journal != nil {
		m.wg.Add(1)
		go m.pruneJournal(ctx)
	}

	m.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			m.log.Info("context cancelled, stopping monitor")
			return
		case <-m.stopCh:
			m.log.Info("stop signal received, stopping monitor")
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Stop ends the loop, applies the reset color when one is configured,
// and closes the sampler.
func (m *Monitor) Stop() {
	select {
	case <-m.stopCh:
	default:
		close(m.stopCh)
	}
	m.wg.Wait()

	if m.resetColor != nil {
		// The run context is gone by now; give the reset its own deadline.
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Lighting.Timeout)
		defer cancel()

		if err := m.applier.Apply(ctx, *m.resetColor); err != nil {
			m.log.Error("failed to apply reset color", sl.Err(err))
		} else {
			m.log.Info("reset color applied", slog.String("color", m.resetColor.Hex()))
		}
	}

	if err := m.sampler.Close(); err != nil {
		m.log.Error("failed to close sampler", sl.Err(err))
	}
}

// Tick performs a single sample -> colorize -> apply iteration. Exported
// so one iteration can be exercised without the ticker.
func (m *Monitor) Tick(ctx context.Context) {
	sampleCtx, cancel := context.WithTimeout(ctx, m.cfg.Polling.Timeout)
	defer cancel()

	util, err := m.sampler.Sample(sampleCtx)
	if err != nil {
		m.setLastSampleErr(err)
		m.log.Error("failed to sample gpu utilization",
			slog.Int("gpu_index", m.cfg.GPU.Index),
			sl.Err(err),
		)
		m.record(ctx, model.NewTick(m.cfg.GPU.Index, 0, model.RGB{}, model.StatusSampleFailed, err.Error()))
		return
	}
	m.setLastSampleErr(nil)

	color := m.grad.At(util)

	m.log.Info("tick",
		slog.Int("gpu_index", m.cfg.GPU.Index),
		slog.Int("utilization", util),
		slog.String("color", color.Hex()),
	)

	if last := m.LastColor(); last != nil && *last == color {
		m.log.Debug("color unchanged, skipping apply", slog.String("color", color.Hex()))
		m.record(ctx, model.NewTick(m.cfg.GPU.Index, util, color, model.StatusOK, ""))
		return
	}

	if err := m.applier.Apply(ctx, color); err != nil {
		m.log.Error("failed to apply color",
			slog.String("color", color.Hex()),
			sl.Err(err),
		)
		m.record(ctx, model.NewTick(m.cfg.GPU.Index, util, color, model.StatusApplyFailed, err.Error()))
		return
	}

	m.setLastColor(color)
	m.record(ctx, model.NewTick(m.cfg.GPU.Index, util, color, model.StatusOK, ""))
}

// LastSampleError reports the outcome of the most recent sample attempt.
func (m *Monitor) LastSampleError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSampleErr
}

// LastColor returns the last successfully applied color, or nil before
// the first successful apply.
func (m *Monitor) LastColor() *model.RGB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastColor
}

func (m *Monitor) setLastColor(c model.RGB) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastColor = &c
}

func (m *Monitor) setLastSampleErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSampleErr = err
}

func (m *Monitor) record(ctx context.Context, tick *model.Tick) {
	if m.journal == nil {
		return
	}
	if err := m.journal.Record(ctx, tick); err != nil && !errors.Is(err, context.Canceled) {
		m.log.Error("failed to journal tick", sl.Err(err))
	}
}

func (m *Monitor) pruneJournal(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			if err := m.journal.Cleanup(ctx, m.cfg.Journal.MaxAge); err != nil {
				m.log.Error("failed to cleanup journal", sl.Err(err))
			}
		}
	}
}
