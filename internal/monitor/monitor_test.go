package monitor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedwagon-io/gpuglow/internal/applier"
	"github.com/speedwagon-io/gpuglow/internal/config"
	"github.com/speedwagon-io/gpuglow/internal/gradient"
	"github.com/speedwagon-io/gpuglow/internal/model"
	"github.com/speedwagon-io/gpuglow/internal/sampler"
)

type fakeSampler struct {
	utilization int
	err         error
	samples     int
	closed      bool
}

func (f *fakeSampler) Sample(ctx context.Context) (int, error) {
	f.samples++
	if f.err != nil {
		return 0, f.err
	}
	return f.utilization, nil
}

func (f *fakeSampler) Name() string { return "fake" }

func (f *fakeSampler) Close() error {
	f.closed = true
	return nil
}

type fakeApplier struct {
	err     error
	applied []model.RGB
}

func (f *fakeApplier) Apply(ctx context.Context, color model.RGB) error {
	if f.err != nil {
		return f.err
	}
	f.applied = append(f.applied, color)
	return nil
}

func (f *fakeApplier) Health(ctx context.Context) error { return nil }

type memJournal struct {
	mu    sync.Mutex
	ticks []*model.Tick
}

func (j *memJournal) Record(ctx context.Context, tick *model.Tick) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ticks = append(j.ticks, tick)
	return nil
}

func (j *memJournal) Recent(ctx context.Context, limit int) ([]*model.Tick, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if limit > len(j.ticks) {
		limit = len(j.ticks)
	}
	out := make([]*model.Tick, limit)
	copy(out, j.ticks[len(j.ticks)-limit:])
	return out, nil
}

func (j *memJournal) Count(ctx context.Context) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return int64(len(j.ticks)), nil
}

func (j *memJournal) Cleanup(ctx context.Context, maxAge time.Duration) error { return nil }

func (j *memJournal) Close() error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		GPU: config.GPUConfig{Index: 0, Sampler: "fake"},
		Polling: config.PollingConfig{
			Interval: 10 * time.Millisecond,
			Timeout:  time.Second,
		},
		Lighting: config.LightingConfig{Timeout: time.Second},
		Journal:  config.JournalConfig{MaxAge: time.Hour},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testGradient() gradient.Gradient {
	return gradient.New(model.NewRGB(0, 0, 139), model.NewRGB(139, 0, 0))
}

func TestTickAppliesInterpolatedColor(t *testing.T) {
	smp := &fakeSampler{utilization: 50}
	app := &fakeApplier{}
	jrnl := &memJournal{}

	m := NewMonitor(testLogger(), testConfig(), testGradient(), nil, smp, app, jrnl)
	m.Tick(context.Background())

	require.Len(t, app.applied, 1)
	assert.Equal(t, model.NewRGB(70, 0, 70), app.applied[0])
	require.NotNil(t, m.LastColor())
	assert.Equal(t, model.NewRGB(70, 0, 70), *m.LastColor())

	require.Len(t, jrnl.ticks, 1)
	assert.Equal(t, model.StatusOK, jrnl.ticks[0].Status)
	assert.Equal(t, 50, jrnl.ticks[0].Utilization)
}

func TestTickSamplerFailureSkipsApply(t *testing.T) {
	smp := &fakeSampler{err: fmt.Errorf("%w: driver not loaded", sampler.ErrDeviceUnavailable)}
	app := &fakeApplier{}
	jrnl := &memJournal{}

	m := NewMonitor(testLogger(), testConfig(), testGradient(), nil, smp, app, jrnl)
	m.Tick(context.Background())

	assert.Empty(t, app.applied, "applier must not run when sampling fails")
	assert.ErrorIs(t, m.LastSampleError(), sampler.ErrDeviceUnavailable)

	require.Len(t, jrnl.ticks, 1)
	assert.Equal(t, model.StatusSampleFailed, jrnl.ticks[0].Status)

	// The loop recovers on the next tick once the device is back.
	smp.err = nil
	smp.utilization = 100
	m.Tick(context.Background())

	require.Len(t, app.applied, 1)
	assert.Equal(t, model.NewRGB(139, 0, 0), app.applied[0])
	assert.NoError(t, m.LastSampleError())
}

func TestTickApplyFailureCarriesNoState(t *testing.T) {
	smp := &fakeSampler{utilization: 0}
	app := &fakeApplier{err: fmt.Errorf("%w: exit status 1", applier.ErrApplyFailed)}
	jrnl := &memJournal{}

	m := NewMonitor(testLogger(), testConfig(), testGradient(), nil, smp, app, jrnl)
	m.Tick(context.Background())

	assert.Nil(t, m.LastColor(), "failed apply must not be remembered")
	require.Len(t, jrnl.ticks, 1)
	assert.Equal(t, model.StatusApplyFailed, jrnl.ticks[0].Status)

	// Same color again next tick: because the failed apply left no
	// state behind, it is retried rather than skipped.
	app.err = nil
	m.Tick(context.Background())

	require.Len(t, app.applied, 1)
	assert.Equal(t, model.NewRGB(0, 0, 139), app.applied[0])
}

func TestTickSkipsUnchangedColor(t *testing.T) {
	smp := &fakeSampler{utilization: 75}
	app := &fakeApplier{}

	m := NewMonitor(testLogger(), testConfig(), testGradient(), nil, smp, app, nil)
	m.Tick(context.Background())
	m.Tick(context.Background())
	m.Tick(context.Background())

	assert.Equal(t, 3, smp.samples)
	assert.Len(t, app.applied, 1, "identical color must be applied once")

	smp.utilization = 10
	m.Tick(context.Background())
	assert.Len(t, app.applied, 2)
}

func TestStartStopsOnContextCancel(t *testing.T) {
	smp := &fakeSampler{utilization: 20}
	app := &fakeApplier{}

	m := NewMonitor(testLogger(), testConfig(), testGradient(), nil, smp, app, nil)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		m.Start(ctx)
		close(done)
	}()

	// Let a few ticks elapse, then cancel.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop on context cancel")
	}

	m.Stop()

	assert.True(t, smp.closed)
	assert.GreaterOrEqual(t, smp.samples, 2, "expected an immediate tick plus interval ticks")
}

func TestStopAppliesResetColor(t *testing.T) {
	smp := &fakeSampler{utilization: 100}
	app := &fakeApplier{}
	reset := model.NewRGB(0, 0, 0)

	m := NewMonitor(testLogger(), testConfig(), testGradient(), &reset, smp, app, nil)
	m.Tick(context.Background())
	m.Stop()

	require.Len(t, app.applied, 2)
	assert.Equal(t, reset, app.applied[1])
	assert.True(t, smp.closed)
}

func TestStopWithoutResetLeavesColor(t *testing.T) {
	smp := &fakeSampler{utilization: 100}
	app := &fakeApplier{}

	m := NewMonitor(testLogger(), testConfig(), testGradient(), nil, smp, app, nil)
	m.Tick(context.Background())
	m.Stop()

	assert.Len(t, app.applied, 1, "no shutdown reset unless configured")
}
