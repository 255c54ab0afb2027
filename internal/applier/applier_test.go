package applier

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedwagon-io/gpuglow/internal/config"
	"github.com/speedwagon-io/gpuglow/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func lightingConfig(command string) *config.LightingConfig {
	return &config.LightingConfig{
		Command: command,
		Channel: "sync",
		Mode:    "fixed",
		Timeout: 2 * time.Second,
	}
}

func TestLiquidctlApplierCommandLine(t *testing.T) {
	a := NewLiquidctlApplier(testLogger(), lightingConfig("liquidctl"))

	name, args := a.commandLine(model.NewRGB(139, 0, 0))
	assert.Equal(t, "liquidctl", name)
	assert.Equal(t, []string{"set", "sync", "color", "fixed", "#8b0000"}, args)
}

func TestLiquidctlApplierCommandLineSudo(t *testing.T) {
	cfg := lightingConfig("liquidctl")
	cfg.Sudo = true
	a := NewLiquidctlApplier(testLogger(), cfg)

	name, args := a.commandLine(model.NewRGB(0, 0, 139))
	assert.Equal(t, "sudo", name)
	assert.Equal(t, []string{"liquidctl", "set", "sync", "color", "fixed", "#00008b"}, args)
}

func TestLiquidctlApplierSuccess(t *testing.T) {
	// "true" ignores its arguments and exits zero.
	a := NewLiquidctlApplier(testLogger(), lightingConfig("true"))

	err := a.Apply(context.Background(), model.NewRGB(70, 0, 70))
	assert.NoError(t, err)
}

func TestLiquidctlApplierNonZeroExit(t *testing.T) {
	a := NewLiquidctlApplier(testLogger(), lightingConfig("false"))

	err := a.Apply(context.Background(), model.NewRGB(70, 0, 70))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrApplyFailed)
}

func TestLiquidctlApplierMissingCommand(t *testing.T) {
	a := NewLiquidctlApplier(testLogger(), lightingConfig("definitely-not-liquidctl"))

	err := a.Apply(context.Background(), model.NewRGB(70, 0, 70))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrApplyFailed)

	assert.Error(t, a.Health(context.Background()))
}

func TestLiquidctlApplierHealth(t *testing.T) {
	a := NewLiquidctlApplier(testLogger(), lightingConfig("true"))
	assert.NoError(t, a.Health(context.Background()))
}

func TestLogApplier(t *testing.T) {
	a := NewLogApplier(testLogger())

	assert.NoError(t, a.Apply(context.Background(), model.NewRGB(1, 2, 3)))
	assert.NoError(t, a.Health(context.Background()))
}
