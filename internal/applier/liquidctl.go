package applier

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/speedwagon-io/gpuglow/internal/config"
	"github.com/speedwagon-io/gpuglow/internal/model"
)

// LiquidctlApplier sets lighting by invoking liquidctl, e.g.
// "liquidctl set sync color fixed #8b0000". The command is opaque to
// the rest of the system; only its exit code matters.
type LiquidctlApplier struct {
	log     *slog.Logger
	command string
	channel string
	mode    string
	timeout time.Duration
	sudo    bool
}

func NewLiquidctlApplier(log *slog.Logger, cfg *config.LightingConfig) *LiquidctlApplier {
	return &LiquidctlApplier{
		log:     log,
		command: cfg.Command,
		channel: cfg.Channel,
		mode:    cfg.Mode,
		timeout: cfg.Timeout,
		sudo:    cfg.Sudo,
	}
}

func (a *LiquidctlApplier) Apply(ctx context.Context, color model.RGB) error {
	cmdCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	name, args := a.commandLine(color)

	cmd := exec.CommandContext(cmdCtx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if cmdCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w: %s timed out after %s", ErrApplyFailed, a.command, a.timeout)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s: %s", ErrApplyFailed, a.command, msg)
		}
		return fmt.Errorf("%w: %s: %v", ErrApplyFailed, a.command, err)
	}

	a.log.Debug("color applied",
		slog.String("color", color.Hex()),
	)
	return nil
}

func (a *LiquidctlApplier) Health(ctx context.Context) error {
	if _, err := exec.LookPath(a.command); err != nil {
		return fmt.Errorf("%s not found in PATH: %w", a.command, err)
	}
	return nil
}

func (a *LiquidctlApplier) commandLine(color model.RGB) (string, []string) {
	args := []string{"set", a.channel, "color", a.mode, color.Hex()}
	if a.sudo {
		return "sudo", append([]string{a.command}, args...)
	}
	return a.command, args
}
