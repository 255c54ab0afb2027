package sampler

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// SMISampler shells out to nvidia-smi. Fallback for hosts where the
// NVML shared library cannot be loaded.
type SMISampler struct {
	log   *slog.Logger
	index int
}

func NewSMISampler(log *slog.Logger, index int) *SMISampler {
	return &SMISampler{
		log:   log,
		index: index,
	}
}

func (s *SMISampler) Name() string {
	return "nvidia-smi"
}

func (s *SMISampler) Sample(ctx context.Context) (int, error) {
	cmd := exec.CommandContext(ctx, "nvidia-smi",
		"--query-gpu=utilization.gpu",
		"--format=csv,noheader,nounits",
		"-i", strconv.Itoa(s.index),
	)

	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return 0, fmt.Errorf("%w: nvidia-smi: %s", ErrDeviceUnavailable, strings.TrimSpace(string(ee.Stderr)))
		}
		return 0, fmt.Errorf("%w: nvidia-smi: %v", ErrDeviceUnavailable, err)
	}

	util, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, fmt.Errorf("%w: unexpected nvidia-smi output %q", ErrDeviceUnavailable, strings.TrimSpace(string(out)))
	}

	return util, nil
}

func (s *SMISampler) Close() error {
	return nil
}
