package sampler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"github.com/speedwagon-io/gpuglow/internal/lib/logger/sl"
)

// NVMLSampler reads utilization through the NVIDIA Management Library.
// Init and handle acquisition happen lazily inside Sample so a missing
// or not-yet-loaded driver is a tick-scoped error rather than a crash.
type NVMLSampler struct {
	log         *slog.Logger
	index       int
	initialized bool
	device      nvml.Device
	haveDevice  bool
}

func NewNVMLSampler(log *slog.Logger, index int) *NVMLSampler {
	return &NVMLSampler{
		log:   log,
		index: index,
	}
}

func (s *NVMLSampler) Name() string {
	return "nvml"
}

func (s *NVMLSampler) Sample(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if !s.initialized {
		if ret := nvml.Init(); ret != nvml.SUCCESS {
			return 0, fmt.Errorf("%w: nvml init failed: %s", ErrDeviceUnavailable, nvml.ErrorString(ret))
		}
		s.initialized = true
	}

	if !s.haveDevice {
		count, ret := nvml.DeviceGetCount()
		if ret != nvml.SUCCESS {
			return 0, fmt.Errorf("%w: device count failed: %s", ErrDeviceUnavailable, nvml.ErrorString(ret))
		}
		if s.index < 0 || s.index >= count {
			return 0, fmt.Errorf("%w: gpu index %d out of range (%d devices)", ErrDeviceUnavailable, s.index, count)
		}

		device, ret := nvml.DeviceGetHandleByIndex(s.index)
		if ret != nvml.SUCCESS {
			return 0, fmt.Errorf("%w: handle for index %d failed: %s", ErrDeviceUnavailable, s.index, nvml.ErrorString(ret))
		}
		s.device = device
		s.haveDevice = true

		if name, ret := device.GetName(); ret == nvml.SUCCESS {
			s.log.Info("monitoring gpu",
				slog.Int("index", s.index),
				slog.String("name", name),
			)
		}
	}

	util, ret := s.device.GetUtilizationRates()
	if ret != nvml.SUCCESS {
		// Force re-acquisition next tick; the device may have gone away.
		s.haveDevice = false
		return 0, fmt.Errorf("%w: utilization query failed: %s", ErrDeviceUnavailable, nvml.ErrorString(ret))
	}

	return int(util.Gpu), nil
}

func (s *NVMLSampler) Close() error {
	if !s.initialized {
		return nil
	}
	s.initialized = false
	s.haveDevice = false

	if ret := nvml.Shutdown(); ret != nvml.SUCCESS {
		err := fmt.Errorf("nvml shutdown failed: %s", nvml.ErrorString(ret))
		s.log.Debug("error shutting down nvml", sl.Err(err))
		return err
	}
	return nil
}
