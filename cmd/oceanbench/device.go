package main

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// headless is a device, queue and surface on the noop backend. It records
// nothing and draws nothing, so the benchmark measures CPU encode cost.
type headless struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	surface  hal.Surface
}

func openHeadless() (*headless, error) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("oceanbench: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, errors.New("oceanbench: no adapter")
	}
	opened, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("oceanbench: open device: %w", err)
	}
	surface, err := instance.CreateSurface(0, 0)
	if err != nil {
		opened.Device.Destroy()
		instance.Destroy()
		return nil, fmt.Errorf("oceanbench: create surface: %w", err)
	}
	return &headless{
		instance: instance,
		device:   opened.Device,
		queue:    opened.Queue,
		surface:  surface,
	}, nil
}

func (h *headless) close() {
	h.surface.Destroy()
	h.device.Destroy()
	h.instance.Destroy()
}
