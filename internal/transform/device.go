package transform

import (
	"fmt"

	"github.com/born-ml/collate/internal/batch"
	"github.com/born-ml/collate/internal/device"
)

// DeviceConfig configures ToDevice.
type DeviceConfig struct {
	AvoidKeys []string // Map keys left untouched at any depth.
}

type toDevice struct {
	dev    device.Device
	walker batch.Walker
}

// ToDevice moves every tensor in the batch, including list elements at any
// depth, to dev.
func ToDevice(dev device.Device, cfg DeviceConfig) Transform {
	t := &toDevice{dev: dev}
	t.walker = batch.Walker{
		Skip:         batch.NewKeySet(cfg.AvoidKeys...),
		Tensor:       t.transfer,
		DescendLists: true,
	}
	return t
}

func (t *toDevice) Name() string { return "to_device" }

func (t *toDevice) Apply(v batch.Value) (batch.Value, error) {
	return t.walker.Walk(v)
}

func (t *toDevice) transfer(path batch.Path, a batch.Array) (batch.Value, error) {
	out, err := t.dev.Transfer(a)
	if err != nil {
		return nil, fmt.Errorf("to %s: %s: %w", t.dev.Type(), path, err)
	}
	return batch.NewTensor(out), nil
}
