package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/born-ml/born/autodiff"
	"github.com/born-ml/born/backend/cpu"
	"github.com/born-ml/born/tensor"
	"github.com/rs/zerolog"

	"github.com/born-ml/collate/internal/autograd"
	"github.com/born-ml/collate/internal/device"
	"github.com/born-ml/collate/internal/parallel"
	"github.com/born-ml/collate/internal/transform"
)

// ErrUnknownBackend is returned for a to_variable backend other than
// "autodiff" or "cpu".
var ErrUnknownBackend = errors.New("unknown backend")

// Build turns f into a pipeline. The returned release function frees any
// devices opened for to_device steps and must be called once the pipeline
// is no longer used.
func Build(f *File, logger zerolog.Logger) (*transform.Pipeline, func(), error) {
	var releases []func()
	release := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}

	steps := make([]transform.Transform, 0, len(f.Transforms))
	for i, s := range f.Transforms {
		t, free, err := buildStep(s)
		if err != nil {
			release()
			return nil, nil, fmt.Errorf("transform %d (%s): %w", i, s.Name, err)
		}
		if free != nil {
			releases = append(releases, free)
		}
		logger.Debug().Int("step", i).Str("transform", s.Name).Msg("transform configured")
		steps = append(steps, t)
	}

	return transform.Compose(steps...).WithLogger(logger), release, nil
}

func buildStep(s Step) (transform.Transform, func(), error) {
	switch opts := s.Options.(type) {
	case nil:
		if s.Name != NameFlatten {
			return nil, nil, fmt.Errorf("%w %q", ErrUnknownTransform, s.Name)
		}
		return transform.Flatten(), nil, nil

	case *PadOptions:
		return transform.Pad(transform.PadConfig{Value: opts.Value, AvoidKeys: opts.AvoidKeys}), nil, nil

	case *StackOptions:
		cfg := transform.DefaultStackConfig()
		cfg.SharedMemory = opts.SharedMemory
		cfg.AvoidKeys = opts.AvoidKeys
		if opts.Workers < 0 {
			return nil, nil, fmt.Errorf("workers must not be negative, got %d", opts.Workers)
		}
		if opts.Workers > 0 {
			cfg.Parallel = parallel.Config{
				Enabled:    opts.Workers > 1,
				NumWorkers: opts.Workers,
				MinBytes:   parallel.DefaultConfig().MinBytes,
			}
		}
		if s.Name == NameCat {
			return transform.Cat(cfg), nil, nil
		}
		return transform.Stack(cfg), nil, nil

	case *DeviceOptions:
		devOpts := device.DefaultOptions()
		if opts.NonBlocking != nil {
			devOpts.NonBlocking = *opts.NonBlocking
		}
		dev, free, err := device.Open(opts.Device, devOpts)
		if err != nil {
			return nil, nil, err
		}
		return transform.ToDevice(dev, transform.DeviceConfig{AvoidKeys: opts.AvoidKeys}), free, nil

	case *VariableOptions:
		backend, err := variableBackend(opts.Backend)
		if err != nil {
			return nil, nil, err
		}
		cfg := transform.VariableConfig{Volatile: opts.Volatile, AvoidKeys: opts.AvoidKeys}
		return transform.ToVariable(autograd.NewTracker(backend), cfg), nil, nil

	default:
		return nil, nil, fmt.Errorf("unexpected options %T", opts)
	}
}

func variableBackend(name string) (tensor.Backend, error) {
	switch strings.ToLower(name) {
	case "", "autodiff":
		return autodiff.New(cpu.New()), nil
	case "cpu":
		return cpu.New(), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownBackend, name)
	}
}
