package transform

import (
	"fmt"

	"github.com/born-ml/collate/internal/autograd"
	"github.com/born-ml/collate/internal/batch"
)

// VariableConfig configures ToVariable.
type VariableConfig struct {
	// Volatile marks values as not requiring gradients (inference only).
	Volatile bool
	// AvoidKeys lists map keys left untouched at any depth.
	AvoidKeys []string
}

type toVariable struct {
	tracker      autograd.Tracker
	requiresGrad bool
	walker       batch.Walker
}

// ToVariable wraps every tensor in the batch with tracker.
func ToVariable(tracker autograd.Tracker, cfg VariableConfig) Transform {
	t := &toVariable{tracker: tracker, requiresGrad: !cfg.Volatile}
	t.walker = batch.Walker{
		Skip:         batch.NewKeySet(cfg.AvoidKeys...),
		Tensor:       t.track,
		DescendLists: true,
	}
	return t
}

func (t *toVariable) Name() string { return "to_variable" }

func (t *toVariable) Apply(v batch.Value) (batch.Value, error) {
	return t.walker.Walk(v)
}

func (t *toVariable) track(path batch.Path, a batch.Array) (batch.Value, error) {
	out, err := t.tracker.Track(a, t.requiresGrad)
	if err != nil {
		return nil, fmt.Errorf("to_variable %s: %w", path, err)
	}
	return batch.NewTensor(out), nil
}
