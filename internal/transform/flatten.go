package transform

import (
	"fmt"

	"github.com/born-ml/collate/internal/batch"
)

type flatten struct{}

// Flatten inverts a list of per-sample maps into a map of per-key lists,
// recursing into nested maps.
//
// The keys are taken from the first sample. Values that are not a non-empty
// list of maps are returned unchanged.
func Flatten() Transform {
	return flatten{}
}

func (flatten) Name() string { return "flatten" }

func (flatten) Apply(v batch.Value) (batch.Value, error) {
	return invert(nil, v)
}

func invert(path batch.Path, v batch.Value) (batch.Value, error) {
	samples, ok := v.(batch.List)
	if !ok || len(samples) == 0 {
		return v, nil
	}
	first, ok := samples[0].(batch.Map)
	if !ok {
		return v, nil
	}

	out := make(batch.Map, len(first))
	for _, key := range first.Keys() {
		column := make(batch.List, len(samples))
		for i, s := range samples {
			m, isMap := s.(batch.Map)
			if !isMap {
				return nil, fmt.Errorf("%w: %s: sample %d is not a map",
					ErrMissingKey, path.Key(key), i)
			}
			e, found := m[key]
			if !found {
				return nil, fmt.Errorf("%w: %s: sample %d", ErrMissingKey, path.Key(key), i)
			}
			column[i] = e
		}
		nv, err := invert(path.Key(key), column)
		if err != nil {
			return nil, err
		}
		out[key] = nv
	}
	return out, nil
}
