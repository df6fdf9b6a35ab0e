package batch

import "fmt"

// Walker rewrites a batch tree.
//
// Maps are always descended. A map entry whose key is in Skip is copied
// through untouched, at any depth. A tensor list is handed to Tensors when
// set, otherwise its elements are handed to Tensor one by one. Other lists
// are descended only when DescendLists is set. Tensor leaves go to Tensor.
// Everything else is returned unchanged.
//
// Walk never mutates its input; untouched subtrees are shared with the output.
type Walker struct {
	Skip         KeySet
	Tensors      func(path Path, arrays []Array) (Value, error)
	Tensor       func(path Path, a Array) (Value, error)
	DescendLists bool
}

// Walk applies the walker to v.
func (w Walker) Walk(v Value) (Value, error) {
	return w.walk(nil, v)
}

func (w Walker) walk(path Path, v Value) (Value, error) {
	switch node := v.(type) {
	case Map:
		out := make(Map, len(node))
		for _, k := range node.Keys() {
			if w.Skip.Has(k) {
				out[k] = node[k]
				continue
			}
			nv, err := w.walk(path.Key(k), node[k])
			if err != nil {
				return nil, err
			}
			out[k] = nv
		}
		return out, nil

	case List:
		arrays, isTensors, err := node.Tensors()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if isTensors {
			if w.Tensors != nil {
				return w.Tensors(path, arrays)
			}
			if w.Tensor == nil {
				return node, nil
			}
			out := make(List, len(arrays))
			for i, a := range arrays {
				nv, err := w.Tensor(path.Index(i), a)
				if err != nil {
					return nil, err
				}
				out[i] = nv
			}
			return out, nil
		}
		if !w.DescendLists {
			return node, nil
		}
		out := make(List, len(node))
		for i, e := range node {
			nv, err := w.walk(path.Index(i), e)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil

	case Tensor:
		if w.Tensor == nil {
			return node, nil
		}
		return w.Tensor(path, node.Array)

	default:
		return v, nil
	}
}
