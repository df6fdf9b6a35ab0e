// Package batch implements the tree of values that collation transforms operate on.
package batch

import (
	"fmt"
	"slices"

	"github.com/born-ml/born/tensor"
)

// Kind identifies the variant held by a Value.
type Kind uint8

// Value variants.
const (
	KindMap Kind = iota
	KindList
	KindTensor
	KindOpaque
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindMap:
		return "map"
	case KindList:
		return "list"
	case KindTensor:
		return "tensor"
	case KindOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Value is a node of a batch tree.
//
// The set of implementations is closed: Map, List, Tensor and Opaque.
type Value interface {
	Kind() Kind
	sealed()
}

// Array is a tensor-like value.
//
// *tensor.RawTensor satisfies Array, as do GPU tensors, shared-memory
// tensors and autograd variables.
type Array interface {
	Shape() tensor.Shape
	DType() tensor.DataType
	NumElements() int
}

// HostArray is an Array whose contiguous row-major bytes live in host memory.
type HostArray interface {
	Array
	Data() []byte
}

// Map is a mapping from names to values.
type Map map[string]Value

// Kind implements Value.
func (Map) Kind() Kind { return KindMap }
func (Map) sealed()    {}

// Keys returns the map keys in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// List is an ordered sequence of values.
type List []Value

// Kind implements Value.
func (List) Kind() Kind { return KindList }
func (List) sealed()    {}

// Tensors returns the arrays of a tensor list.
//
// A list is a tensor list when its first element is a Tensor. ok is false
// for empty lists and lists starting with any other kind. A tensor list
// holding a non-tensor element returns ErrMixedList.
func (l List) Tensors() (arrays []Array, ok bool, err error) {
	if len(l) == 0 {
		return nil, false, nil
	}
	if _, first := l[0].(Tensor); !first {
		return nil, false, nil
	}
	arrays = make([]Array, len(l))
	for i, v := range l {
		t, isTensor := v.(Tensor)
		if !isTensor {
			return nil, true, fmt.Errorf("%w: element %d is a %s", ErrMixedList, i, kindOf(v))
		}
		arrays[i] = t.Array
	}
	return arrays, true, nil
}

// Tensor is a leaf holding a tensor-like array.
type Tensor struct {
	Array Array
}

// NewTensor wraps an array as a batch leaf.
func NewTensor(a Array) Tensor {
	return Tensor{Array: a}
}

// Kind implements Value.
func (Tensor) Kind() Kind { return KindTensor }
func (Tensor) sealed()    {}

// String describes the tensor without its data.
func (t Tensor) String() string {
	return fmt.Sprintf("%s%v", t.Array.DType(), []int(t.Array.Shape()))
}

// Opaque is a leaf holding any value collation does not interpret.
type Opaque struct {
	V any
}

// Kind implements Value.
func (Opaque) Kind() Kind { return KindOpaque }
func (Opaque) sealed()    {}

// Of converts plain Go values into a batch tree.
//
// map[string]any becomes a Map, []any a List and any Array a Tensor.
// Typed slices of arrays and values are accepted too. Values already in
// the tree are returned as is; everything else becomes Opaque.
func Of(x any) Value {
	switch v := x.(type) {
	case Value:
		return v
	case map[string]any:
		m := make(Map, len(v))
		for k, e := range v {
			m[k] = Of(e)
		}
		return m
	case map[string]Value:
		return Map(v)
	case []any:
		l := make(List, len(v))
		for i, e := range v {
			l[i] = Of(e)
		}
		return l
	case []Value:
		return List(v)
	case []Array:
		l := make(List, len(v))
		for i, a := range v {
			l[i] = NewTensor(a)
		}
		return l
	case []*tensor.RawTensor:
		l := make(List, len(v))
		for i, a := range v {
			l[i] = NewTensor(a)
		}
		return l
	case Array:
		return NewTensor(v)
	default:
		return Opaque{V: x}
	}
}

func kindOf(v Value) string {
	if v == nil {
		return "nil"
	}
	return v.Kind().String()
}

// ParseDataType maps a dtype name as printed by tensor.DataType back to it.
func ParseDataType(name string) (tensor.DataType, error) {
	for _, dt := range []tensor.DataType{tensor.Float32, tensor.Float64, tensor.Int32, tensor.Int64, tensor.Uint8, tensor.Bool} {
		if dt.String() == name {
			return dt, nil
		}
	}
	return 0, fmt.Errorf("unknown dtype %q", name)
}
