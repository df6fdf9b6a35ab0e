// Package samples reads per-sample records from safetensors files and writes
// collated batches back.
//
// Tensor names are dotted paths into the record: "image", "meta.mask" and
// "tokens.0" become nested maps, and a map whose keys are exactly 0..n-1
// becomes a list. Opaque leaves are stored as JSON in the file metadata
// under "opaque.<path>".
package samples

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/born-ml/born/tensor"
	"github.com/nlpodyssey/safetensors"

	"github.com/born-ml/collate/internal/batch"
	"github.com/born-ml/collate/internal/device"
)

// opaquePrefix marks metadata entries holding opaque leaves.
const opaquePrefix = "opaque."

// Common errors.
var (
	ErrUnsupportedDType = errors.New("unsupported dtype")
	ErrNameConflict     = errors.New("tensor name conflicts with another entry")
	ErrInvalidName      = errors.New("invalid tensor name")
	ErrUnnamedRoot      = errors.New("batch root must be a map or a list")
)

var (
	toSafetensors = map[tensor.DataType]safetensors.DType{
		tensor.Float32: safetensors.F32,
		tensor.Float64: safetensors.F64,
		tensor.Int32:   safetensors.I32,
		tensor.Int64:   safetensors.I64,
		tensor.Uint8:   safetensors.U8,
		tensor.Bool:    safetensors.BOOL,
	}
	fromSafetensors = map[safetensors.DType]tensor.DataType{
		safetensors.F32:  tensor.Float32,
		safetensors.F64:  tensor.Float64,
		safetensors.I32:  tensor.Int32,
		safetensors.I64:  tensor.Int64,
		safetensors.U8:   tensor.Uint8,
		safetensors.BOOL: tensor.Bool,
	}
)

// Record is a decoded file: the sample tree plus the metadata entries that
// did not hold opaque leaves.
type Record struct {
	Value    batch.Value
	Metadata map[string]string
}

// Decode parses a safetensors buffer. Tensor data is copied out of buf.
func Decode(buf []byte) (Record, error) {
	st, err := safetensors.Deserialize(buf)
	if err != nil {
		return Record{}, fmt.Errorf("decoding safetensors: %w", err)
	}
	_, header, err := safetensors.ReadMetadata(buf)
	if err != nil {
		return Record{}, fmt.Errorf("decoding safetensors header: %w", err)
	}

	root := &node{}
	for _, nt := range st.Tensors() {
		raw, err := rawFromView(nt.TensorView)
		if err != nil {
			return Record{}, fmt.Errorf("tensor %q: %w", nt.Name, err)
		}
		if err := root.insert(nt.Name, batch.NewTensor(raw)); err != nil {
			return Record{}, err
		}
	}

	meta := make(map[string]string)
	for k, v := range header.Metadata() {
		name, ok := strings.CutPrefix(k, opaquePrefix)
		if !ok {
			meta[k] = v
			continue
		}
		var x any
		if err := json.Unmarshal([]byte(v), &x); err != nil {
			return Record{}, fmt.Errorf("opaque leaf %q: %w", name, err)
		}
		if err := root.insert(name, batch.Opaque{V: x}); err != nil {
			return Record{}, err
		}
	}

	return Record{Value: root.value(), Metadata: meta}, nil
}

// ReadFile decodes the safetensors file at path.
func ReadFile(path string) (Record, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("reading %s: %w", path, err)
	}
	rec, err := Decode(buf)
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}

// Encode serializes a batch tree rooted at a map or a list. Tensors that
// are not host resident are read back to the host first.
func Encode(v batch.Value, metadata map[string]string) ([]byte, error) {
	views, meta, err := flatten(v, metadata)
	if err != nil {
		return nil, err
	}
	return safetensors.Serialize(views, meta)
}

// WriteFile encodes v and writes it to path.
func WriteFile(path string, v batch.Value, metadata map[string]string) (err error) {
	views, meta, err := flatten(v, metadata)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return safetensors.SerializeToWriter(views, meta, f)
}

// view adapts host bytes to safetensors.View. Unlike
// safetensors.NewTensorView it accepts rank-0 shapes.
type view struct {
	dtype safetensors.DType
	shape []uint64
	data  []byte
}

func (v view) DType() safetensors.DType { return v.dtype }
func (v view) Shape() []uint64          { return v.shape }
func (v view) Data() []byte             { return v.data }
func (v view) DataLen() uint64          { return uint64(len(v.data)) }

func viewOf(a batch.Array) (view, error) {
	dt, ok := toSafetensors[a.DType()]
	if !ok {
		return view{}, fmt.Errorf("%w: %s", ErrUnsupportedDType, a.DType())
	}
	data, err := batch.HostBytes(a)
	if err != nil {
		host, terr := device.CPU().Transfer(a)
		if terr != nil {
			return view{}, terr
		}
		if data, err = batch.HostBytes(host); err != nil {
			return view{}, err
		}
	}
	shape := make([]uint64, len(a.Shape()))
	for i, d := range a.Shape() {
		shape[i] = uint64(d)
	}
	return view{dtype: dt, shape: shape, data: data}, nil
}

func rawFromView(tv safetensors.TensorView) (*tensor.RawTensor, error) {
	dt, ok := fromSafetensors[tv.DType()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDType, tv.DType())
	}
	shape := make(tensor.Shape, len(tv.Shape()))
	for i, d := range tv.Shape() {
		shape[i] = int(d)
	}
	raw, err := tensor.NewRaw(shape, dt, tensor.CPU)
	if err != nil {
		return nil, err
	}
	copy(raw.Data(), tv.Data())
	return raw, nil
}

func flatten(v batch.Value, metadata map[string]string) (map[string]view, map[string]string, error) {
	switch v.(type) {
	case batch.Map, batch.List:
	default:
		return nil, nil, fmt.Errorf("%w, got %T", ErrUnnamedRoot, v)
	}

	views := make(map[string]view)
	meta := make(map[string]string, len(metadata))
	for k, val := range metadata {
		meta[k] = val
	}

	var visit func(path batch.Path, v batch.Value) error
	visit = func(path batch.Path, v batch.Value) error {
		switch n := v.(type) {
		case batch.Map:
			for _, k := range n.Keys() {
				if k == "" || strings.Contains(k, ".") {
					return fmt.Errorf("%w: key %q at %s", ErrInvalidName, k, path)
				}
				if err := visit(path.Key(k), n[k]); err != nil {
					return err
				}
			}
		case batch.List:
			for i, e := range n {
				if err := visit(path.Index(i), e); err != nil {
					return err
				}
			}
		case batch.Tensor:
			tv, err := viewOf(n.Array)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			views[path.String()] = tv
		case batch.Opaque:
			data, err := json.Marshal(n.V)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			meta[opaquePrefix+path.String()] = string(data)
		}
		return nil
	}

	if err := visit(nil, v); err != nil {
		return nil, nil, err
	}
	return views, meta, nil
}

// node is a tree under construction while decoding.
type node struct {
	leaf     batch.Value
	children map[string]*node
}

func (n *node) insert(name string, leaf batch.Value) error {
	parts := strings.Split(name, ".")
	cur := n
	for i, p := range parts {
		if p == "" {
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
		if cur.leaf != nil {
			return fmt.Errorf("%w: %q", ErrNameConflict, strings.Join(parts[:i], "."))
		}
		if cur.children == nil {
			cur.children = make(map[string]*node)
		}
		next, ok := cur.children[p]
		if !ok {
			next = &node{}
			cur.children[p] = next
		}
		cur = next
	}
	if cur.leaf != nil || cur.children != nil {
		return fmt.Errorf("%w: %q", ErrNameConflict, name)
	}
	cur.leaf = leaf
	return nil
}

func (n *node) value() batch.Value {
	if n.leaf != nil {
		return n.leaf
	}
	if idx, ok := n.listOrder(); ok {
		l := make(batch.List, len(idx))
		for i, k := range idx {
			l[i] = n.children[k].value()
		}
		return l
	}
	m := make(batch.Map, len(n.children))
	for k, c := range n.children {
		m[k] = c.value()
	}
	return m
}

// listOrder returns the child keys in index order when they are exactly
// "0" through "n-1".
func (n *node) listOrder() ([]string, bool) {
	if len(n.children) == 0 {
		return nil, false
	}
	idx := make([]int, 0, len(n.children))
	for k := range n.children {
		i, err := strconv.Atoi(k)
		if err != nil || strconv.Itoa(i) != k {
			return nil, false
		}
		idx = append(idx, i)
	}
	sort.Ints(idx)
	keys := make([]string, len(idx))
	for pos, i := range idx {
		if i != pos {
			return nil, false
		}
		keys[pos] = strconv.Itoa(i)
	}
	return keys, true
}
