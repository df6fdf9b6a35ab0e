package main

import (
	"bytes"
	"testing"

	"github.com/born-ml/born/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/collate/internal/batch"
)

func TestRenderTree(t *testing.T) {
	raw, err := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Int64, tensor.CPU)
	require.NoError(t, err)

	v := batch.Map{
		"image": batch.NewTensor(raw),
		"meta": batch.Map{
			"ids": batch.List{batch.Opaque{V: "a"}, batch.Opaque{V: "b"}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, renderTree(&buf, v))

	want := "batch\n" +
		"├── image  int64[2 3]\n" +
		"└── meta\n" +
		"    └── ids  list[2]\n" +
		"        ├── 0  a\n" +
		"        └── 1  b\n"
	assert.Equal(t, want, buf.String())
}
