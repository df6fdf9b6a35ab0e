//go:build !windows

package device

import (
	"fmt"
	"runtime"

	"github.com/born-ml/collate/internal/batch"
)

func openWebGPU(_ Options) (Device, func(), error) {
	return nil, nil, fmt.Errorf("%w: webgpu on %s", batch.ErrUnsupportedDevice, runtime.GOOS)
}
