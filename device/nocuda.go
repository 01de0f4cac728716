//go:build !cuda

package device

import "context"
import "errors"

// ErrNoCUDA is returned by CUDA when the binary was built without the cuda tag.
var ErrNoCUDA = errors.New("device: built without cuda support")

// CUDA enumerates GPUs through the driver API. Build with -tags cuda.
type CUDA struct{}

func (CUDA) Devices(context.Context) ([]Device, error) {
	return nil, ErrNoCUDA
}
