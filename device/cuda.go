//go:build cuda

package device

import "context"
import "fmt"

import "gorgonia.org/cu"

const mib = 1 << 20

// CUDA enumerates GPUs through the driver API.
type CUDA struct{}

// Devices queries every CUDA device for its name and memory. Free memory
// needs a live context, which is created and destroyed per device.
func (CUDA) Devices(ctx context.Context) ([]Device, error) {
	n, err := cu.NumDevices()
	if err != nil {
		return nil, fmt.Errorf("device: cuda: %w", err)
	}
	devs := make([]Device, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d := cu.Device(i)
		name, err := d.Name()
		if err != nil {
			return nil, fmt.Errorf("device: cuda %d: %w", i, err)
		}
		c, err := d.MakeContext(cu.SchedAuto)
		if err != nil {
			return nil, fmt.Errorf("device: cuda %d: %w", i, err)
		}
		free, total, err := cu.MemInfo()
		c.Destroy()
		if err != nil {
			return nil, fmt.Errorf("device: cuda %d: %w", i, err)
		}
		devs = append(devs, Device{Index: i, Name: name, FreeMiB: int(free / mib), TotalMiB: int(total / mib)})
	}
	return devs, nil
}
