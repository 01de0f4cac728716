// Package device enumerates accelerators and picks the ones a training run
// should use.
package device

import "context"
import "errors"
import "fmt"
import "sort"
import "strconv"
import "strings"

// ErrNotEnoughDevices is returned when more devices are requested than exist.
var ErrNotEnoughDevices = errors.New("device: not enough devices")

// Device describes one accelerator.
type Device struct {
	Index    int
	Name     string
	FreeMiB  int
	TotalMiB int
}

func (d Device) String() string {
	return fmt.Sprintf("%d:%s (%d/%d MiB free)", d.Index, d.Name, d.FreeMiB, d.TotalMiB)
}

// Enumerator lists the devices present on the machine.
type Enumerator interface {
	Devices(ctx context.Context) ([]Device, error)
}

// Select returns the indices of the n devices with the most free memory, the
// freest first. Ties go to the lower index. n == 0 selects nothing.
func Select(devs []Device, n int) ([]int, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative count %d", ErrNotEnoughDevices, n)
	}
	if n > len(devs) {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrNotEnoughDevices, n, len(devs))
	}
	sorted := append([]Device(nil), devs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FreeMiB > sorted[j].FreeMiB
	})
	ids := make([]int, n)
	for i := range ids {
		ids[i] = sorted[i].Index
	}
	return ids, nil
}

// VisibleDevices formats ids as a CUDA_VISIBLE_DEVICES value. The caller
// decides whether to put it into a child process environment.
func VisibleDevices(ids []int) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = strconv.Itoa(id)
	}
	return strings.Join(s, ",")
}
