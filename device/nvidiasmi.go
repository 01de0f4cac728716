package device

import "bufio"
import "bytes"
import "context"
import "errors"
import "fmt"
import "io"
import "os/exec"
import "strconv"
import "strings"

// ErrParse is returned for nvidia-smi output that cannot be read.
var ErrParse = errors.New("device: cannot parse nvidia-smi output")

// NvidiaSMI enumerates GPUs by running nvidia-smi.
type NvidiaSMI struct {
	// Path of the binary. Empty means "nvidia-smi" from PATH.
	Path string
}

// Devices runs `nvidia-smi -q -d Memory` and parses its report.
func (n NvidiaSMI) Devices(ctx context.Context) ([]Device, error) {
	path := n.Path
	if path == "" {
		path = "nvidia-smi"
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "-q", "-d", "Memory")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("device: %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	return ParseMemory(&stdout)
}

// ParseMemory reads an `nvidia-smi -q -d Memory` report. Every block starting
// with a "GPU <bus id>" line is one device; its first Total and Free lines
// (the framebuffer section) give the memory in MiB.
func ParseMemory(r io.Reader) ([]Device, error) {
	var devs []Device
	var total, free bool
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if strings.HasPrefix(line, "GPU ") {
			devs = append(devs, Device{
				Index: len(devs),
				Name:  strings.TrimSpace(strings.TrimPrefix(line, "GPU ")),
			})
			total, free = false, false
			continue
		}
		if len(devs) == 0 {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if (key == "Free" && free) || (key == "Total" && total) || (key != "Free" && key != "Total") {
			continue
		}
		fields := strings.Fields(value)
		if len(fields) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrParse, line)
		}
		mib, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrParse, line, err)
		}
		d := &devs[len(devs)-1]
		if key == "Free" {
			d.FreeMiB, free = mib, true
		} else {
			d.TotalMiB, total = mib, true
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return devs, nil
}
