package device

import "runtime"

import "github.com/klauspost/cpuid/v2"

// HostInfo describes the CPU used when no accelerator is selected.
type HostInfo struct {
	Brand    string
	Physical int
	Logical  int
	AVX2     bool
	AVX512   bool
}

// Host reports the CPU the process runs on.
func Host() HostInfo {
	h := HostInfo{
		Brand:    cpuid.CPU.BrandName,
		Physical: cpuid.CPU.PhysicalCores,
		Logical:  cpuid.CPU.LogicalCores,
		AVX2:     cpuid.CPU.Supports(cpuid.AVX2),
		AVX512:   cpuid.CPU.Supports(cpuid.AVX512F, cpuid.AVX512DQ),
	}
	if h.Logical <= 0 {
		h.Logical = runtime.NumCPU()
	}
	if h.Physical <= 0 {
		h.Physical = h.Logical
	}
	return h
}

// Towers is the number of CPU towers to run when n GPUs were requested.
// With GPUs every device gets a tower; without, there is one per physical core.
func (h HostInfo) Towers(n int) int {
	if n > 0 {
		return n
	}
	return h.Physical
}
