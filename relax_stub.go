//go:build !amd64 || noasm

package lockless

// cpuRelax is a no-op on targets without a spin hint.
func cpuRelax() {}
