//go:build amd64 && !noasm

package lockless

// cpuRelax executes the x86 PAUSE instruction.
func cpuRelax()
