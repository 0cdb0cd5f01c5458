package lockless

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// CacheLineSize is the padding unit used by Padded on this architecture.
const CacheLineSize = int(unsafe.Sizeof(cpu.CacheLinePad{}))

// Padded isolates V on its own cache line(s). Go cannot align a field to 64
// bytes, so a full pad on both sides keeps V away from whatever the
// surrounding struct places next to it.
type Padded[T any] struct {
	_ cpu.CacheLinePad
	V T
	_ cpu.CacheLinePad
}
