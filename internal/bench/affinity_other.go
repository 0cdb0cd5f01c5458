//go:build !linux

package bench

import "runtime"

// pin only locks the OS thread; affinity is not available on this platform.
func pin(int) error {
	runtime.LockOSThread()
	return nil
}
