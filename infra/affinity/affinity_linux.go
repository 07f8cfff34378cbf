//go:build linux

package affinity

import "golang.org/x/sys/unix"

// Pin restricts the calling thread to the given cores. Callers must
// hold runtime.LockOSThread for the pin to mean anything.
func Pin(cores ...int) error {
	if len(cores) == 0 {
		return nil
	}
	var set unix.CPUSet
	for _, core := range cores {
		if core >= 0 {
			set.Set(core)
		}
	}
	if set.Count() == 0 {
		return nil
	}
	return unix.SchedSetaffinity(0, &set)
}
