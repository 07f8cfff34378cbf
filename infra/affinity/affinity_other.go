//go:build !linux

package affinity

// Pin is a no-op on platforms without sched_setaffinity.
func Pin(cores ...int) error {
	return nil
}
