//go:build unix

package main

import "golang.org/x/sys/unix"

// lowerPriority sets the niceness of the current process. Zero leaves it
// unchanged.
func lowerPriority(nice int) error {
	if nice == 0 {
		return nil
	}
	return unix.Setpriority(unix.PRIO_PROCESS, 0, nice)
}
