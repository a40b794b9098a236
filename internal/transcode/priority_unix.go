//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package transcode

import "golang.org/x/sys/unix"

// applyPriority applies a nice value to a running process.
func applyPriority(pid, nice int) error {
	return unix.Setpriority(unix.PRIO_PROCESS, pid, nice)
}
