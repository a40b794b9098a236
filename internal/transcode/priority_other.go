//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package transcode

import "errors"

func applyPriority(pid, nice int) error {
	return errors.New("process priority is not supported on this platform")
}
