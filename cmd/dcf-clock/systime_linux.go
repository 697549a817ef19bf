//go:build linux

package main

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// setSystemClock sets the host clock from a wall time decoded by the
// receiver. t carries local wall time in a UTC value.
func setSystemClock(t time.Time) error {
	local := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.Local)
	tv := unix.NsecToTimeval(local.UnixNano())
	if err := unix.Settimeofday(&tv); err != nil {
		return fmt.Errorf("settimeofday: %w", err)
	}
	return nil
}
