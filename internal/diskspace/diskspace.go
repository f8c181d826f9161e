// Package diskspace reports free space on the volume holding a path.
package diskspace

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/disk"
)

type Checker struct{}

func NewChecker() Checker {
	return Checker{}
}

// FreeBytes returns the bytes available to unprivileged users on the
// filesystem that contains path.
func (Checker) FreeBytes(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, fmt.Errorf("disk usage of %s: %w", path, err)
	}
	return usage.Free, nil
}
