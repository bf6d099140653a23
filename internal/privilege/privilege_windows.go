//go:build windows

package privilege

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

func Elevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}

// Writable reports nil when path can be opened for writing. On the
// command platform path is usually empty and never checked.
func Writable(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("privilege: %s: %w", path, err)
	}
	return f.Close()
}
