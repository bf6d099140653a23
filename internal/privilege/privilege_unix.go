//go:build unix

package privilege

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"
)

func Elevated() bool { return unix.Geteuid() == 0 }

// Writable reports nil when the effective user may write path and
// replace it within its directory.
func Writable(path string) error {
	for _, p := range []string{path, filepath.Dir(path)} {
		if err := unix.Access(p, unix.W_OK); err != nil {
			return fmt.Errorf("privilege: %s: %w", p, err)
		}
	}
	return nil
}
