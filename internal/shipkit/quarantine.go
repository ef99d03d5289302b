package shipkit

import (
	"errors"
	"io/fs"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// quarantineAttrs are the attributes Gatekeeper sets on downloaded files.
var quarantineAttrs = []string{"com.apple.quarantine", "com.apple.provenance"}

// clearQuarantine removes the quarantine attributes from every entry under
// root, without following symlinks. It returns how many attributes it
// removed and the first error it met; callers treat failure as cosmetic.
func clearQuarantine(root string) (int, error) {
	removed := 0
	var firstErr error
	note := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	err := filepath.WalkDir(root, func(p string, _ fs.DirEntry, err error) error {
		if err != nil {
			note(err)
			return nil
		}
		for _, attr := range quarantineAttrs {
			if _, err := unix.Lgetxattr(p, attr, nil); err != nil {
				// ENOATTR and friends: nothing to clear.
				continue
			}
			if err := unix.Lremovexattr(p, attr); err != nil {
				if !errors.Is(err, unix.ENOTSUP) {
					note(err)
				}
				continue
			}
			removed++
		}
		return nil
	})
	if err != nil {
		note(err)
	}
	return removed, firstErr
}
