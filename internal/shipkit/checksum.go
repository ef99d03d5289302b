package shipkit

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"lukechampine.com/blake3"
)

// fileDigest returns the hex BLAKE3-256 of a file. b3sum is used when it is
// installed.
func fileDigest(path string) (string, error) {
	if hasB3sum() {
		var out bytes.Buffer
		cmd := exec.Command("b3sum", "--no-names", path)
		cmd.Stdout = &out
		if err := cmd.Run(); err == nil {
			if fields := strings.Fields(out.String()); len(fields) > 0 {
				return fields[0], nil
			}
		}
	}

	// Fallback: internal Go BLAKE3 (32-byte output, no key)
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// check if b3sum is installed on system
func hasB3sum() bool {
	_, err := exec.LookPath("b3sum")
	return err == nil
}

// treeDigest hashes a directory tree: relative paths, file modes, symlink
// targets and file contents, in walk order. Two trees with the same digest
// have the same content regardless of timestamps.
func treeDigest(root string) (string, error) {
	h := blake3.New(32, nil)
	err := filepath.WalkDir(root, func(p string, _ fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		info, err := os.Lstat(p)
		if err != nil {
			return err
		}
		mode := info.Mode()
		if !mode.IsRegular() {
			// Only file permissions are kept; the rest depend on the umask.
			mode = mode.Type()
		}
		fmt.Fprintf(h, "%s\x00%o\x00", filepath.ToSlash(rel), mode)
		switch {
		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(p)
			if err != nil {
				return err
			}
			io.WriteString(h, target)
		case info.Mode().IsRegular():
			f, err := os.Open(p)
			if err != nil {
				return err
			}
			_, err = io.Copy(h, f)
			f.Close()
			if err != nil {
				return err
			}
		}
		h.Write([]byte{0})
		return nil
	})
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeChecksumFile writes "<digest>  <name>" to <path>.b3, in b3sum's
// format, and returns the checksum file path.
func writeChecksumFile(path string) (string, error) {
	sum, err := fileDigest(path)
	if err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	out := path + ".b3"
	line := fmt.Sprintf("%s  %s\n", sum, filepath.Base(path))
	if err := os.WriteFile(out, []byte(line), 0o644); err != nil {
		return "", err
	}
	return out, nil
}

// verifyChecksumFile checks path against <path>.b3.
func verifyChecksumFile(path string) error {
	data, err := os.ReadFile(path + ".b3")
	if err != nil {
		return err
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return fmt.Errorf("empty checksum file %s.b3", path)
	}
	sum, err := fileDigest(path)
	if err != nil {
		return err
	}
	if !strings.EqualFold(sum, fields[0]) {
		return fmt.Errorf("checksum mismatch for %s: expected %s, got %s", filepath.Base(path), fields[0], sum)
	}
	return nil
}
