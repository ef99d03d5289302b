package shipkit

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
)

// stageSkipped reports whether a source entry must not reach the staged tree:
// bytecode caches and Finder metadata.
func stageSkipped(name string, isDir bool) bool {
	if isDir {
		return name == "__pycache__"
	}
	return strings.HasSuffix(name, ".pyc") || name == ".DS_Store"
}

// privateSources maps the license state paths that live inside src to their
// slash separated path relative to src. Paths outside src never match.
func privateSources(src string, private []string) map[string]bool {
	skip := make(map[string]bool, len(private))
	for _, p := range private {
		abs, err := filepath.Abs(p)
		if err != nil || !within(src, abs) {
			continue
		}
		if rel, err := filepath.Rel(src, abs); err == nil && rel != "." {
			skip[filepath.ToSlash(rel)] = true
		}
	}
	return skip
}

// stageSource recreates dst as a fresh copy of src and returns the number of
// files staged. dst is always removed first, so nothing from a previous run
// survives.
func stageSource(src, dst string, private []string, rep *Reporter) (int, error) {
	if err := os.RemoveAll(dst); err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", dst, err)
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dst, err)
	}

	skip := privateSources(src, private)

	var files []string
	err := filepath.WalkDir(src, func(p string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == src {
			return nil
		}
		if stageSkipped(de.Name(), de.IsDir()) {
			if de.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if !de.IsDir() && skip[filepath.ToSlash(rel)] {
			rep.Step("Left out license state %s", rel)
			return nil
		}
		if de.IsDir() {
			return os.MkdirAll(filepath.Join(dst, rel), 0o755)
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to walk %s: %w", src, err)
	}

	var bar *progressbar.ProgressBar
	if interactive(rep.Out) {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(rep.Out),
			progressbar.OptionSetDescription("staging"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	for _, rel := range files {
		from := filepath.Join(src, rel)
		to := filepath.Join(dst, rel)
		info, err := os.Lstat(from)
		if err != nil {
			return 0, err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			err = copySymlink(from, to)
		} else {
			err = copyFile(from, to)
		}
		if err != nil {
			return 0, fmt.Errorf("failed to stage %s: %w", rel, err)
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return len(files), nil
}
