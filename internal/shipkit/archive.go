package shipkit

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/klauspost/compress/zip"
	"github.com/schollz/progressbar/v3"
)

// archiveBundle writes bundleDir to archivePath, keeping the bundle dir as
// the top-level entry. ditto is used when the platform has it since it keeps
// resource forks; otherwise the bundle is zipped in-process.
func archiveBundle(e *Executor, rep *Reporter, profile platformProfile, lookPath func(string) (string, error), bundleDir, archivePath string) error {
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return err
	}
	if err := os.Remove(archivePath); err != nil && !os.IsNotExist(err) {
		return err
	}

	if profile.NativeArchive {
		if ditto, err := lookPath("ditto"); err == nil {
			cmd := exec.Command(ditto, "-c", "-k", "--sequesterRsrc", "--keepParent", bundleDir, archivePath)
			cmd.Dir = filepath.Dir(bundleDir)
			if err := e.Run(cmd); err == nil {
				return nil
			}
			rep.Warn(KindOptionalStep, "ditto failed, falling back to zip")
			_ = os.Remove(archivePath)
		}
	}

	var progress io.Writer
	if interactive(rep.Out) {
		progress = rep.Out
	}
	return zipDirectory(bundleDir, archivePath, progress)
}

// zipDirectory zips dir into dest with dir's own name as the top-level entry.
// File modes and symlinks survive. When progress is non-nil a bar is drawn
// on it.
func zipDirectory(dir, dest string, progress io.Writer) (err error) {
	dir = filepath.Clean(dir)
	parent := filepath.Dir(dir)

	var paths []string
	if err := filepath.WalkDir(dir, func(p string, _ fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		paths = append(paths, p)
		return nil
	}); err != nil {
		return err
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dest)
		}
	}()

	var bar *progressbar.ProgressBar
	if progress != nil {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetWriter(progress),
			progressbar.OptionSetDescription("archiving"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	zw := zip.NewWriter(out)
	for _, p := range paths {
		if err := addZipEntry(zw, parent, p); err != nil {
			zw.Close()
			return fmt.Errorf("failed to add %s: %w", p, err)
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return zw.Close()
}

func addZipEntry(zw *zip.Writer, base, p string) error {
	info, err := os.Lstat(p)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(base, p)
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = filepath.ToSlash(rel)

	switch {
	case info.IsDir():
		hdr.Name += "/"
		hdr.Method = zip.Store
		_, err = zw.CreateHeader(hdr)
		return err
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(p)
		if err != nil {
			return err
		}
		hdr.Method = zip.Store
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, target)
		return err
	case info.Mode().IsRegular():
		hdr.Method = zip.Deflate
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	default:
		debugf("skipping special file %s\n", p)
		return nil
	}
}
