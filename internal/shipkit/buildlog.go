package shipkit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ulikunitz/xz"
)

// buildLog collects subprocess output of a run in a temp file; Finish
// compresses it next to the archive.
type buildLog struct {
	mu   sync.Mutex
	file *os.File
}

func newBuildLog(dir string) (*buildLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(dir, "build-*.log")
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(f, "shipkit %s build started %s\n", version, time.Now().Format(time.RFC3339))
	return &buildLog{file: f}, nil
}

func (l *buildLog) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Write(p)
}

// Finish compresses the log to dest with xz and removes the temp file.
func (l *buildLog) Finish(dest string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	defer os.Remove(l.file.Name())

	if _, err := l.file.Seek(0, io.SeekStart); err != nil {
		l.file.Close()
		return err
	}
	src := l.file
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	xzWriter, err := xz.NewWriter(out)
	if err != nil {
		return err
	}
	if _, err := io.Copy(xzWriter, src); err != nil {
		xzWriter.Close()
		return err
	}
	return xzWriter.Close()
}
