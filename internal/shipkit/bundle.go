package shipkit

import (
	"fmt"
	"os/exec"
	"path/filepath"
)

// bundleRequest is everything one bundler invocation needs.
type bundleRequest struct {
	Product       string
	BundleID      string
	DistDir       string
	WorkDir       string
	StageDir      string
	SourceDir     string // added as a second search path when it exists
	Entry         string
	Icon          string
	RuntimeHook   string
	Resources     *ResourceManifest
	HiddenImports HiddenImportSet
	GOOS          string
}

// bundlerArgs renders req as pyinstaller arguments.
func bundlerArgs(req bundleRequest) []string {
	args := []string{
		"--noconfirm",
		"--onedir",
		"--windowed",
		"--name=" + req.Product,
		"--distpath=" + req.DistDir,
		"--workpath=" + filepath.Join(req.WorkDir, "pyinstaller"),
		"--specpath=" + req.WorkDir,
		"--paths=" + req.StageDir,
	}
	if req.SourceDir != "" && isDir(req.SourceDir) && isDir(req.StageDir) {
		args = append(args, "--paths="+req.SourceDir)
	}
	if req.GOOS == "darwin" && req.BundleID != "" {
		args = append(args, "--osx-bundle-identifier="+req.BundleID)
	}

	sep := addDataSeparator(req.GOOS)
	if req.Resources != nil {
		for _, e := range req.Resources.Entries {
			args = append(args, "--add-data="+e.Source+sep+e.Dest)
		}
	}
	for _, name := range req.HiddenImports.Sorted() {
		args = append(args, "--hidden-import="+name)
	}
	if req.Icon != "" {
		args = append(args, "--icon="+req.Icon)
	}
	if req.RuntimeHook != "" {
		args = append(args, "--runtime-hook="+req.RuntimeHook)
	}
	return append(args, req.Entry)
}

// runBundler invokes pyinstaller from the project root. A non-zero exit is a
// StageError carrying the bundler's own exit status.
func runBundler(e *Executor, rep *Reporter, pyinstaller, root string, req bundleRequest) error {
	args := bundlerArgs(req)
	rep.Step("Bundling %s (%d hidden imports, %d resources)", req.Product, len(req.HiddenImports), len(req.Resources.Entries))
	if Verbose {
		rep.Detail("%s %v", pyinstaller, args)
	}

	cmd := exec.Command(pyinstaller, args...)
	cmd.Dir = root
	if err := e.Run(cmd); err != nil {
		return &StageError{Stage: "bundle", ExitCode: exitCode(err), Err: fmt.Errorf("pyinstaller failed: %w", err)}
	}
	return nil
}
