package shipkit

import (
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// compilerDriver runs the native compiler helper over the staged tree and
// puts every artifact next to the module it was built from.
type compilerDriver struct {
	Exec        *Executor
	Rep         *Reporter
	Python      string
	Helper      string
	GOOS        string
	GOARCH      string
	CompileDirs []string
	Exclude     []string
	Entry       string
}

// compileResult is what the driver leaves behind for the later stages.
type compileResult struct {
	Modules   []ModuleRecord
	Artifacts []CompiledArtifact
}

// benignCompilerOutput reports whether a failed helper run only said there
// was nothing to build.
func benignCompilerOutput(out string) bool {
	lower := strings.ToLower(out)
	return strings.Contains(lower, "no extensions") || strings.Contains(lower, "nothing to compile")
}

// archFlag maps GOARCH to the compiler's -arch name.
func archFlag(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	default:
		return goarch
	}
}

func (d *compilerDriver) env() []string {
	env := append(os.Environ(),
		"CFLAGS=-O2 -Wno-deprecated-declarations",
		"SHIPKIT_COMPILE_DIRS="+strings.Join(d.CompileDirs, ","),
		"SHIPKIT_EXCLUDE="+strings.Join(d.Exclude, ","),
		"SHIPKIT_ENTRY="+d.Entry,
	)
	if d.GOOS == "darwin" {
		env = append(env, "ARCHFLAGS=-arch "+archFlag(d.GOARCH))
	}
	return env
}

// Compile builds every non-excluded module of stageDir. The helper runs with
// stageDir as its working directory; the driver's own directory never changes.
func (d *compilerDriver) Compile(stageDir string) (*compileResult, error) {
	mods, err := discoverModules(stageDir, d.CompileDirs, d.Exclude, d.Entry)
	if err != nil {
		return nil, stageErr("compile", fmt.Errorf("failed to scan modules: %w", err))
	}
	res := &compileResult{Modules: mods}
	targets := compilable(mods)
	for _, m := range mods {
		if m.Excluded {
			d.Rep.Step("Excluded from compilation: %s", m.RelPath)
		}
	}
	if len(targets) == 0 {
		d.Rep.Warn(KindEmptyInput, "no modules to compile under %s", strings.Join(d.CompileDirs, ", "))
		return res, nil
	}

	d.Rep.Step("Compiling %d modules with %s", len(targets), filepath.Base(d.Helper))
	cmd := exec.Command(d.Python, d.Helper, stageDir)
	cmd.Dir = stageDir
	cmd.Env = d.env()
	out, err := d.Exec.Output(cmd)
	if err != nil {
		if !benignCompilerOutput(out) {
			return nil, &StageError{Stage: "compile", ExitCode: exitCode(err), Err: fmt.Errorf("compiler helper failed: %w", err)}
		}
		d.Rep.Warn(KindEmptyInput, "compiler helper reported nothing to compile")
	}

	moved, err := relocateArtifacts(stageDir)
	if err != nil {
		return nil, stageErr("compile", err)
	}
	d.Rep.Detail("relocated %d artifacts", moved)
	if err := cleanIntermediates(stageDir, targets); err != nil {
		return nil, stageErr("compile", err)
	}

	for _, m := range mods {
		if !m.Excluded {
			continue
		}
		for _, stray := range artifactsFor(stageDir, m) {
			if err := os.Remove(stray); err != nil {
				return nil, stageErr("compile", err)
			}
			d.Rep.Warn(KindInfo, "removed artifact of excluded module %s", m.Name)
		}
	}

	var missing, dup []string
	for _, m := range targets {
		found := artifactsFor(stageDir, m)
		switch len(found) {
		case 0:
			missing = append(missing, m.Name)
		case 1:
			rel, _ := filepath.Rel(stageDir, found[0])
			res.Artifacts = append(res.Artifacts, CompiledArtifact{Module: m.Name, RelPath: filepath.ToSlash(rel), Path: found[0]})
		default:
			dup = append(dup, m.Name)
		}
	}
	if len(missing) > 0 || len(dup) > 0 {
		return nil, stageErr("compile", fmt.Errorf("incomplete compilation: missing %v, ambiguous %v", missing, dup))
	}
	d.Rep.Step("Compiled %d modules", len(res.Artifacts))
	return res, nil
}

// relocateArtifacts moves native extensions out of <stageDir>/build into the
// tree, dropping the leading lib.<tag> segment of the build convention, and
// returns how many were moved.
func relocateArtifacts(stageDir string) (int, error) {
	buildDir := filepath.Join(stageDir, "build")
	if !isDir(buildDir) {
		return 0, nil
	}
	moved := 0
	err := filepath.WalkDir(buildDir, func(p string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if de.IsDir() {
			if p != buildDir && filepath.Dir(p) == buildDir && strings.HasPrefix(de.Name(), "temp.") {
				return filepath.SkipDir
			}
			return nil
		}
		if !isNativeExtension(de.Name()) {
			return nil
		}
		rel, err := filepath.Rel(buildDir, p)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) > 1 && strings.HasPrefix(parts[0], "lib.") {
			parts = parts[1:]
		}
		dest := filepath.Join(stageDir, filepath.Join(parts...))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := os.Rename(p, dest); err != nil {
			if err := copyFile(p, dest); err != nil {
				return fmt.Errorf("failed to relocate %s: %w", rel, err)
			}
		}
		debugf("relocated %s -> %s\n", rel, dest)
		moved++
		return nil
	})
	if err != nil {
		return moved, err
	}
	return moved, os.RemoveAll(buildDir)
}

// cleanIntermediates removes the generated C sources of compiled modules.
func cleanIntermediates(stageDir string, targets []ModuleRecord) error {
	for _, m := range targets {
		base := strings.TrimSuffix(m.Path, ".py")
		for _, ext := range []string{".c", ".cpp"} {
			if err := os.Remove(base + ext); err != nil && !os.IsNotExist(err) {
				return err
			}
		}
	}
	return nil
}

// artifactsFor lists the native extensions in m's directory that name m.
func artifactsFor(stageDir string, m ModuleRecord) []string {
	dir := filepath.Dir(m.Path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isNativeExtension(e.Name()) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		rel, err := filepath.Rel(stageDir, p)
		if err != nil {
			continue
		}
		if ModuleName(filepath.ToSlash(rel)) == m.Name {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
