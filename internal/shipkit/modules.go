package shipkit

import (
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// ModuleRecord is one source module eligible for native compilation.
type ModuleRecord struct {
	Name     string // dotted module name, e.g. core.engine
	RelPath  string // slash separated, relative to the staged tree
	Path     string
	Excluded bool
}

// CompiledArtifact is the native extension built from one ModuleRecord,
// relocated to the module's own relative position.
type CompiledArtifact struct {
	Module  string
	RelPath string
	Path    string
}

// ModuleName maps a slash separated relative path to its dotted module name.
// Everything after the first dot of the file name is dropped, so both
// core/engine.py and core/engine.cpython-312-darwin.so give core.engine.
// Package markers name their package.
func ModuleName(rel string) string {
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "./")
	dir, file := path.Split(rel)
	stem, _, _ := strings.Cut(file, ".")
	parts := strings.Split(strings.Trim(dir, "/"), "/")
	if parts[0] == "" {
		parts = parts[:0]
	}
	if stem != "__init__" && stem != "" {
		parts = append(parts, stem)
	}
	return strings.Join(parts, ".")
}

// ModuleNames returns the flat name of rel and, when legacy is set, the same
// name under the legacy namespace.
func ModuleNames(rel, legacy string) []string {
	name := ModuleName(rel)
	if name == "" {
		return nil
	}
	if legacy == "" {
		return []string{name}
	}
	return []string{name, legacy + "." + name}
}

// isExcluded reports whether rel contains any denylist token.
func isExcluded(rel string, exclude []string) bool {
	for _, tok := range exclude {
		if tok != "" && strings.Contains(rel, tok) {
			return true
		}
	}
	return false
}

// isNativeExtension reports whether name is a compiled extension module.
func isNativeExtension(name string) bool {
	return strings.HasSuffix(name, ".so") || strings.HasSuffix(name, ".pyd")
}

// discoverModules walks the compile dirs of root and returns every *.py that
// is not a package marker or the entry point, sorted by relative path.
func discoverModules(root string, compileDirs, exclude []string, entry string) ([]ModuleRecord, error) {
	var mods []ModuleRecord
	for _, d := range compileDirs {
		base := filepath.Join(root, filepath.FromSlash(d))
		if !isDir(base) {
			continue
		}
		err := filepath.WalkDir(base, func(p string, de fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if de.IsDir() {
				if de.Name() == "__pycache__" {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.HasSuffix(de.Name(), ".py") || de.Name() == "__init__.py" {
				return nil
			}
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			if rel == entry {
				return nil
			}
			mods = append(mods, ModuleRecord{
				Name:     ModuleName(rel),
				RelPath:  rel,
				Path:     p,
				Excluded: isExcluded(rel, exclude),
			})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i].RelPath < mods[j].RelPath })
	return mods, nil
}

// compilable returns the records that are not excluded.
func compilable(mods []ModuleRecord) []ModuleRecord {
	var out []ModuleRecord
	for _, m := range mods {
		if !m.Excluded {
			out = append(out, m)
		}
	}
	return out
}
