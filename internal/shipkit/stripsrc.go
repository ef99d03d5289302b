package shipkit

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// stripSources deletes every readable source file from the staged tree except
// the entry point, package markers and modules matching exclude. A file with
// no compiled artifact is deleted all the same and reported: the source tree
// stays on the bundler search path, so such a module ships as bytecode.
// Returns the number of files deleted.
func stripSources(stageDir, entry string, exclude []string, artifacts []CompiledArtifact, rep *Reporter) (int, error) {
	built := make(map[string]bool, len(artifacts))
	for _, a := range artifacts {
		built[a.Module] = true
	}

	var sources, caches []string
	err := filepath.WalkDir(stageDir, func(p string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if de.IsDir() {
			if de.Name() == "__pycache__" {
				caches = append(caches, p)
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(de.Name(), ".py") || de.Name() == "__init__.py" {
			return nil
		}
		rel, err := filepath.Rel(stageDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == entry || isExcluded(rel, exclude) {
			return nil
		}
		sources = append(sources, rel)
		return nil
	})
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, rel := range sources {
		if err := os.Remove(filepath.Join(stageDir, filepath.FromSlash(rel))); err != nil {
			return deleted, err
		}
		deleted++
		if !built[ModuleName(rel)] {
			rep.Warn(KindUncompiled, "deleted %s, which has no compiled artifact; the bundler still collects it as readable bytecode from the source tree", rel)
		}
	}
	for _, c := range caches {
		if err := os.RemoveAll(c); err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}
