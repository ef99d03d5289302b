package shipkit

import (
	"fmt"
	"os"
	"path/filepath"
)

// Layout is every path a run needs, resolved once before the first
// destructive stage and never changed afterwards.
type Layout struct {
	Root      string
	SourceDir string
	StageDir  string
	DistDir   string
	WorkDir   string

	// SourceArchive is the archive the source tree was expanded from, if any.
	SourceArchive string

	// Entry is the entry point relative to the source tree (slash separated).
	Entry string

	DatabasePrimary   string
	DatabaseSecondary string
	Database          Resolution

	CompilerHelper Resolution
	Icon           string
	KeyMaterial    string
	Assets         []ResourceSpec // configured static resources, absolute sources

	// MinimalMode is set when the tree has neither ui/ nor core/.
	MinimalMode bool
}

// StagedEntry is the entry point inside the staged tree.
func (l *Layout) StagedEntry() string {
	return filepath.Join(l.StageDir, filepath.FromSlash(l.Entry))
}

// ResolveLayout resolves the layout of the project described by s. A missing
// source tree or entry point is fatal; everything else degrades to a warning.
func ResolveLayout(s *Settings, rep *Reporter, profile platformProfile) (*Layout, error) {
	l := &Layout{
		Root:              s.Root,
		SourceDir:         s.abs(s.SourceDir),
		StageDir:          s.abs(s.StageDir),
		DistDir:           s.abs(s.DistDir),
		WorkDir:           s.abs(s.WorkDir),
		Entry:             filepath.ToSlash(s.Entry),
		DatabasePrimary:   filepath.Join(s.Root, "data", "accounts.db"),
		DatabaseSecondary: filepath.Join(s.abs(s.SourceDir), "data", "accounts.db"),
	}
	if within(l.SourceDir, l.StageDir) || within(l.StageDir, l.SourceDir) {
		return nil, stageErr("resolve", fmt.Errorf("staged dir %s overlaps source tree %s", l.StageDir, l.SourceDir))
	}

	if err := l.resolveSource(rep); err != nil {
		return nil, stageErr("resolve", err)
	}
	if !isFile(filepath.Join(l.SourceDir, filepath.FromSlash(l.Entry))) {
		return nil, stageErr("resolve", fmt.Errorf("entry point %s not found in %s", l.Entry, l.SourceDir))
	}

	l.MinimalMode = !isDir(filepath.Join(l.SourceDir, "ui")) && !isDir(filepath.Join(l.SourceDir, "core"))
	if l.MinimalMode {
		rep.Step("Minimal mode: no ui/ or core/ in %s", l.SourceDir)
	}

	l.resolveDatabase(rep)

	helper, err := l.resolveCompilerHelper()
	if err != nil {
		return nil, stageErr("resolve", err)
	}
	l.CompilerHelper = helper
	rep.Step("Compiler helper: %s", helper)

	if icon := filepath.Join(l.SourceDir, "assets", profile.IconName); isFile(icon) {
		l.Icon = icon
		rep.Step("Icon: %s", icon)
	} else {
		rep.Warn(KindMissingResource, "no icon at %s", icon)
	}

	if key, err := resolveCandidates(keyMaterialCandidates(l.SourceDir, l.Root), nil); err == nil {
		l.KeyMaterial = key.Path
		rep.Step("Key material: %s", key)
	}

	for _, r := range s.Resources {
		l.Assets = append(l.Assets, ResourceSpec{Source: s.abs(r.Source), Dest: r.Dest})
	}
	return l, nil
}

// keyMaterialCandidates are the places the license public key may live.
func keyMaterialCandidates(sourceDir, root string) []Candidate {
	return []Candidate{
		{Label: "source tree", Path: filepath.Join(sourceDir, "utils", "public_key.pem")},
		{Label: "project root", Path: filepath.Join(root, "public_key.pem")},
	}
}

func (l *Layout) resolveSource(rep *Reporter) error {
	var archives []string
	for _, suffix := range sourceArchiveSuffixes {
		archives = append(archives, l.SourceDir+suffix)
	}

	res, err := resolveCandidates([]Candidate{{Label: "source tree", Path: l.SourceDir}}, func() (Candidate, error) {
		for _, a := range archives {
			if !isFile(a) {
				continue
			}
			rep.Step("Expanding source archive %s", a)
			if err := expandSourceArchive(a, l.SourceDir); err != nil {
				return Candidate{}, fmt.Errorf("failed to expand %s: %w", a, err)
			}
			l.SourceArchive = a
			return Candidate{Label: "expanded " + filepath.Base(a), Path: l.SourceDir}, nil
		}
		return Candidate{}, errNoCandidate
	})
	if err != nil {
		return fmt.Errorf("no source tree at %s and no source archive: %w", l.SourceDir, err)
	}
	if !isDir(res.Path) {
		return fmt.Errorf("source tree %s is not a directory", res.Path)
	}
	rep.Step("Source tree: %s", res)
	return nil
}

// InspectLayout resolves the database and key material of an already built
// project without constructing anything. Read-only commands use it.
func InspectLayout(s *Settings) *Layout {
	l := &Layout{
		Root:              s.Root,
		SourceDir:         s.abs(s.SourceDir),
		DatabasePrimary:   filepath.Join(s.Root, "data", "accounts.db"),
		DatabaseSecondary: filepath.Join(s.abs(s.SourceDir), "data", "accounts.db"),
	}
	l.Database, _ = resolveCandidates(l.databaseCandidates(), nil)
	if key, err := resolveCandidates(keyMaterialCandidates(l.SourceDir, l.Root), nil); err == nil {
		l.KeyMaterial = key.Path
	}
	for _, r := range s.Resources {
		l.Assets = append(l.Assets, ResourceSpec{Source: s.abs(r.Source), Dest: r.Dest})
	}
	return l
}

func (l *Layout) databaseCandidates() []Candidate {
	return []Candidate{
		{Label: "primary", Path: l.DatabasePrimary},
		{Label: "secondary", Path: l.DatabaseSecondary},
	}
}

func (l *Layout) resolveDatabase(rep *Reporter) {
	res, err := resolveCandidates(l.databaseCandidates(), func() (Candidate, error) {
		if err := createEmptyDatabase(l.DatabasePrimary); err != nil {
			return Candidate{}, err
		}
		return Candidate{Label: "primary", Path: l.DatabasePrimary}, nil
	})
	if err != nil {
		rep.Warn(KindMissingResource, "no database and none could be created: %v", err)
		return
	}
	l.Database = res
	if v, err := databaseVersion(res.Path); err == nil {
		rep.Step("Database: %s, schema %s", res, v)
		return
	}
	rep.Step("Database: %s", res)
}

func (l *Layout) resolveCompilerHelper() (Resolution, error) {
	return resolveCandidates([]Candidate{
		{Label: "project", Path: filepath.Join(l.Root, "compile_modules.py")},
		{Label: "scripts", Path: filepath.Join(l.Root, "scripts", "compile_modules.py")},
		{Label: "tools", Path: filepath.Join(l.Root, "tools", "compile_modules.py")},
	}, func() (Candidate, error) {
		p := filepath.Join(l.WorkDir, "compile_modules.py")
		if err := os.MkdirAll(l.WorkDir, 0o755); err != nil {
			return Candidate{}, err
		}
		if err := os.WriteFile(p, defaultCompilerHelper, 0o644); err != nil {
			return Candidate{}, fmt.Errorf("failed to write compiler helper: %w", err)
		}
		return Candidate{Label: "built-in", Path: p}, nil
	})
}
