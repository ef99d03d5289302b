package shipkit

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// pruneReport counts what pruning removed.
type pruneReport struct {
	PluginDir    string
	Removed      []string // relative to PluginDir
	Translations []string
}

// prunePlugins removes GUI toolkit plugins not on the keep-lists of profile
// and the translations directory. Every failure is a warning: the bundle is
// already valid without pruning.
func prunePlugins(bundleDir string, profile platformProfile, rep *Reporter) pruneReport {
	var cands []Candidate
	for _, d := range profile.PluginDirs {
		cands = append(cands, Candidate{Label: d, Path: filepath.Join(bundleDir, d)})
	}
	res, err := resolveCandidates(cands, nil)
	if err != nil {
		rep.Step("No Qt plugin directory in bundle, skipping pruning")
		return pruneReport{}
	}
	report := pruneReport{PluginDir: res.Path}

	subdirs := make([]string, 0, len(profile.PluginKeep))
	for sub := range profile.PluginKeep {
		subdirs = append(subdirs, sub)
	}
	sort.Strings(subdirs)

	for _, sub := range subdirs {
		keep := make(map[string]bool)
		for _, k := range profile.PluginKeep[sub] {
			keep[strings.ToLower(k)] = true
		}
		dir := filepath.Join(res.Path, sub)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				rep.Warn(KindOptionalStep, "cannot read %s: %v", dir, err)
			}
			continue
		}
		for _, e := range entries {
			if e.IsDir() || keep[strings.ToLower(e.Name())] {
				continue
			}
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				rep.Warn(KindOptionalStep, "failed to remove plugin %s/%s: %v", sub, e.Name(), err)
				continue
			}
			report.Removed = append(report.Removed, sub+"/"+e.Name())
		}
	}

	for _, t := range []string{
		filepath.Join(res.Path, "..", "translations"),
		filepath.Join(res.Path, "..", "..", "translations"),
	} {
		t = filepath.Clean(t)
		if !isDir(t) {
			continue
		}
		if err := os.RemoveAll(t); err != nil {
			rep.Warn(KindOptionalStep, "failed to remove %s: %v", t, err)
			continue
		}
		report.Translations = append(report.Translations, t)
	}

	rep.Step("Pruned %d plugins and %d translation dirs in %s", len(report.Removed), len(report.Translations), res.Label)
	return report
}
