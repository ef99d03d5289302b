package shipkit

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// AuditFinding is the outcome of looking for one embedded resource.
type AuditFinding struct {
	Entry    ResourceEntry
	Found    bool
	Location string // where it was found, relative to the bundle
	Searched bool   // found only by the recursive search
}

func (f AuditFinding) String() string {
	switch {
	case !f.Found:
		return fmt.Sprintf("%s: not found", f.Entry.Dest)
	case f.Searched:
		return fmt.Sprintf("%s: found at %s (outside the expected locations)", f.Entry.Dest, f.Location)
	default:
		return fmt.Sprintf("%s: found at %s", f.Entry.Dest, f.Location)
	}
}

// expectedRel is where the bundler should have put e, relative to an embed
// root. Directories land at their dest; files land inside it.
func expectedRel(e ResourceEntry) string {
	if isDir(e.Source) {
		return filepath.FromSlash(e.Dest)
	}
	return filepath.Join(filepath.FromSlash(e.Dest), filepath.Base(e.Source))
}

// auditBundle checks that every manifest entry landed inside bundleDir. Only a
// missing bundle dir is an error; missing resources are findings. The listing
// is non-empty when the database could not be found anywhere.
func auditBundle(bundleDir string, manifest *ResourceManifest, profile platformProfile, rep *Reporter) ([]AuditFinding, string, error) {
	if !isDir(bundleDir) {
		return nil, "", stageErr("audit", fmt.Errorf("bundle %s was not produced", bundleDir))
	}

	var findings []AuditFinding
	dbMissing := false
	for _, e := range manifest.Entries {
		f := locateResource(bundleDir, e, profile.EmbedRoots)
		findings = append(findings, f)
		if f.Found {
			rep.Step("Audit: %s", f)
			continue
		}
		rep.Warn(KindAudit, "%s", f)
		if e.Kind == ResourceDatabase {
			dbMissing = true
		}
	}

	var listing string
	if dbMissing {
		root := bundleDir
		if len(profile.EmbedRoots) > 0 && isDir(filepath.Join(bundleDir, profile.EmbedRoots[0])) {
			root = filepath.Join(bundleDir, profile.EmbedRoots[0])
		}
		var err error
		listing, err = treeListing(root)
		if err != nil {
			rep.Warn(KindOptionalStep, "failed to list %s: %v", root, err)
		} else {
			rep.Detail("Bundle contents of %s:", root)
			for _, line := range strings.Split(strings.TrimRight(listing, "\n"), "\n") {
				rep.Detail("%s", line)
			}
		}
	}
	return findings, listing, nil
}

var errFound = errors.New("found")

// locateResource tries each embed root, then searches the whole bundle by name.
func locateResource(bundleDir string, e ResourceEntry, roots []string) AuditFinding {
	rel := expectedRel(e)
	for _, r := range roots {
		candidate := filepath.Join(bundleDir, r, rel)
		if pathExists(candidate) {
			loc, _ := filepath.Rel(bundleDir, candidate)
			return AuditFinding{Entry: e, Found: true, Location: loc}
		}
	}

	name := filepath.Base(rel)
	var hit string
	_ = filepath.WalkDir(bundleDir, func(p string, de fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if p != bundleDir && de.Name() == name {
			hit = p
			return errFound
		}
		return nil
	})
	if hit == "" {
		return AuditFinding{Entry: e}
	}
	loc, _ := filepath.Rel(bundleDir, hit)
	return AuditFinding{Entry: e, Found: true, Location: loc, Searched: true}
}

// treeListing renders root as an indented tree, directories first.
func treeListing(root string) (string, error) {
	var b strings.Builder
	var walk func(dir string, depth int) error
	walk = func(dir string, depth int) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].IsDir() != entries[j].IsDir() {
				return entries[i].IsDir()
			}
			return entries[i].Name() < entries[j].Name()
		})
		indent := strings.Repeat("  ", depth)
		for _, e := range entries {
			if e.IsDir() {
				fmt.Fprintf(&b, "%s%s/\n", indent, e.Name())
				if err := walk(filepath.Join(dir, e.Name()), depth+1); err != nil {
					return err
				}
				continue
			}
			fmt.Fprintf(&b, "%s%s\n", indent, e.Name())
		}
		return nil
	}
	fmt.Fprintf(&b, "%s/\n", filepath.Base(root))
	if err := walk(root, 1); err != nil {
		return "", err
	}
	return b.String(), nil
}
