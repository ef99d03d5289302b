package shipkit

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// importNormalizer rewrites references that assume the tree lives under a
// legacy top-level namespace (src.core.x) into the flat form (core.x).
type importNormalizer struct {
	qualified *regexp.Regexp // nil when the tree has no top-level names
	fromStmt  *regexp.Regexp
	aliased   *regexp.Regexp
}

// newImportNormalizer builds the rewrite rules for legacy and the top-level
// package and module names of the tree. Only references to those names are
// touched, so a local variable called like the namespace is left alone.
func newImportNormalizer(legacy string, topLevel []string) *importNormalizer {
	n := &importNormalizer{}
	ns := regexp.QuoteMeta(legacy)
	if len(topLevel) > 0 {
		quoted := make([]string, len(topLevel))
		for i, name := range topLevel {
			quoted[i] = regexp.QuoteMeta(name)
		}
		n.qualified = regexp.MustCompile(`(^|[^\w.])(?:` + ns + `\.)+(` + strings.Join(quoted, "|") + `)\b`)
	}
	n.fromStmt = regexp.MustCompile(`(?m)^([ \t]*)from[ \t]+` + ns + `[ \t]+import[ \t]+([^(\n]+)$`)
	n.aliased = regexp.MustCompile(`\bas[ \t]+` + ns + `\b`)
	return n
}

// Rewrite returns content in flat form. Rewrite(Rewrite(x)) == Rewrite(x).
// A file that binds an alias named like the namespace keeps its qualified
// references, since they point at the alias.
func (n *importNormalizer) Rewrite(content string) string {
	if n.qualified != nil && !n.aliased.MatchString(content) {
		// Matches can share their leading delimiter ("src.a,src.b"), so repeat
		// until stable.
		for {
			next := n.qualified.ReplaceAllString(content, "${1}${2}")
			if next == content {
				break
			}
			content = next
		}
	}
	return n.fromStmt.ReplaceAllString(content, "${1}import ${2}")
}

// topLevelNames lists the packages and modules directly under root.
func topLevelNames(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasPrefix(name, ".") || name == "__pycache__" || name == "build":
		case e.IsDir():
			names = append(names, name)
		case strings.HasSuffix(name, ".py") && name != "__init__.py":
			names = append(names, strings.TrimSuffix(name, ".py"))
		}
	}
	sort.Strings(names)
	return names, nil
}

// normalizeTree rewrites every *.py under root in place and returns how many
// files changed.
func normalizeTree(root, legacy string) (int, error) {
	if legacy == "" {
		return 0, nil
	}
	names, err := topLevelNames(root)
	if err != nil {
		return 0, err
	}
	n := newImportNormalizer(legacy, names)

	changed := 0
	err = filepath.WalkDir(root, func(p string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".py") {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out := n.Rewrite(string(data))
		if out == string(data) {
			return nil
		}
		info, err := de.Info()
		if err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(out), info.Mode().Perm()); err != nil {
			return err
		}
		debugf("normalized %s\n", p)
		changed++
		return nil
	})
	return changed, err
}
