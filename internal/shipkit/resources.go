package shipkit

import "fmt"

// ResourceKind tells database entries apart from static assets.
type ResourceKind string

const (
	ResourceDatabase ResourceKind = "database"
	ResourceStatic   ResourceKind = "static"
)

// databaseDest is the virtual directory the database is embedded under.
const databaseDest = "data"

// keyMaterialDest is where the application looks for its public key.
const keyMaterialDest = "src/utils"

// ResourceEntry is one embed directive for the bundler.
type ResourceEntry struct {
	Kind   ResourceKind
	Source string
	Dest   string
}

// ResourceManifest is the ordered list of resources to embed. It holds at
// most one database entry and only sources that exist.
type ResourceManifest struct {
	Entries []ResourceEntry
}

// Database returns the database entry, if any.
func (m *ResourceManifest) Database() (ResourceEntry, bool) {
	for _, e := range m.Entries {
		if e.Kind == ResourceDatabase {
			return e, true
		}
	}
	return ResourceEntry{}, false
}

// buildResourceManifest embeds the database and key material the layout
// resolved, plus every static resource whose source exists. Each static
// resource stands on its own: one missing does not drop another.
func buildResourceManifest(l *Layout, static []ResourceSpec, s *Settings, rep *Reporter) *ResourceManifest {
	m := &ResourceManifest{}

	if l.Database.Found() && isFile(l.Database.Path) {
		m.add(ResourceEntry{Kind: ResourceDatabase, Source: l.Database.Path, Dest: databaseDest}, rep)
	} else {
		rep.Warn(KindMissingResource, "no database found, building without bundled data")
	}

	for _, r := range static {
		src := s.abs(r.Source)
		if !pathExists(src) {
			rep.Warn(KindMissingResource, "resource %s not found, skipping", r.Source)
			continue
		}
		m.add(ResourceEntry{Kind: ResourceStatic, Source: src, Dest: r.Dest}, rep)
	}

	if l.KeyMaterial != "" && !m.has(l.KeyMaterial) {
		m.add(ResourceEntry{Kind: ResourceStatic, Source: l.KeyMaterial, Dest: keyMaterialDest}, rep)
	}
	return m
}

func (m *ResourceManifest) add(e ResourceEntry, rep *Reporter) {
	m.Entries = append(m.Entries, e)
	rep.Step("Embed %s: %s", e.Kind, e)
}

// has reports whether source is already embedded, directly or through a
// directory entry.
func (m *ResourceManifest) has(source string) bool {
	for _, e := range m.Entries {
		if within(e.Source, source) {
			return true
		}
	}
	return false
}

func (e ResourceEntry) String() string {
	return fmt.Sprintf("%s -> %s", e.Source, e.Dest)
}
