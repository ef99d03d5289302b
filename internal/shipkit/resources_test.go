package shipkit

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestResourceManifestSecondaryDatabase(t *testing.T) {
	root, s := newProject(t)
	secondary := filepath.Join(root, "src", "data", "accounts.db")
	if err := createEmptyDatabase(secondary); err != nil {
		t.Fatal(err)
	}
	l := &Layout{
		DatabasePrimary:   filepath.Join(root, "data", "accounts.db"),
		DatabaseSecondary: secondary,
		Database:          Resolution{Path: secondary, Label: "secondary"},
	}
	rep, _ := newTestReporter()

	m := buildResourceManifest(l, nil, s, rep)
	dbs := 0
	for _, e := range m.Entries {
		if e.Kind == ResourceDatabase {
			dbs++
		}
	}
	if dbs != 1 {
		t.Fatalf("manifest has %d database entries, want 1", dbs)
	}
	db, ok := m.Database()
	if !ok || db.Source != secondary || db.Dest != "data" {
		t.Errorf("database entry = %+v", db)
	}
}

func TestResourceManifestNoDatabase(t *testing.T) {
	root, s := newProject(t)
	l := &Layout{
		DatabasePrimary:   filepath.Join(root, "data", "accounts.db"),
		DatabaseSecondary: filepath.Join(root, "src", "data", "accounts.db"),
	}
	rep, _ := newTestReporter()

	m := buildResourceManifest(l, nil, s, rep)
	if _, ok := m.Database(); ok {
		t.Error("no database expected")
	}
	if len(rep.Warnings(KindMissingResource)) != 1 {
		t.Errorf("warnings = %+v", rep.Notices())
	}
}

func TestResourceManifestStaticIndependence(t *testing.T) {
	root, s := newProject(t)
	writeFile(t, filepath.Join(root, "src", "utils", "public_key.pem"), "key")
	l := &Layout{
		DatabasePrimary:   filepath.Join(root, "data", "accounts.db"),
		DatabaseSecondary: filepath.Join(root, "src", "data", "accounts.db"),
	}
	rep, _ := newTestReporter()

	m := buildResourceManifest(l, s.Resources, s, rep)
	if len(m.Entries) != 1 {
		t.Fatalf("entries = %+v", m.Entries)
	}
	e := m.Entries[0]
	if e.Kind != ResourceStatic || e.Source != filepath.Join(root, "src", "utils", "public_key.pem") || e.Dest != "src/utils" {
		t.Errorf("entry = %+v", e)
	}
	// src/assets is missing and the database too.
	if n := len(rep.Warnings(KindMissingResource)); n != 2 {
		t.Errorf("missing-resource warnings = %d, want 2", n)
	}
}

func TestResourceManifestUsesResolvedDatabase(t *testing.T) {
	tests := []struct {
		name      string
		primary   bool
		secondary bool
		want      string
	}{
		{"both present", true, true, "data/accounts.db"},
		{"only secondary", false, true, "src/data/accounts.db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, s := newProject(t)
			if tt.primary {
				if err := createEmptyDatabase(filepath.Join(root, "data", "accounts.db")); err != nil {
					t.Fatal(err)
				}
			}
			if tt.secondary {
				if err := createEmptyDatabase(filepath.Join(root, "src", "data", "accounts.db")); err != nil {
					t.Fatal(err)
				}
			}
			rep, out := newTestReporter()
			l, err := ResolveLayout(s, rep, linuxProfile)
			if err != nil {
				t.Fatal(err)
			}

			m := buildResourceManifest(l, l.Assets, s, rep)
			db, ok := m.Database()
			if !ok || db.Source != filepath.Join(root, filepath.FromSlash(tt.want)) {
				t.Errorf("database entry = %+v, want %s", db, tt.want)
			}
			if n := strings.Count(out.String(), "Database: "); n != 1 {
				t.Errorf("database resolution logged %d times:\n%s", n, out.String())
			}
		})
	}
}

func TestResourceManifestFollowsFrozenLayout(t *testing.T) {
	root, s := newProject(t)
	primary := filepath.Join(root, "data", "accounts.db")
	secondary := filepath.Join(root, "src", "data", "accounts.db")
	for _, p := range []string{primary, secondary} {
		if err := createEmptyDatabase(p); err != nil {
			t.Fatal(err)
		}
	}
	l := &Layout{
		DatabasePrimary:   primary,
		DatabaseSecondary: secondary,
		Database:          Resolution{Path: secondary, Label: "secondary"},
	}
	rep, _ := newTestReporter()

	m := buildResourceManifest(l, nil, s, rep)
	if db, _ := m.Database(); db.Source != secondary {
		t.Errorf("manifest re-resolved the database: %+v", db)
	}
}

func TestResourceManifestKeyMaterialAtRoot(t *testing.T) {
	root, s := newProject(t)
	key := filepath.Join(root, "public_key.pem")
	writeFile(t, key, "pem")
	rep, _ := newTestReporter()
	l, err := ResolveLayout(s, rep, linuxProfile)
	if err != nil {
		t.Fatal(err)
	}
	if l.KeyMaterial != key {
		t.Fatalf("key material = %q", l.KeyMaterial)
	}

	m := buildResourceManifest(l, l.Assets, s, rep)
	found := false
	for _, e := range m.Entries {
		if e.Source == key {
			found = true
			if e.Dest != "src/utils" {
				t.Errorf("key dest = %q", e.Dest)
			}
		}
	}
	if !found {
		t.Errorf("key material not embedded: %+v", m.Entries)
	}
}

func TestResourceManifestKeyMaterialNotDuplicated(t *testing.T) {
	root, s := newProject(t)
	key := filepath.Join(root, "src", "utils", "public_key.pem")
	writeFile(t, key, "pem")
	rep, _ := newTestReporter()
	l, err := ResolveLayout(s, rep, linuxProfile)
	if err != nil {
		t.Fatal(err)
	}

	m := buildResourceManifest(l, l.Assets, s, rep)
	n := 0
	for _, e := range m.Entries {
		if e.Source == key {
			n++
		}
	}
	if n != 1 {
		t.Errorf("key embedded %d times: %+v", n, m.Entries)
	}
}
