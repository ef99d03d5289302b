package shipkit

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestAuditBundle(t *testing.T) {
	src := t.TempDir()
	db := filepath.Join(src, "accounts.db")
	pem := filepath.Join(src, "public_key.pem")
	assets := filepath.Join(src, "assets")
	writeFile(t, db, "db")
	writeFile(t, pem, "key")
	writeFile(t, filepath.Join(assets, "icon.png"), "png")

	bundle := filepath.Join(t.TempDir(), "Demo.app")
	writeFile(t, filepath.Join(bundle, "Contents", "Resources", "data", "accounts.db"), "db")
	writeFile(t, filepath.Join(bundle, "Contents", "MacOS", "lib", "public_key.pem"), "key")

	m := &ResourceManifest{Entries: []ResourceEntry{
		{Kind: ResourceDatabase, Source: db, Dest: "data"},
		{Kind: ResourceStatic, Source: pem, Dest: "src/utils"},
		{Kind: ResourceStatic, Source: assets, Dest: "src/assets"},
	}}
	rep, _ := newTestReporter()

	findings, listing, err := auditBundle(bundle, m, darwinProfile, rep)
	if err != nil {
		t.Fatal(err)
	}
	if len(findings) != 3 {
		t.Fatalf("findings = %+v", findings)
	}
	if f := findings[0]; !f.Found || f.Searched || f.Location != filepath.Join("Contents", "Resources", "data", "accounts.db") {
		t.Errorf("database finding = %+v", f)
	}
	if f := findings[1]; !f.Found || !f.Searched {
		t.Errorf("key finding should come from the recursive search: %+v", f)
	}
	if f := findings[2]; f.Found {
		t.Errorf("assets should be missing: %+v", f)
	}
	if listing != "" {
		t.Error("no listing expected while the database is found")
	}
	if n := len(rep.Warnings(KindAudit)); n != 1 {
		t.Errorf("audit warnings = %d, want 1", n)
	}
}

func TestAuditBundleListsWhenDatabaseMissing(t *testing.T) {
	db := filepath.Join(t.TempDir(), "accounts.db")
	writeFile(t, db, "db")
	bundle := filepath.Join(t.TempDir(), "Demo")
	writeFile(t, filepath.Join(bundle, "_internal", "base_library.zip"), "zip")
	writeFile(t, filepath.Join(bundle, "Demo"), "exe")

	m := &ResourceManifest{Entries: []ResourceEntry{{Kind: ResourceDatabase, Source: db, Dest: "data"}}}
	rep, out := newTestReporter()

	findings, listing, err := auditBundle(bundle, m, linuxProfile, rep)
	if err != nil {
		t.Fatalf("missing resources must not fail the audit: %v", err)
	}
	if findings[0].Found {
		t.Fatal("database should be missing")
	}
	if !strings.Contains(listing, "base_library.zip") {
		t.Errorf("listing lacks bundle content:\n%s", listing)
	}
	if !strings.Contains(out.String(), "base_library.zip") {
		t.Error("listing not printed")
	}
}

func TestAuditBundleMissingBundle(t *testing.T) {
	rep, _ := newTestReporter()
	_, _, err := auditBundle(filepath.Join(t.TempDir(), "nope"), &ResourceManifest{}, linuxProfile, rep)
	var se *StageError
	if !errors.As(err, &se) || se.Stage != "audit" {
		t.Fatalf("err = %v", err)
	}
}

func TestTreeListing(t *testing.T) {
	root := filepath.Join(t.TempDir(), "bundle")
	writeFile(t, filepath.Join(root, "b.txt"), "")
	writeFile(t, filepath.Join(root, "a", "c.txt"), "")

	got, err := treeListing(root)
	if err != nil {
		t.Fatal(err)
	}
	want := "bundle/\n  a/\n    c.txt\n  b.txt\n"
	if got != want {
		t.Errorf("listing = %q, want %q", got, want)
	}
}
