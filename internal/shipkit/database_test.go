package shipkit

import (
	"path/filepath"
	"testing"
)

func TestCreateEmptyDatabase(t *testing.T) {
	p := filepath.Join(t.TempDir(), "data", "accounts.db")
	if err := createEmptyDatabase(p); err != nil {
		t.Fatal(err)
	}
	v, err := databaseVersion(p)
	if err != nil {
		t.Fatal(err)
	}
	if v != "1.0.0" {
		t.Errorf("version = %q", v)
	}
	// Running the schema again keeps the file valid.
	if err := createEmptyDatabase(p); err != nil {
		t.Fatal(err)
	}
}
