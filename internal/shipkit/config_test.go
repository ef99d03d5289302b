package shipkit

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadSettingsDefaults(t *testing.T) {
	root := t.TempDir()
	s, err := loadSettings(root)
	if err != nil {
		t.Fatal(err)
	}
	if s.Product != filepath.Base(root) {
		t.Errorf("product = %q", s.Product)
	}
	if s.SourceDir != "src" || s.StageDir != "obfuscated_src" || s.Entry != "main.py" {
		t.Errorf("dirs = %s %s %s", s.SourceDir, s.StageDir, s.Entry)
	}
	if !reflect.DeepEqual(s.CompileDirs, []string{"core", "utils", "ui"}) {
		t.Errorf("compile dirs = %v", s.CompileDirs)
	}
	if !reflect.DeepEqual(s.Exclude, []string{"turnstilePatch"}) {
		t.Errorf("exclude = %v", s.Exclude)
	}
	if len(s.LicenseState) == 0 {
		t.Error("no default license state paths")
	}
}

func TestLoadSettingsFileAndEnv(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ConfigFileName), `# project settings
SHIPKIT_PRODUCT="Account Manager"
SHIPKIT_COMPILE_DIRS=core, services
SHIPKIT_HIDDEN_IMPORTS=keyring
SHIPKIT_RESOURCES=assets:assets,README.md
R2_BUCKET_NAME=releases
not a pair
`)
	t.Setenv("SHIPKIT_ENTRY", "app.py")
	t.Setenv("R2_PREFIX", "/nightly/")

	s, err := loadSettings(root)
	if err != nil {
		t.Fatal(err)
	}
	if s.Product != "Account Manager" {
		t.Errorf("product = %q", s.Product)
	}
	if s.BundleID != "com.example.accountmanager" {
		t.Errorf("bundle id = %q", s.BundleID)
	}
	if s.Entry != "app.py" {
		t.Errorf("env override ignored: entry = %q", s.Entry)
	}
	if !reflect.DeepEqual(s.CompileDirs, []string{"core", "services"}) {
		t.Errorf("compile dirs = %v", s.CompileDirs)
	}
	if !reflect.DeepEqual(s.HiddenImports, []string{"keyring"}) {
		t.Errorf("hidden imports = %v", s.HiddenImports)
	}
	want := []ResourceSpec{{Source: "assets", Dest: "assets"}, {Source: "README.md", Dest: "."}}
	if !reflect.DeepEqual(s.Resources, want) {
		t.Errorf("resources = %+v", s.Resources)
	}
	if s.Upload.Bucket != "releases" || s.Upload.Prefix != "nightly" {
		t.Errorf("upload = %+v", s.Upload)
	}
}

func TestSettingsAbs(t *testing.T) {
	s := DefaultSettings("/project")
	if got := s.abs("src"); got != filepath.Join("/project", "src") {
		t.Errorf("abs(src) = %s", got)
	}
	if got := s.abs("/elsewhere"); got != "/elsewhere" {
		t.Errorf("abs(/elsewhere) = %s", got)
	}
}
