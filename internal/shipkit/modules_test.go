package shipkit

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestModuleName(t *testing.T) {
	tests := []struct {
		rel  string
		want string
	}{
		{"core/engine.py", "core.engine"},
		{"core/engine.cpython-312-darwin.so", "core.engine"},
		{"core/drission_modules/token_handler.cpython-311-x86_64-linux-gnu.so", "core.drission_modules.token_handler"},
		{"ui/widget.pyd", "ui.widget"},
		{"utils/__init__.py", "utils"},
		{"main.py", "main"},
		{"./core/a.py", "core.a"},
		{"__init__.py", ""},
	}
	for _, tt := range tests {
		if got := ModuleName(tt.rel); got != tt.want {
			t.Errorf("ModuleName(%q) = %q, want %q", tt.rel, got, tt.want)
		}
	}
}

func TestModuleNames(t *testing.T) {
	tests := []struct {
		rel, legacy string
		want        []string
	}{
		{"core/engine.so", "src", []string{"core.engine", "src.core.engine"}},
		{"core/engine.so", "", []string{"core.engine"}},
		{"__init__.py", "src", nil},
	}
	for _, tt := range tests {
		if got := ModuleNames(tt.rel, tt.legacy); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ModuleNames(%q, %q) = %v, want %v", tt.rel, tt.legacy, got, tt.want)
		}
	}
}

func TestIsExcluded(t *testing.T) {
	exclude := []string{"turnstilePatch"}
	if !isExcluded("core/turnstilePatch/script.py", exclude) {
		t.Error("expected turnstilePatch module to be excluded")
	}
	if isExcluded("core/turnstile.py", exclude) {
		t.Error("turnstile.py should not be excluded")
	}
	if isExcluded("core/a.py", []string{""}) {
		t.Error("empty token must not exclude everything")
	}
}

func TestDiscoverModules(t *testing.T) {
	root := t.TempDir()
	for _, f := range []string{
		"main.py",
		"helpers.py",
		"core/__init__.py",
		"core/engine.py",
		"core/turnstilePatch/patch.py",
		"core/__pycache__/engine.cpython-312.pyc",
		"utils/logger.py",
		"utils/notes.txt",
		"other/skipped.py",
	} {
		writeFile(t, filepath.Join(root, f), "x = 1\n")
	}

	mods, err := discoverModules(root, []string{"core", "utils", "ui"}, []string{"turnstilePatch"}, "main.py")
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, m := range mods {
		got = append(got, m.RelPath)
	}
	want := []string{"core/engine.py", "core/turnstilePatch/patch.py", "utils/logger.py"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("discovered %v, want %v", got, want)
	}
	if !mods[1].Excluded || mods[0].Excluded || mods[2].Excluded {
		t.Errorf("unexpected exclusion flags: %+v", mods)
	}
	if mods[2].Name != "utils.logger" {
		t.Errorf("name = %q", mods[2].Name)
	}
	if n := len(compilable(mods)); n != 2 {
		t.Errorf("compilable = %d, want 2", n)
	}
}
