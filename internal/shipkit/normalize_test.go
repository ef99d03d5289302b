package shipkit

import (
	"path/filepath"
	"testing"
)

func TestImportNormalizerRewrite(t *testing.T) {
	n := newImportNormalizer("src", []string{"core", "ui", "utils"})
	tests := []struct {
		name, in, want string
	}{
		{"from qualified", "from src.core.engine import Engine\n", "from core.engine import Engine\n"},
		{"import qualified", "import src.utils.logger as log\n", "import utils.logger as log\n"},
		{"repeated prefix", "from src.src.ui import w\n", "from ui import w\n"},
		{"from namespace", "from src import core, utils\n", "import core, utils\n"},
		{"indented from namespace", "    from src import ui\n", "    import ui\n"},
		{"adjacent references", "x = (src.core.a,src.ui.b)\n", "x = (core.a,ui.b)\n"},
		{"string literal", "importlib.import_module('src.core.engine')\n", "importlib.import_module('core.engine')\n"},
		{"identifier suffix", "mysrc.core.engine\n", "mysrc.core.engine\n"},
		{"attribute access", "self.src.core\n", "self.src.core\n"},
		{"unknown name", "src.exists()\n", "src.exists()\n"},
		{"longer name", "src.corex.thing\n", "src.corex.thing\n"},
		{"parenthesised from", "from src import (\n    core,\n)\n", "from src import (\n    core,\n)\n"},
		{"alias named like namespace", "from src import a as src\nsrc.core.y\n", "import a as src\nsrc.core.y\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Rewrite(tt.in); got != tt.want {
				t.Errorf("Rewrite(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestImportNormalizerIdempotent(t *testing.T) {
	n := newImportNormalizer("src", []string{"core", "ui", "utils"})
	inputs := []string{
		"from src.core import a\nfrom src import ui\nimport src.src.utils\n",
		"x = src.core.a + src.ui.b\n# src.utils in a comment\n",
		"plain = 1\n",
		"from src import (core)\n",
		"from src import a as src\nsrc.core.y\n",
	}
	for _, in := range inputs {
		once := n.Rewrite(in)
		if twice := n.Rewrite(once); twice != once {
			t.Errorf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeTree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.py"), "from src.ui.window import Main\n")
	writeFile(t, filepath.Join(root, "core", "engine.py"), "from src.utils.logger import log\n")
	writeFile(t, filepath.Join(root, "utils", "logger.py"), "log = print\n")
	writeFile(t, filepath.Join(root, "ui", "window.py"), "Main = object\n")
	writeFile(t, filepath.Join(root, "assets", "readme.txt"), "src.core stays\n")

	changed, err := normalizeTree(root, "src")
	if err != nil {
		t.Fatal(err)
	}
	if changed != 2 {
		t.Errorf("changed = %d, want 2", changed)
	}
	if got := readFile(t, filepath.Join(root, "core", "engine.py")); got != "from utils.logger import log\n" {
		t.Errorf("engine.py = %q", got)
	}
	if got := readFile(t, filepath.Join(root, "assets", "readme.txt")); got != "src.core stays\n" {
		t.Errorf("non-python file rewritten: %q", got)
	}

	again, err := normalizeTree(root, "src")
	if err != nil {
		t.Fatal(err)
	}
	if again != 0 {
		t.Errorf("second pass changed %d files", again)
	}
}

func TestTopLevelNames(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "core", "a.py"), "")
	writeFile(t, filepath.Join(root, "config.py"), "")
	writeFile(t, filepath.Join(root, "__init__.py"), "")
	writeFile(t, filepath.Join(root, ".hidden", "x.py"), "")
	writeFile(t, filepath.Join(root, "__pycache__", "x.pyc"), "")

	names, err := topLevelNames(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "config" || names[1] != "core" {
		t.Errorf("names = %v", names)
	}
}
