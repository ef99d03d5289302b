package shipkit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

var runtimeHookTemplate = template.Must(template.New("rthook").Parse(`# Generated by shipkit. Makes {{.Module}} and {{.Alias}} the same module.
import importlib
import sys
import types

_names = ({{printf "%q" .Module}}, {{printf "%q" .Alias}})
_mod = None
for _name in _names:
    try:
        _mod = importlib.import_module(_name)
        break
    except ImportError:
        continue

if _mod is not None:
    for _pkg_name in ({{range .Parents}}{{printf "%q" .}}, {{end}}):
        if _pkg_name not in sys.modules:
            _pkg = types.ModuleType(_pkg_name)
            _pkg.__path__ = []
            sys.modules[_pkg_name] = _pkg
    for _name in _names:
        sys.modules.setdefault(_name, _mod)
        _parent, _, _leaf = _name.rpartition(".")
        if _parent in sys.modules and not hasattr(sys.modules[_parent], _leaf):
            setattr(sys.modules[_parent], _leaf, _mod)
`))

// writeRuntimeHook writes the hook that aliases module under the legacy
// namespace before the entry point runs, and returns its path.
func writeRuntimeHook(dir, module, legacy string) (string, error) {
	if module == "" || legacy == "" {
		return "", fmt.Errorf("runtime hook needs a module and a legacy namespace")
	}
	alias := legacy + "." + module
	var parents []string
	for _, name := range []string{module, alias} {
		parts := strings.Split(name, ".")
		for i := 1; i < len(parts); i++ {
			parents = append(parents, strings.Join(parts[:i], "."))
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	p := filepath.Join(dir, "rthook_logger_alias.py")
	f, err := os.Create(p)
	if err != nil {
		return "", err
	}
	defer f.Close()

	err = runtimeHookTemplate.Execute(f, struct {
		Module, Alias string
		Parents       []string
	}{module, alias, parents})
	if err != nil {
		return "", fmt.Errorf("failed to render runtime hook: %w", err)
	}
	return p, nil
}
