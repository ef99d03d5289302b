package shipkit

import "sort"

// baseHiddenImports are needed by every build: networking, crypto, browser
// automation and runtime facilities loaded dynamically by the application.
var baseHiddenImports = []string{
	"requests",
	"urllib3",
	"certifi",
	"charset_normalizer",
	"idna",
	"cryptography",
	"cryptography.hazmat.primitives.asymmetric.padding",
	"cryptography.hazmat.primitives.serialization",
	"DrissionPage",
	"websocket",
	"sqlite3",
	"json",
	"uuid",
	"hashlib",
	"importlib",
	"pkgutil",
	"logging.handlers",
}

// guiHiddenImports are dropped in minimal mode.
var guiHiddenImports = []string{
	"PyQt6",
	"PyQt6.QtCore",
	"PyQt6.QtGui",
	"PyQt6.QtWidgets",
	"PyQt6.QtNetwork",
	"PyQt6.QtWebSockets",
	"PyQt6.sip",
}

// staticHiddenImports is the declared allow-list for one build.
func staticHiddenImports(minimal bool, extra []string) []string {
	out := append([]string{}, baseHiddenImports...)
	if !minimal {
		out = append(out, guiHiddenImports...)
	}
	return append(out, extra...)
}

// HiddenImportSet is a set of module names the bundler has to embed.
type HiddenImportSet map[string]struct{}

// Add inserts names, ignoring empty ones.
func (s HiddenImportSet) Add(names ...string) {
	for _, n := range names {
		if n != "" {
			s[n] = struct{}{}
		}
	}
}

// Contains reports whether name is in the set.
func (s HiddenImportSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the members in lexical order.
func (s HiddenImportSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// BuildHiddenImports unions static with the flat and legacy-prefixed name of
// every artifact. The result always contains all of static.
func BuildHiddenImports(static []string, artifacts []CompiledArtifact, legacy string) HiddenImportSet {
	set := make(HiddenImportSet, len(static)+2*len(artifacts))
	set.Add(static...)
	for _, a := range artifacts {
		set.Add(ModuleNames(a.RelPath, legacy)...)
	}
	return set
}
