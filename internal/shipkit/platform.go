package shipkit

import (
	"fmt"
	"path/filepath"
)

// platformProfile holds everything that differs between host platforms.
type platformProfile struct {
	GOOS          string
	Label         string // archive suffix: <product>-<Label>.zip
	IconName      string
	BundleSuffix  string // ".app" on darwin
	ExtSuffixes   []string
	EmbedRoots    []string // relative to the bundle dir, in search order
	PluginDirs    []string // relative to the bundle dir, in search order
	PluginKeep    map[string][]string
	ClearXattrs   bool
	NativeArchive bool // ditto is expected
}

var darwinProfile = platformProfile{
	GOOS:         "darwin",
	Label:        "mac",
	IconName:     "icon.icns",
	BundleSuffix: ".app",
	ExtSuffixes:  []string{".so"},
	EmbedRoots: []string{
		filepath.Join("Contents", "MacOS"),
		filepath.Join("Contents", "Resources"),
		filepath.Join("Contents", "Frameworks"),
	},
	PluginDirs: []string{
		filepath.Join("Contents", "MacOS", "PyQt6", "Qt6", "plugins"),
		filepath.Join("Contents", "MacOS", "Qt6", "plugins"),
		filepath.Join("Contents", "Resources", "PyQt6", "Qt6", "plugins"),
		filepath.Join("Contents", "Frameworks", "PyQt6", "Qt6", "plugins"),
	},
	PluginKeep: map[string][]string{
		"platforms":    {"qcocoa.dylib", "libqcocoa.dylib"},
		"imageformats": {"qpng.dylib", "libqpng.dylib", "qjpeg.dylib", "libqjpeg.dylib", "qsvg.dylib", "libqsvg.dylib"},
		"tls":          {"qsecuretransport.dylib", "libqsecuretransport.dylib", "qopensslbackend.dylib", "libqopensslbackend.dylib"},
		"iconengines":  {"qsvgicon.dylib", "libqsvgicon.dylib"},
	},
	ClearXattrs:   true,
	NativeArchive: true,
}

var linuxProfile = platformProfile{
	GOOS:        "linux",
	Label:       "linux",
	IconName:    "icon.png",
	ExtSuffixes: []string{".so"},
	EmbedRoots:  []string{"_internal", "."},
	PluginDirs: []string{
		filepath.Join("_internal", "PyQt6", "Qt6", "plugins"),
		filepath.Join("PyQt6", "Qt6", "plugins"),
	},
	PluginKeep: map[string][]string{
		"platforms":    {"libqxcb.so", "libqwayland-generic.so", "libqwayland-egl.so", "libqoffscreen.so"},
		"imageformats": {"libqpng.so", "libqjpeg.so", "libqsvg.so"},
		"tls":          {"libqopensslbackend.so", "libqcertonlybackend.so"},
		"iconengines":  {"libqsvgicon.so"},
	},
}

// profileFor returns the profile of a supported host.
func profileFor(goos string) (platformProfile, error) {
	switch goos {
	case "darwin":
		return darwinProfile, nil
	case "linux":
		return linuxProfile, nil
	default:
		return platformProfile{}, &PreconditionError{Reason: fmt.Sprintf("unsupported host platform %q (need darwin or linux)", goos)}
	}
}

// addDataSeparator is the source/dest separator pyinstaller expects in
// --add-data on goos.
func addDataSeparator(goos string) string {
	if goos == "windows" {
		return ";"
	}
	return ":"
}

// bundleDir is where pyinstaller puts the finished bundle.
func (p platformProfile) bundleDir(dist, product string) string {
	return filepath.Join(dist, product+p.BundleSuffix)
}

// archivePath is the distribution archive for the bundle.
func (p platformProfile) archivePath(dist, product string) string {
	return filepath.Join(dist, fmt.Sprintf("%s-%s.zip", product, p.Label))
}
