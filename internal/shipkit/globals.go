package shipkit

import (
	_ "embed"
	"runtime"

	"github.com/gookit/color"
)

// Global variables
var (
	Debug          bool
	Verbose        bool
	ConfigFileName = "shipkit.conf"
	version        = "dev"     // default version; overridden at build time
	buildDate      = "unknown" // overridden at build time
	arch           = runtime.GOARCH
)

// defaultCompilerHelper is written to the work dir when the project carries
// no compile_modules.py of its own.
//
//go:embed assets/compile_modules.py
var defaultCompilerHelper []byte

// color helpers
var (
	colInfo    = color.Info // style provided by gookit/color
	colWarn    = color.Warn
	colError   = color.Error
	colSuccess = color.HEX("#1976D2")
	colArrow   = color.HEX("#FFEB3B")
	colNote    = color.Tag("notice")
)
