package shipkit

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the raw KEY=VALUE pairs of shipkit.conf merged with the
// environment.
type Config struct {
	Values map[string]string
}

// Load <root>/shipkit.conf and apply env overrides
func loadConfig(path string) (*Config, error) {
	cfg := &Config{Values: make(map[string]string)}

	// A missing file is fine: every key has a default.
	file, err := os.Open(path)
	if err == nil {
		defer file.Close()
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			val := strings.TrimSpace(parts[1])
			val = strings.Trim(val, `"'`)
			cfg.Values[key] = val
		}
		if err := scanner.Err(); err != nil {
			return cfg, err
		}
	}

	mergeEnvOverrides(cfg)
	return cfg, nil
}

// Merge SHIPKIT_* and R2_* env overrides
func mergeEnvOverrides(cfg *Config) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "SHIPKIT_") || strings.HasPrefix(env, "R2_") {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) == 2 {
				cfg.Values[parts[0]] = parts[1]
			}
		}
	}
}

// ResourceSpec is a static resource to embed: Source is relative to the
// project root, Dest is the virtual path inside the bundle.
type ResourceSpec struct {
	Source string
	Dest   string
}

// UploadSettings configures publishing to an S3-compatible bucket.
type UploadSettings struct {
	AccountID string
	AccessKey string
	SecretKey string
	Bucket    string
	Endpoint  string
	Prefix    string
}

// Settings is the typed view of a Config for one project root.
type Settings struct {
	Root          string
	Product       string
	BundleID      string
	SourceDir     string
	StageDir      string
	DistDir       string
	WorkDir       string
	Entry         string
	LegacyPrefix  string
	CompileDirs   []string
	Exclude       []string
	HiddenImports []string
	Resources     []ResourceSpec
	LoggerModule  string
	Python        string
	PyInstaller   string
	CC            string
	SignKey       string
	LicenseState  []string
	Upload        UploadSettings
	Debug         bool
}

// DefaultSettings returns the settings used when shipkit.conf is empty.
func DefaultSettings(root string) *Settings {
	return newSettings(root, &Config{Values: map[string]string{}})
}

func newSettings(root string, cfg *Config) *Settings {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	get := func(key, def string) string {
		if v := strings.TrimSpace(cfg.Values[key]); v != "" {
			return v
		}
		return def
	}

	product := get("SHIPKIT_PRODUCT", filepath.Base(root))
	s := &Settings{
		Root:          root,
		Product:       product,
		BundleID:      get("SHIPKIT_BUNDLE_ID", "com.example."+strings.ToLower(strings.ReplaceAll(product, " ", ""))),
		SourceDir:     get("SHIPKIT_SOURCE_DIR", "src"),
		StageDir:      get("SHIPKIT_STAGE_DIR", "obfuscated_src"),
		DistDir:       get("SHIPKIT_DIST_DIR", "dist"),
		WorkDir:       get("SHIPKIT_WORK_DIR", filepath.Join("build", "shipkit")),
		Entry:         get("SHIPKIT_ENTRY", "main.py"),
		LegacyPrefix:  get("SHIPKIT_LEGACY_PREFIX", "src"),
		CompileDirs:   splitList(get("SHIPKIT_COMPILE_DIRS", "core,utils,ui")),
		Exclude:       splitList(get("SHIPKIT_EXCLUDE", "turnstilePatch")),
		HiddenImports: splitList(cfg.Values["SHIPKIT_HIDDEN_IMPORTS"]),
		Resources:     parseResourceSpecs(get("SHIPKIT_RESOURCES", "src/assets:src/assets,src/utils/public_key.pem:src/utils")),
		LoggerModule:  get("SHIPKIT_LOGGER_MODULE", "utils.logger"),
		Python:        get("SHIPKIT_PYTHON", "python3"),
		PyInstaller:   get("SHIPKIT_PYINSTALLER", "pyinstaller"),
		CC:            get("SHIPKIT_CC", "cc"),
		SignKey:       cfg.Values["SHIPKIT_SIGN_KEY"],
		LicenseState:  splitList(cfg.Values["SHIPKIT_LICENSE_STATE"]),
		Upload: UploadSettings{
			AccountID: cfg.Values["R2_ACCOUNT_ID"],
			AccessKey: cfg.Values["R2_ACCESS_KEY_ID"],
			SecretKey: cfg.Values["R2_SECRET_ACCESS_KEY"],
			Bucket:    cfg.Values["R2_BUCKET_NAME"],
			Endpoint:  cfg.Values["R2_ENDPOINT"],
			Prefix:    strings.Trim(cfg.Values["R2_PREFIX"], "/"),
		},
		Debug: cfg.Values["SHIPKIT_DEBUG"] == "1",
	}
	if len(s.LicenseState) == 0 {
		s.LicenseState = defaultLicenseStatePaths(root, product)
	}
	return s
}

// abs resolves p against the project root.
func (s *Settings) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.Root, p)
}

// splitList splits a comma or whitespace separated list.
func splitList(v string) []string {
	fields := strings.FieldsFunc(v, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	var out []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// parseResourceSpecs parses "src:dest,src:dest". An entry without a dest
// embeds under its own parent directory.
func parseResourceSpecs(v string) []ResourceSpec {
	var out []ResourceSpec
	for _, item := range splitList(v) {
		src, dest, ok := strings.Cut(item, ":")
		if !ok || dest == "" {
			dest = filepath.ToSlash(filepath.Dir(src))
		}
		out = append(out, ResourceSpec{Source: src, Dest: dest})
	}
	return out
}
