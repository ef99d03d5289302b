package shipkit

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// BuildResult is the outcome of a run.
type BuildResult struct {
	Layout        *Layout
	Modules       []ModuleRecord
	Artifacts     []CompiledArtifact
	HiddenImports HiddenImportSet
	Manifest      *ResourceManifest
	BundlePath    string
	BundleDigest  string // BLAKE3 over the pruned bundle tree
	Findings      []AuditFinding
	Listing       string
	Pruned        pruneReport
	ArchivePath   string
	ChecksumPath  string
	SignaturePath string
	Published     []string
	BuildLogPath  string
	Notices       []Notice
}

// Pipeline runs the stages of one build in order and stops at the first
// fatal error.
type Pipeline struct {
	Settings *Settings
	Exec     *Executor
	Reporter *Reporter
	GOOS     string
	GOARCH   string
	LookPath func(string) (string, error)
	Upload   bool
}

// NewPipeline returns a pipeline for the host platform.
func NewPipeline(ctx context.Context, s *Settings, rep *Reporter) *Pipeline {
	e := NewExecutor(ctx)
	e.Stdout = rep.Out
	return &Pipeline{
		Settings: s,
		Exec:     e,
		Reporter: rep,
		GOOS:     runtime.GOOS,
		GOARCH:   runtime.GOARCH,
		LookPath: exec.LookPath,
	}
}

const stageCount = 10

// Run executes every stage. The returned result is non-nil whenever layout
// resolution got far enough to know where things go.
func (p *Pipeline) Run() (*BuildResult, error) {
	s := p.Settings
	rep := p.Reporter
	ctx := p.Exec.Context
	if ctx == nil {
		ctx = context.Background()
	}

	profile, err := checkPreconditions(p.GOOS, s, p.LookPath)
	if err != nil {
		return nil, err
	}

	rep.Stage(1, stageCount, "Resolving project layout")
	layout, err := ResolveLayout(s, rep, profile)
	if err != nil {
		return nil, err
	}
	res := &BuildResult{Layout: layout}
	defer func() { res.Notices = rep.Notices() }()

	if log, err := newBuildLog(layout.WorkDir); err != nil {
		rep.Warn(KindOptionalStep, "no build log: %v", err)
	} else {
		p.Exec.Log = log
		defer func() {
			p.Exec.Log = nil
			dest := filepath.Join(layout.DistDir, fmt.Sprintf("%s-%s-build.log.xz", s.Product, profile.Label))
			if err := log.Finish(dest); err != nil {
				rep.Warn(KindOptionalStep, "failed to write build log: %v", err)
				return
			}
			res.BuildLogPath = dest
		}()
	}

	rep.Stage(2, stageCount, "Staging source tree")
	n, err := stageSource(layout.SourceDir, layout.StageDir, s.LicenseState, rep)
	if err != nil {
		return res, stageErr("stage", err)
	}
	rep.Step("Staged %d files into %s", n, layout.StageDir)

	rep.Stage(3, stageCount, "Normalizing imports")
	changed, err := normalizeTree(layout.StageDir, s.LegacyPrefix)
	if err != nil {
		return res, stageErr("normalize", err)
	}
	rep.Step("Rewrote %s. imports in %d files", s.LegacyPrefix, changed)

	rep.Stage(4, stageCount, "Compiling modules")
	driver := &compilerDriver{
		Exec:        p.Exec,
		Rep:         rep,
		Python:      s.Python,
		Helper:      layout.CompilerHelper.Path,
		GOOS:        p.GOOS,
		GOARCH:      p.GOARCH,
		CompileDirs: s.CompileDirs,
		Exclude:     s.Exclude,
		Entry:       layout.Entry,
	}
	compiled, err := driver.Compile(layout.StageDir)
	if err != nil {
		rep.Fail("%v", err)
		return res, err
	}
	res.Modules = compiled.Modules
	res.Artifacts = compiled.Artifacts

	rep.Stage(5, stageCount, "Stripping sources")
	deleted, err := stripSources(layout.StageDir, layout.Entry, s.Exclude, compiled.Artifacts, rep)
	if err != nil {
		return res, stageErr("strip", err)
	}
	rep.Step("Deleted %d source files", deleted)

	rep.Stage(6, stageCount, "Building import closure")
	static := staticHiddenImports(layout.MinimalMode, s.HiddenImports)
	res.HiddenImports = BuildHiddenImports(static, compiled.Artifacts, s.LegacyPrefix)
	rep.Step("%d hidden imports (%d declared, %d compiled modules)", len(res.HiddenImports), len(static), len(compiled.Artifacts))
	rep.Debugf("hidden imports: %s\n", strings.Join(res.HiddenImports.Sorted(), " "))

	rep.Stage(7, stageCount, "Collecting resources")
	res.Manifest = buildResourceManifest(layout, layout.Assets, s, rep)

	rep.Stage(8, stageCount, "Bundling")
	hook, err := writeRuntimeHook(layout.WorkDir, s.LoggerModule, s.LegacyPrefix)
	if err != nil {
		rep.Warn(KindOptionalStep, "no runtime hook: %v", err)
	}
	req := bundleRequest{
		Product:       s.Product,
		BundleID:      s.BundleID,
		DistDir:       layout.DistDir,
		WorkDir:       layout.WorkDir,
		StageDir:      layout.StageDir,
		SourceDir:     layout.SourceDir,
		Entry:         layout.StagedEntry(),
		Icon:          layout.Icon,
		RuntimeHook:   hook,
		Resources:     res.Manifest,
		HiddenImports: res.HiddenImports,
		GOOS:          p.GOOS,
	}
	if err := runBundler(p.Exec, rep, s.PyInstaller, layout.Root, req); err != nil {
		rep.Fail("build failed: %v", err)
		return res, err
	}

	rep.Stage(9, stageCount, "Auditing bundle")
	res.BundlePath = profile.bundleDir(layout.DistDir, s.Product)
	res.Findings, res.Listing, err = auditBundle(res.BundlePath, res.Manifest, profile, rep)
	if err != nil {
		rep.Fail("%v", err)
		return res, err
	}

	rep.Stage(10, stageCount, "Pruning and archiving")
	res.Pruned = prunePlugins(res.BundlePath, profile, rep)
	if profile.ClearXattrs {
		if n, err := clearQuarantine(res.BundlePath); err != nil {
			rep.Warn(KindOptionalStep, "failed to clear quarantine attributes: %v", err)
		} else if n > 0 {
			rep.Step("Cleared %d quarantine attributes", n)
		}
	}
	if digest, err := treeDigest(res.BundlePath); err != nil {
		rep.Warn(KindOptionalStep, "failed to hash bundle: %v", err)
	} else {
		res.BundleDigest = digest
		rep.Step("Bundle digest: %s", digest)
	}
	archive := profile.archivePath(layout.DistDir, s.Product)
	if err := archiveBundle(p.Exec, rep, profile, p.LookPath, res.BundlePath, archive); err != nil {
		rep.Warn(KindOptionalStep, "failed to create archive: %v", err)
		return res, nil
	}
	res.ArchivePath = archive
	rep.Step("Archive: %s", archive)

	p.release(ctx, res)
	return res, nil
}

// release checksums, signs and publishes the archive. Every step is optional.
func (p *Pipeline) release(ctx context.Context, res *BuildResult) {
	s := p.Settings
	rep := p.Reporter

	sum, err := writeChecksumFile(res.ArchivePath)
	if err != nil {
		rep.Warn(KindOptionalStep, "checksum: %v", err)
	} else {
		res.ChecksumPath = sum
		rep.Step("Checksum: %s", sum)
	}

	if s.SignKey != "" {
		key, err := loadSigningKey(s.abs(s.SignKey))
		if err != nil {
			rep.Warn(KindOptionalStep, "signing skipped: %v", err)
		} else if sig, err := signFile(res.ArchivePath, key); err != nil {
			rep.Warn(KindOptionalStep, "signing failed: %v", err)
		} else {
			res.SignaturePath = sig
			rep.Step("Signature: %s", sig)
		}
	}

	if !p.Upload {
		return
	}
	client, err := NewR2Client(ctx, s.Upload)
	if err != nil {
		rep.Warn(KindOptionalStep, "upload skipped: %v", err)
		return
	}
	keys, err := client.Publish(ctx, []string{res.ArchivePath, res.ChecksumPath, res.SignaturePath}, rep)
	res.Published = keys
	if err != nil {
		rep.Warn(KindOptionalStep, "upload failed: %v", err)
	}
}
