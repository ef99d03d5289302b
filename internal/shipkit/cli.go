package shipkit

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
)

// printHelp prints the command overview.
func printHelp(out io.Writer) {
	type cmdInfo struct {
		Cmd  string
		Args string
		Desc string
	}
	cmds := []cmdInfo{
		{"build", "[-root DIR] [-activate-test KEY] [-cleanup] [-no-build] [-upload]", "Compile, bundle and archive the application (default)"},
		{"audit", "[-root DIR] [bundle]", "Check an existing bundle for its embedded resources"},
		{"verify", "[-pub KEY] <archive>", "Check an archive against its checksum and signature"},
		{"keygen", "[-id NAME] <dir>", "Create an Ed25519 key pair for signing archives"},
		{"version", "", "Show version information"},
	}

	fmt.Fprintln(out, "Usage: shipkit <command> [options]")
	fmt.Fprintln(out)
	maxLen := 0
	for _, c := range cmds {
		if l := len(c.Cmd) + len(c.Args) + 1; l > maxLen {
			maxLen = l
		}
	}
	for _, c := range cmds {
		usage := c.Cmd
		if c.Args != "" {
			usage += " " + c.Args
		}
		fmt.Fprint(out, "  ", color.Bold.Sprint(c.Cmd))
		if c.Args != "" {
			fmt.Fprint(out, " ", color.Cyan.Sprint(c.Args))
		}
		fmt.Fprint(out, strings.Repeat(" ", maxLen-len(usage)+4))
		fmt.Fprintln(out, colInfo.Sprint(c.Desc))
	}
	fmt.Fprintln(out)
}

// Main is the CLI entrypoint for cmd/shipkit.
func Main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First signal cancels the run and kills the running tool; a second one
	// exits at once.
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigs:
			colWarn.Println("\nInterrupted, stopping (press Ctrl+C again to force)")
			cancel()
		case <-ctx.Done():
			return
		}
		select {
		case <-sigs:
			os.Exit(130)
		case <-time.After(10 * time.Second):
			os.Exit(130)
		}
	}()

	code := Run(ctx, os.Args[1:], os.Stdout)
	cancel()
	os.Exit(code)
}

// Run executes one command line and returns the process exit code.
func Run(ctx context.Context, args []string, out io.Writer) int {
	cmd := "build"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "build", "b":
		return runBuild(ctx, args, out)
	case "audit":
		return runAudit(args, out)
	case "verify":
		return runVerify(args, out)
	case "keygen":
		return runKeygen(args, out)
	case "version", "--version":
		fmt.Fprintln(out, colNote.Sprintf("shipkit %s (%s) built %s", version, arch, buildDate))
		return 0
	case "help", "-h", "--help":
		printHelp(out)
		return 0
	default:
		fmt.Fprintln(out, colError.Sprintf("Unknown command: %s", cmd))
		printHelp(out)
		return 2
	}
}

// loadSettings reads <root>/shipkit.conf with env overrides.
func loadSettings(root string) (*Settings, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(filepath.Join(abs, ConfigFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ConfigFileName, err)
	}
	return newSettings(abs, cfg), nil
}

func runBuild(ctx context.Context, args []string, out io.Writer) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(out)
	root := fs.String("root", ".", "project root")
	activate := fs.String("activate-test", "", "verify a license key before building")
	cleanup := fs.Bool("cleanup", false, "delete persisted license state")
	noBuild := fs.Bool("no-build", false, "stop after -activate-test / -cleanup")
	upload := fs.Bool("upload", false, "publish the archive to the configured bucket")
	debug := fs.Bool("debug", false, "print debug output")
	verbose := fs.Bool("verbose", false, "print tool command lines")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	s, err := loadSettings(*root)
	if err != nil {
		fmt.Fprintln(out, colError.Sprintf("Error: %v", err))
		return 1
	}
	Debug = *debug || s.Debug
	Verbose = *verbose
	rep := NewReporter(out)

	if *cleanup {
		removed, err := cleanupLicenseState(s.LicenseState)
		for _, p := range removed {
			rep.Step("Removed license state %s", p)
		}
		if len(removed) == 0 {
			rep.Step("No license state to clean up")
		}
		if err != nil {
			rep.Warn(KindOptionalStep, "cleanup incomplete: %v", err)
		}
	}
	if *activate != "" {
		activationTest(s, *activate, rep, time.Now())
	}
	if *noBuild {
		return 0
	}

	p := NewPipeline(ctx, s, rep)
	p.Upload = *upload
	res, err := p.Run()
	if err != nil {
		return buildExitCode(out, err)
	}

	fmt.Fprintln(out)
	rep.Step("Bundle: %s", res.BundlePath)
	if res.ArchivePath != "" {
		rep.Step("Archive: %s", res.ArchivePath)
	}
	if w := len(rep.Warnings(KindMissingResource)) + len(rep.Warnings(KindAudit)); w > 0 {
		rep.Detail("%d resource warnings, see above", w)
	}
	return 0
}

// buildExitCode prints err and maps it to the process exit status.
func buildExitCode(out io.Writer, err error) int {
	fmt.Fprintln(out, colError.Sprintf("Error: %v", err))
	var se *StageError
	if errors.As(err, &se) && se.ExitCode > 0 {
		return se.ExitCode
	}
	return 1
}

// licenseKeyPath finds the public key used to check license keys.
func licenseKeyPath(s *Settings) (string, error) {
	res, err := resolveCandidates(keyMaterialCandidates(s.abs(s.SourceDir), s.Root), nil)
	return res.Path, err
}

// activationTest checks a license key and only reports; it never fails the
// build.
func activationTest(s *Settings, key string, rep *Reporter, now time.Time) {
	keyPath, err := licenseKeyPath(s)
	if err != nil {
		rep.Warn(KindMissingResource, "activation test skipped: no public_key.pem found")
		return
	}
	pub, err := loadLicensePublicKey(keyPath)
	if err != nil {
		rep.Warn(KindOptionalStep, "activation test skipped: %v", err)
		return
	}
	lic, err := verifyLicenseKey(key, pub, now)
	switch {
	case errors.Is(err, ErrLicenseExpired):
		rep.Warn(KindOptionalStep, "license %s for %s expired on %s", lic.ID, lic.Email, lic.Expires.Format("2006-01-02"))
	case err != nil:
		rep.Warn(KindOptionalStep, "activation test failed: %v", err)
	case lic.Expires.IsZero():
		rep.Step("License %s for %s is valid (no expiry)", lic.ID, lic.Email)
	default:
		rep.Step("License %s for %s is valid until %s", lic.ID, lic.Email, lic.Expires.Format("2006-01-02"))
	}
}

func runAudit(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	fs.SetOutput(out)
	root := fs.String("root", ".", "project root")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	s, err := loadSettings(*root)
	if err != nil {
		fmt.Fprintln(out, colError.Sprintf("Error: %v", err))
		return 1
	}
	profile, err := profileFor(runtime.GOOS)
	if err != nil {
		fmt.Fprintln(out, colError.Sprintf("Error: %v", err))
		return 1
	}

	bundle := profile.bundleDir(s.abs(s.DistDir), s.Product)
	if fs.NArg() > 0 {
		bundle, _ = filepath.Abs(fs.Arg(0))
	}

	rep := NewReporter(out)
	layout := InspectLayout(s)
	manifest := buildResourceManifest(layout, layout.Assets, s, rep)
	if _, _, err := auditBundle(bundle, manifest, profile, rep); err != nil {
		return buildExitCode(out, err)
	}
	listing, err := treeListing(bundle)
	if err != nil {
		fmt.Fprintln(out, colError.Sprintf("Error: %v", err))
		return 1
	}
	if err := showListing(out, filepath.Base(bundle), strings.Split(strings.TrimRight(listing, "\n"), "\n")); err != nil {
		fmt.Fprintln(out, colError.Sprintf("Error: %v", err))
		return 1
	}
	return 0
}

func runVerify(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(out)
	pubPath := fs.String("pub", os.Getenv("SHIPKIT_VERIFY_KEY"), "hex Ed25519 public key file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(out, colError.Sprint("Usage: shipkit verify [-pub KEY] <archive>"))
		return 2
	}
	archive := fs.Arg(0)
	rep := NewReporter(out)

	if err := verifyChecksumFile(archive); err != nil {
		rep.Fail("%v", err)
		return 1
	}
	rep.Step("Checksum OK: %s", filepath.Base(archive))

	if !pathExists(archive + ".sig") {
		rep.Warn(KindOptionalStep, "no signature for %s", filepath.Base(archive))
		return 0
	}
	if *pubPath == "" {
		rep.Warn(KindOptionalStep, "signature present but no -pub key given")
		return 0
	}
	pub, err := loadVerifyKey(*pubPath)
	if err != nil {
		rep.Fail("%v", err)
		return 1
	}
	if err := verifyFileSignature(archive, pub); err != nil {
		rep.Fail("%v", err)
		return 1
	}
	rep.Step("Signature OK")
	return 0
}

func runKeygen(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(out)
	id := fs.String("id", "shipkit", "key name")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	dir := "."
	if fs.NArg() > 0 {
		dir = fs.Arg(0)
	}
	priv, pub, err := GenerateKeyPair(dir, *id)
	if err != nil {
		fmt.Fprintln(out, colError.Sprintf("Error: %v", err))
		return 1
	}
	rep := NewReporter(out)
	rep.Step("Private key: %s (set SHIPKIT_SIGN_KEY to this path)", priv)
	rep.Step("Public key: %s", pub)
	return 0
}
