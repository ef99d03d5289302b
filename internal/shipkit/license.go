package shipkit

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrLicenseExpired   = errors.New("license expired")
	ErrLicenseMalformed = errors.New("malformed license key")
	ErrLicenseSignature = errors.New("license signature does not verify")
)

// License is the signed payload of a license key.
type License struct {
	ID      string    `json:"id"`
	Email   string    `json:"email"`
	Expires time.Time `json:"expires"`
}

// loadLicensePublicKey reads a PEM "PUBLIC KEY" block holding an Ed25519 or
// RSA key.
func loadLicensePublicKey(path string) (crypto.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("%s holds no PEM public key", path)
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key %s: %w", path, err)
	}
	switch pub.(type) {
	case ed25519.PublicKey, *rsa.PublicKey:
		return pub, nil
	default:
		return nil, fmt.Errorf("unsupported public key type %T in %s", pub, path)
	}
}

// verifyLicenseKey checks a key of the form base64url(payload).base64url(sig)
// against pub. An expired but genuine key returns the license together with
// ErrLicenseExpired.
func verifyLicenseKey(key string, pub crypto.PublicKey, now time.Time) (*License, error) {
	payloadPart, sigPart, ok := strings.Cut(strings.TrimSpace(key), ".")
	if !ok || payloadPart == "" || sigPart == "" {
		return nil, ErrLicenseMalformed
	}
	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLicenseMalformed, err)
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLicenseMalformed, err)
	}

	switch k := pub.(type) {
	case ed25519.PublicKey:
		if !ed25519.Verify(k, payload, sig) {
			return nil, ErrLicenseSignature
		}
	case *rsa.PublicKey:
		digest := sha256.Sum256(payload)
		if err := rsa.VerifyPKCS1v15(k, crypto.SHA256, digest[:], sig); err != nil {
			return nil, ErrLicenseSignature
		}
	default:
		return nil, fmt.Errorf("unsupported public key type %T", pub)
	}

	var lic License
	if err := json.Unmarshal(payload, &lic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLicenseMalformed, err)
	}
	if !lic.Expires.IsZero() && now.After(lic.Expires) {
		return &lic, ErrLicenseExpired
	}
	return &lic, nil
}

// defaultLicenseStatePaths lists where the application persists a license
// activation.
func defaultLicenseStatePaths(root, product string) []string {
	var paths []string
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, product, "license.json"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, "."+strings.ToLower(strings.ReplaceAll(product, " ", "")), "license.json"))
	}
	return append(paths,
		filepath.Join(root, "data", "license.json"),
		filepath.Join(root, "src", "data", "license.json"),
	)
}

// cleanupLicenseState deletes every persisted license file and returns the
// ones that existed. Missing files are not an error.
func cleanupLicenseState(paths []string) ([]string, error) {
	var removed []string
	var errs []error
	for _, p := range paths {
		if !pathExists(p) {
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", p, err))
			continue
		}
		removed = append(removed, p)
	}
	return removed, errors.Join(errs...)
}
