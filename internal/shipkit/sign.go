package shipkit

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// loadSigningKey reads an Ed25519 private key stored as 128 hex chars or 64
// raw bytes.
func loadSigningKey(keyPath string) (ed25519.PrivateKey, error) {
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("private key not found at %s", keyPath)
	}

	trimmedKey := strings.TrimSpace(string(keyData))
	if len(trimmedKey) == 128 {
		// Likely hex encoded
		decoded, err := hex.DecodeString(trimmedKey)
		if err == nil && len(decoded) == ed25519.PrivateKeySize {
			return ed25519.PrivateKey(decoded), nil
		}
	}
	if len(keyData) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(keyData), nil
	}
	return nil, fmt.Errorf("invalid private key format at %s (expected 64 bytes raw or 128 hex chars, got %d)", keyPath, len(trimmedKey))
}

// loadVerifyKey reads an Ed25519 public key stored as 64 hex chars or 32 raw
// bytes.
func loadVerifyKey(keyPath string) (ed25519.PublicKey, error) {
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("public key not found at %s", keyPath)
	}
	trimmedKey := strings.TrimSpace(string(keyData))
	if decoded, err := hex.DecodeString(trimmedKey); err == nil && len(decoded) == ed25519.PublicKeySize {
		return ed25519.PublicKey(decoded), nil
	}
	if len(keyData) == ed25519.PublicKeySize {
		return ed25519.PublicKey(keyData), nil
	}
	return nil, fmt.Errorf("invalid public key format at %s", keyPath)
}

// GenerateKeyPair writes a new hex encoded Ed25519 key pair <id>.key and
// <id>.pub into dir.
func GenerateKeyPair(dir, id string) (privPath, pubPath string, err error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate key pair: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create key directory: %w", err)
	}

	privPath = filepath.Join(dir, id+".key")
	pubPath = filepath.Join(dir, id+".pub")

	// Private key is only readable by the owner.
	if err := os.WriteFile(privPath, []byte(hex.EncodeToString(priv)), 0o600); err != nil {
		return "", "", fmt.Errorf("failed to save private key: %w", err)
	}
	if err := os.WriteFile(pubPath, []byte(hex.EncodeToString(pub)), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to save public key: %w", err)
	}
	return privPath, pubPath, nil
}

// signFile writes the hex Ed25519 signature of path to <path>.sig.
func signFile(path string, key ed25519.PrivateKey) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sig := ed25519.Sign(key, data)
	out := path + ".sig"
	if err := os.WriteFile(out, []byte(hex.EncodeToString(sig)+"\n"), 0o644); err != nil {
		return "", err
	}
	return out, nil
}

// verifyFileSignature checks path against <path>.sig.
func verifyFileSignature(path string, pub ed25519.PublicKey) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sigHex, err := os.ReadFile(path + ".sig")
	if err != nil {
		return err
	}
	signature, err := hex.DecodeString(strings.TrimSpace(string(sigHex)))
	if err != nil {
		return fmt.Errorf("invalid signature format: %w", err)
	}
	if !ed25519.Verify(pub, data, signature) {
		return errors.New("signature verification failed")
	}
	return nil
}
