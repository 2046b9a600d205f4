package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/holtvcs/holt/pkg/repo"
	"golang.org/x/crypto/ssh"
)

const commitSignaturePrefix = "sshsig-v1"

// Default key basenames probed under ~/.ssh when no --sign-key is given,
// in preference order.
var defaultSigningKeys = []string{"id_ed25519", "id_ecdsa", "id_rsa"}

// newSSHCommitSigner builds a CommitSigner from an SSH private key. An
// empty keyPath probes the defaultSigningKeys under ~/.ssh. The signature
// string embeds the key format and public key so it can be verified
// without local key material:
//
//	sshsig-v1:<format>:<pubkey b64>:<sig b64>
func newSSHCommitSigner(keyPath string) (repo.CommitSigner, string, error) {
	keyFile, err := resolveSigningKeyPath(keyPath)
	if err != nil {
		return nil, "", err
	}

	raw, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, "", fmt.Errorf("signing key %s: %w", keyFile, err)
	}
	signer, err := ssh.ParsePrivateKey(raw)
	if err != nil {
		return nil, "", fmt.Errorf("signing key %s: %w", keyFile, err)
	}
	pubB64 := base64.StdEncoding.EncodeToString(signer.PublicKey().Marshal())

	sign := func(payload []byte) (string, error) {
		sig, err := signer.Sign(rand.Reader, payload)
		if err != nil {
			return "", err
		}
		return strings.Join([]string{
			commitSignaturePrefix,
			sig.Format,
			pubB64,
			base64.StdEncoding.EncodeToString(sig.Blob),
		}, ":"), nil
	}
	return sign, keyFile, nil
}

func resolveSigningKeyPath(path string) (string, error) {
	if path = strings.TrimSpace(path); path != "" {
		return expandUserPath(path)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	for _, name := range defaultSigningKeys {
		candidate := filepath.Join(home, ".ssh", name)
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no SSH private key under ~/.ssh (tried %s); pass one with --sign-key",
		strings.Join(defaultSigningKeys, ", "))
}

func expandUserPath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(path)
}
