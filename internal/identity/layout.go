package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"legitify/internal/identity/models"
)

// Layout locates per-organization material in a Fabric crypto-config tree:
//
//	<root>/peerOrganizations/<org>.com/connection-<org>.json
//	<root>/peerOrganizations/<org>.com/users/Admin@<org>.com/msp/{signcerts,keystore}
type Layout struct {
	Root string
}

// OrgDir is the organization's directory under peerOrganizations.
func (l Layout) OrgDir(org models.Org) string {
	return filepath.Join(l.Root, "peerOrganizations", org.Domain())
}

// ConnectionProfile is the path of the organization's connection profile.
func (l Layout) ConnectionProfile(org models.Org) string {
	return filepath.Join(l.OrgDir(org), fmt.Sprintf("connection-%s.json", org.Name))
}

// AdminMSPDir is the admin user's MSP directory.
func (l Layout) AdminMSPDir(org models.Org) string {
	return filepath.Join(l.OrgDir(org), "users", "Admin@"+org.Domain(), "msp")
}

// AdminCredential reads the externally provisioned admin certificate and key.
// The certificate is the first PEM in signcerts; the key is the keystore file
// ending in _sk.
func (l Layout) AdminCredential(org models.Org) (certificate, privateKey string, err error) {
	mspDir := l.AdminMSPDir(org)

	certPath, err := firstFile(filepath.Join(mspDir, "signcerts"), func(name string) bool {
		return strings.HasSuffix(name, ".pem")
	})
	if err != nil {
		return "", "", fmt.Errorf("admin certificate for %s: %w", org.Name, err)
	}
	keyPath, err := firstFile(filepath.Join(mspDir, "keystore"), func(name string) bool {
		return strings.HasSuffix(name, "_sk")
	})
	if err != nil {
		return "", "", fmt.Errorf("admin key for %s: %w", org.Name, err)
	}

	cert, err := os.ReadFile(certPath)
	if err != nil {
		return "", "", fmt.Errorf("read admin certificate: %w", err)
	}
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return "", "", fmt.Errorf("read admin key: %w", err)
	}
	return string(cert), string(key), nil
}

func firstFile(dir string, match func(name string) bool) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && match(e.Name()) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no matching file in %s", dir)
	}
	sort.Strings(names)
	return filepath.Join(dir, names[0]), nil
}
