// Package fingerprint derives a stable device identifier for session
// registration. The fingerprint is a deterrent against credential
// sharing, not an authentication factor.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"runtime"
	"strings"
)

// machineIDPaths are tried in order; the first readable one
// contributes the host machine id.
var machineIDPaths = []string{
	"/etc/machine-id",
	"/var/lib/dbus/machine-id",
}

// Fingerprint returns a stable hex-encoded identifier for this device.
// It hashes the hostname, platform and machine id, so the value
// survives restarts but differs across machines.
func Fingerprint() string {
	parts := []string{runtime.GOOS, runtime.GOARCH}

	if host, err := os.Hostname(); err == nil {
		parts = append(parts, host)
	}
	if id := machineID(); id != "" {
		parts = append(parts, id)
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func machineID() string {
	for _, path := range machineIDPaths {
		b, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if id := strings.TrimSpace(string(b)); id != "" {
			return id
		}
	}
	return ""
}
