// Package publish builds the static site artifacts: materialized page
// documents, fingerprinted assets, and the manifest that maps logical asset
// keys to their current addressed locations.
package publish

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"regexp"
	"strings"
)

// fingerprintLength is the number of hash characters embedded in addressed
// filenames. Ten hex characters keep collision odds negligible for any
// realistic asset count.
const fingerprintLength = 10

// fingerprintableExtensions lists the output types that participate in
// content-hash naming. Anything else is served under its original name and
// excluded from the manifest.
var fingerprintableExtensions = map[string]bool{
	".js":   true,
	".mjs":  true,
	".css":  true,
	".json": true,
	".svg":  true,
	".html": true,
}

// fingerprintedPathPattern recognizes filenames that already embed a
// content fingerprint.
var fingerprintedPathPattern = regexp.MustCompile(`\.[0-9a-f]{10}\.[A-Za-z0-9]+$`)

// Fingerprint derives the content-addressed suffix for an asset. It is pure:
// identical bytes always produce an identical fingerprint.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])[:fingerprintLength]
}

// FingerprintedName returns the addressed filename for an output, embedding
// the content fingerprint before the extension. It reports false for output
// types that do not participate in fingerprinting.
func FingerprintedName(name string, content []byte) (string, bool) {
	ext := strings.ToLower(path.Ext(name))
	if !fingerprintableExtensions[ext] {
		return "", false
	}
	base := strings.TrimSuffix(name, path.Ext(name))
	return base + "." + Fingerprint(content) + path.Ext(name), true
}

// IsFingerprintedPath reports whether a served path carries an embedded
// content fingerprint and may therefore be cached as immutable.
func IsFingerprintedPath(name string) bool {
	return fingerprintedPathPattern.MatchString(name)
}
