package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/louisbranch/pressroom/internal/telemetry"
)

// ManifestScriptID is the well-known identifier of the script element that
// carries the manifest inside the entry document.
const ManifestScriptID = "asset-manifest"

// ManifestEntry maps one logical asset key to its addressed location.
type ManifestEntry struct {
	// Key is the logical asset key, the original output name.
	Key string `json:"key"`
	// Path is the current addressed path for the asset.
	Path string `json:"path"`
	// ContentHash is the fingerprint embedded in Path.
	ContentHash string `json:"contentHash"`
}

// Manifest is the complete mapping for one build. It is regenerated wholly
// on every build and never partially patched.
type Manifest struct {
	Items []ManifestEntry `json:"items"`
}

// Output is one build output by name and byte content.
type Output struct {
	// Name is the output path relative to the artifact root.
	Name string
	// Content is the output bytes.
	Content []byte
}

// BuildManifest computes addressed names for the build outputs and
// assembles the manifest. Outputs that cannot be fingerprinted keep their
// original name, are excluded from the manifest, and do not abort the
// build; a logical key appearing twice or two logical assets colliding on
// one addressed path do, because shipping an internally inconsistent
// manifest would poison immutable caches for a year.
func BuildManifest(ctx context.Context, outputs []Output, emitter *telemetry.Emitter) (Manifest, []Output, error) {
	sorted := make([]Output, len(outputs))
	copy(sorted, outputs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	manifest := Manifest{Items: make([]ManifestEntry, 0, len(sorted))}
	renamed := make([]Output, 0, len(sorted))
	claimed := make(map[string]string, len(sorted))
	seen := make(map[string]bool, len(sorted))

	for _, output := range sorted {
		if seen[output.Name] {
			return Manifest{}, nil, fmt.Errorf(
				"manifest conflict: logical key %s produced by two outputs", output.Name)
		}
		seen[output.Name] = true

		addressed, ok := FingerprintedName(output.Name, output.Content)
		if !ok {
			_ = emitter.Emit(ctx, telemetry.Event{
				Severity:  telemetry.SeverityWarn,
				Component: "manifest",
				Message:   "output " + output.Name + " is not fingerprintable, excluded from manifest",
			})
			renamed = append(renamed, output)
			continue
		}
		if owner, taken := claimed[addressed]; taken {
			return Manifest{}, nil, fmt.Errorf(
				"manifest conflict: %s and %s both map to %s", owner, output.Name, addressed)
		}
		claimed[addressed] = output.Name

		manifest.Items = append(manifest.Items, ManifestEntry{
			Key:         output.Name,
			Path:        "/" + addressed,
			ContentHash: Fingerprint(output.Content),
		})
		renamed = append(renamed, Output{Name: addressed, Content: output.Content})
	}

	return manifest, renamed, nil
}

// Encode serializes the manifest to its single JSON document form.
func (m Manifest) Encode() ([]byte, error) {
	encoded, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return encoded, nil
}

// Lookup returns the addressed path for a logical asset key.
func (m Manifest) Lookup(key string) (string, bool) {
	for _, entry := range m.Items {
		if entry.Key == key {
			return entry.Path, true
		}
	}
	return "", false
}

// EmbedManifest string-embeds the manifest into an entry document as a
// script-tagged payload, so clients learn every asset location on first
// paint without another round trip.
func EmbedManifest(document string, encoded []byte) (string, error) {
	marker := "</head>"
	if !strings.Contains(document, marker) {
		return "", fmt.Errorf("entry document has no head element to embed the manifest")
	}
	script := fmt.Sprintf("<script id=%q type=\"application/json\">%s</script>", ManifestScriptID, escapeScriptPayload(encoded))
	return strings.Replace(document, marker, script+marker, 1), nil
}

// escapeScriptPayload keeps embedded JSON from terminating its script
// element early. The `<\/` form is valid JSON and byte-stable across builds.
func escapeScriptPayload(encoded []byte) string {
	return strings.ReplaceAll(string(encoded), "</", `<\/`)
}
