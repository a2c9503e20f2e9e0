package forensics

import (
	"bytes"
	"fmt"
)

// Editing-software markers looked for in the embedded metadata stream (EXIF
// Software/Make tags, XMP CreatorTool, PNG tEXt chunks all surface as plain
// text near the start of the file).
var editorMarkers = []string{
	"adobe photoshop",
	"photoshop",
	"gimp",
	"paint.net",
	"photopea",
	"pixlr",
	"coreldraw",
	"affinity photo",
	"canva",
	"pixelmator",
}

// metadataScanLimit bounds the probe; metadata segments sit in the file header.
const metadataScanLimit = 256 * 1024

// MetadataResult is the outcome of the instant metadata probe. It contributes
// to the evidence list only, never to the fused score: editor tags are a hint
// worth surfacing, not proof of tampering.
type MetadataResult struct {
	EditorsDetected []string
	Suspicious      bool
}

// ProbeMetadata inspects the document's embedded metadata for editing
// software markers.
func ProbeMetadata(data []byte) MetadataResult {
	if len(data) > metadataScanLimit {
		data = data[:metadataScanLimit]
	}
	lowered := bytes.ToLower(data)

	var found []string
	for _, marker := range editorMarkers {
		if bytes.Contains(lowered, []byte(marker)) {
			found = append(found, marker)
		}
	}
	// "adobe photoshop" also matches "photoshop"; keep the first, most
	// specific hit per family.
	found = dedupeBySubstring(found)

	return MetadataResult{
		EditorsDetected: found,
		Suspicious:      len(found) > 0,
	}
}

// Evidence renders the probe as evidence lines for the verdict.
func (m MetadataResult) Evidence() []string {
	if !m.Suspicious {
		return nil
	}
	return []string{fmt.Sprintf("Editing software detected in metadata: %v", m.EditorsDetected)}
}

func dedupeBySubstring(markers []string) []string {
	var out []string
	for _, m := range markers {
		redundant := false
		for _, kept := range out {
			if bytes.Contains([]byte(kept), []byte(m)) {
				redundant = true
				break
			}
		}
		if !redundant {
			out = append(out, m)
		}
	}
	return out
}
