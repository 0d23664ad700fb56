package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Fingerprint computes a deterministic content digest over a record
// collection, used to detect whether the data changed between index builds.
// Equal collections produce equal fingerprints regardless of record order or
// field order: each record is serialized with sorted keys (encoding/json
// sorts map keys), the per-record serializations are sorted, and the
// concatenation is hashed. Not a security primitive.
func Fingerprint(records []Record) string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		b, err := json.Marshal(r)
		if err != nil {
			// Records come from JSON decoding; marshaling them back cannot
			// fail for well-formed data. Fold the failure into the digest so
			// it is still deterministic.
			b = []byte("!" + err.Error())
		}
		lines = append(lines, string(b))
	}
	sort.Strings(lines)

	h := sha256.New()
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
