package persona

import (
	"regexp"
	"strings"
)

// floatArtifact matches integer ids that picked up a float suffix on the way
// through a spreadsheet export, e.g. "1234.0".
var floatArtifact = regexp.MustCompile(`^(\d+)\.0+$`)

// NormalizeAccountID canonicalizes an account identifier so numeric and
// string renditions of the same id compare equal. Applied once at ingestion;
// every join downstream relies on it.
func NormalizeAccountID(id string) string {
	id = strings.TrimSpace(id)
	if m := floatArtifact.FindStringSubmatch(id); m != nil {
		return m[1]
	}
	return id
}
