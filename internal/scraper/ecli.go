package scraper

import (
	"fmt"
	"regexp"
	"strings"
)

// ecliInURL matches the id query parameter of a rechtspraak.nl detail URL,
// e.g. https://uitspraken.rechtspraak.nl/details?id=ECLI:NL:HR:2025:1.
var ecliInURL = regexp.MustCompile(`id=(ECLI:[^&]+)`)

// ExtractECLI pulls the ECLI out of a sitemap URL. The second return value
// is false when the URL carries no recognizable identifier.
func ExtractECLI(rawURL string) (string, bool) {
	m := ecliInURL.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// EscapeECLI rewrites an ECLI into a filesystem/object-safe form by
// replacing every colon with an underscore. The mapping is deterministic
// and reversible for manual lookups.
func EscapeECLI(ecli string) string {
	return strings.ReplaceAll(ecli, ":", "_")
}

// ObjectPath derives the object-store key for an ECLI's raw document:
// ECLI:NL:HR:2025:123 -> rechtspraak/NL/HR/2025/ECLI_NL_HR_2025_123.xml.
// Identifiers that do not split into the usual five segments land under
// rechtspraak/other/.
func ObjectPath(ecli string) string {
	parts := strings.Split(ecli, ":")
	if len(parts) < 5 {
		return fmt.Sprintf("rechtspraak/other/%s.xml", EscapeECLI(ecli))
	}
	country, court, year := parts[1], parts[2], parts[3]
	return fmt.Sprintf("rechtspraak/%s/%s/%s/%s.xml", country, court, year, EscapeECLI(ecli))
}
