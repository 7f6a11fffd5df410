package attendance

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// foldName normalizes a name for searching (lowercase, no diacritics,
// dashes and underscores as spaces, collapsed whitespace).
func foldName(name string) string {
	name = strings.ToLower(RemoveDiacritics(name))
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return strings.Join(strings.Fields(name), " ")
}

// matchesStudent reports whether query occurs in the student's id, name or class.
func matchesStudent(s database.StudentSummary, query string) bool {
	for _, field := range []string{s.StudentID, s.Name, s.ClassName} {
		if strings.Contains(foldName(field), query) {
			return true
		}
	}
	return false
}
