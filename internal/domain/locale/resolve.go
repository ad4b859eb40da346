// Package locale provides pure helpers for resolving localized text fields
// with fallback and for measuring translation completeness. It holds no
// state and performs no I/O.
package locale

// Default is the locale every task name must carry and the fallback used
// when a requested locale has no entry.
const Default = "en"

// Fields maps a locale code to text in that locale. A missing key and an
// empty string are treated identically: no content for that locale.
type Fields map[string]string

// Resolve returns the text for requested if present and non-empty, falling
// back to the fallback locale, and finally to the empty string when neither
// carries content.
func Resolve(fields Fields, requested, fallback string) string {
	if v, ok := fields[requested]; ok && v != "" {
		return v
	}
	if v, ok := fields[fallback]; ok && v != "" {
		return v
	}
	return ""
}

// ResolveDefault resolves requested against the default fallback locale.
func ResolveDefault(fields Fields, requested string) string {
	return Resolve(fields, requested, Default)
}

// Completeness reports, for each supported locale, whether fields carries
// non-empty content, plus the fraction of supported locales covered as a
// percentage in [0, 100]. An empty supported set yields 0.
func Completeness(fields Fields, supported []string) (map[string]bool, float64) {
	present := make(map[string]bool, len(supported))
	covered := 0
	for _, code := range supported {
		ok := fields[code] != ""
		present[code] = ok
		if ok {
			covered++
		}
	}
	if len(supported) == 0 {
		return present, 0
	}
	return present, float64(covered) / float64(len(supported)) * 100
}

// ValidateKeys rejects locale codes outside the supported set. Locale maps
// arrive from clients with arbitrary string keys; the service boundary calls
// this before any entity validation so unknown codes fail fast.
func ValidateKeys(fields Fields, supported []string) (string, bool) {
	for code := range fields {
		if !contains(supported, code) {
			return code, false
		}
	}
	return "", true
}

func contains(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
