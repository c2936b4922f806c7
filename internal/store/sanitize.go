package store

import "strings"

// SanitizeName reduces an arbitrary filename to a safe path component:
// only letters, digits, dots, dashes and underscores survive, path
// separators never do, and a leading dot is stripped so a name cannot
// hide or traverse.
func SanitizeName(name string) string {
	// Drop any directory part first.
	if i := strings.LastIndexAny(name, "/\\"); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		out = "image"
	}
	return out
}
