package marker

import "strings"

// ValidProjectName reports whether name is a safe build-pipeline project
// directory name: ASCII alphanumeric plus '-', '_', '.'; must not start
// with '.'; must not contain ".."; max 64 characters. This rejects
// spaces, shell metacharacters, and path separators so the name can be
// used directly as a filesystem path component.
func ValidProjectName(name string) bool {
	if name == "" || len(name) > 64 {
		return false
	}
	if strings.HasPrefix(name, ".") {
		return false
	}
	if strings.Contains(name, "..") {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}
