// Package textfs provides path-traversal-guarded access to the
// gateway's on-disk state under {data_dir}: skills, workspace scratch
// space, discovery/setup session files, build output trees, and the
// HEARTBEAT.md/BUG.md/config.yaml singletons (spec.md §6.5). Unlike the
// teacher's DB-backed virtual filesystem, this operates on real files —
// OMEGA's artifacts (HEARTBEAT.md, session markdown) double as
// user-facing logs the operator can read directly.
package textfs

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrEscapesRoot is returned when a relative path would resolve outside
// its intended root directory after cleaning.
var ErrEscapesRoot = errors.New("textfs: path escapes root")

// Join resolves rel against root, rejecting any path that would escape
// root after cleaning (no "..", no absolute path component, no
// "../" after join). This is the one guard every on-disk component in
// §6.5 routes through before a filesystem call.
func Join(root, rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return "", errors.New("textfs: empty path")
	}
	rel = filepath.ToSlash(rel)
	rel = strings.TrimPrefix(rel, "/")
	cleaned := filepath.Clean(filepath.Join(root, rel))
	rootClean := filepath.Clean(root)
	if cleaned != rootClean && !strings.HasPrefix(cleaned, rootClean+string(filepath.Separator)) {
		return "", ErrEscapesRoot
	}
	return cleaned, nil
}

// SanitizeSenderID turns a sender id into a safe filename component for
// per-sender session files (discovery/setup), replacing anything that
// isn't alphanumeric, '-', or '_' with '_'.
func SanitizeSenderID(senderID string) string {
	var b strings.Builder
	for _, r := range senderID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
