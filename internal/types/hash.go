package types

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NormalizeDefinition canonicalizes a definition's text: CRLF is reduced to
// LF, each line is right-trimmed, blank-only lines are dropped, and the
// remaining lines are rejoined with LF. Idempotent: NormalizeDefinition(
// NormalizeDefinition(s)) == NormalizeDefinition(s).
func NormalizeDefinition(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == "" {
			continue
		}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, "\n")
}

// HashDefinition returns the hex SHA-256 digest of the UTF-8 bytes of an
// already-normalized definition. Two definitions are canonically equal iff
// their hashes match.
func HashDefinition(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// NormalizeKey is the single case-folding point for every fullName lookup,
// dictionary merge and change-detection comparison across the extractor,
// detector and comparator. ASCII-case-insensitive; schema.name pairs
// never contain non-ASCII case-foldable runes in practice.
func NormalizeKey(fullName string) string {
	return strings.ToLower(fullName)
}
