package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Key derives the cache key for a question against a specific schema version.
// The question is normalized first so trivial phrasing differences (case,
// spacing, trailing punctuation) share one entry. The schema fingerprint is
// part of the hash, so entries written before a schema change can never be
// returned for the new schema.
func Key(question, schemaFingerprint string) string {
	h := sha256.Sum256([]byte(normalizeQuestion(question) + "\x00" + schemaFingerprint))
	return hex.EncodeToString(h[:])
}

// normalizeQuestion lowercases, collapses whitespace runs and strips trailing
// punctuation.
func normalizeQuestion(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	q = strings.Join(strings.Fields(q), " ")
	return strings.TrimRight(q, " ?!.,")
}
