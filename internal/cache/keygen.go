// Package cache generates deterministic, content-addressed keys for
// cacheable operations.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// KeyGenerator builds SHA-256 keys from an operation name and its
// ordered input parameters. Parameter order is significant: the same
// parameters in a different order produce a different key.
type KeyGenerator struct {
	// Prefix is prepended to all generated keys.
	Prefix string
}

// NewKeyGenerator creates a KeyGenerator with optional prefix.
func NewKeyGenerator(prefix string) *KeyGenerator {
	return &KeyGenerator{Prefix: prefix}
}

// Generate creates a key of the form [prefix:]operation:sha256(params).
func (g *KeyGenerator) Generate(operation string, params ...string) string {
	var sb strings.Builder
	sb.WriteString(operation)
	for _, p := range params {
		sb.WriteString("|")
		sb.WriteString(p)
	}

	hash := sha256.Sum256([]byte(sb.String()))
	hashHex := hex.EncodeToString(hash[:])

	var key strings.Builder
	if g.Prefix != "" {
		key.WriteString(g.Prefix)
		key.WriteString(":")
	}
	key.WriteString(operation)
	key.WriteString(":")
	key.WriteString(hashHex)
	return key.String()
}

// HashContent returns the hex SHA-256 of raw content. Used to identify
// text chunks without embedding the full text in the key.
func HashContent(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
