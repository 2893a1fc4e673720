package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows changing an encoding without collisions.
const (
	DomainNode         = "formulacore/node/v1"
	DomainCatalogEntry = "formulacore/catalog-entry/v1"
	DomainCatalog      = "formulacore/catalog/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the hex SHA-256 of v's canonical encoding under domain.
func Hash(domain string, v Value) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// MustHash is like Hash but panics on error.
// Use only when v is built from known-valid parts.
func MustHash(domain string, v Value) string {
	h, err := Hash(domain, v)
	if err != nil {
		panic(err)
	}
	return h
}

// CatalogHash identifies a whole catalog by the ordered hashes of its
// entries. Order is significant: registration order decides precedence.
func CatalogHash(entryHashes []string) string {
	return MustHash(DomainCatalog, Strings(entryHashes...))
}
