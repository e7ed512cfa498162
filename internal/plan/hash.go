package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainBody is the domain prefix for content-addressed body identity. The
// version suffix enables future algorithm migration.
const DomainBody = "keyplan/body/v1"

// hashWithDomain computes SHA-256 with domain separation:
// SHA256(domain + 0x00 + data). The null separator prevents domain/data
// boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// BodyID computes the content-addressed identity of a body. Two bodies with
// identical steps for the same (type, capability) share an ID regardless of
// when or where they were derived.
func BodyID(b *Body) (string, error) {
	canonical, err := MarshalCanonical(b)
	if err != nil {
		return "", fmt.Errorf("BodyID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainBody, canonical), nil
}

// MustBodyID is like BodyID but panics on error. Use only in tests or when
// inputs are known to be valid.
func MustBodyID(b *Body) string {
	id, err := BodyID(b)
	if err != nil {
		panic(err)
	}
	return id
}
