package fingerprint

import (
	"crypto/md5"
	"encoding/hex"

	"dropwatch/models"
)

// Sum returns the fixed-width hex digest of a canonical id. Equal canonical
// ids always produce equal fingerprints; collisions are treated as identity.
func Sum(canonicalID string) string {
	digest := md5.Sum([]byte(canonicalID))
	return hex.EncodeToString(digest[:])
}

// Of derives the fingerprint for a product from its canonical id.
func Of(p models.Product) string {
	return Sum(p.CanonicalID())
}
