package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

func HashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:16])
}

// PostingID derives a stable id: "<provider>:<native id>" when the source
// exposes one, otherwise a hash of the canonical URL.
func PostingID(provider, nativeID, rawURL string) string {
	nativeID = strings.TrimSpace(nativeID)
	if nativeID != "" && provider != "" {
		return provider + ":" + nativeID
	}
	return HashString("url:" + CanonicalizeURL(rawURL))
}
