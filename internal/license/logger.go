package license

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// MaskLicenseKey hides the middle of a key for logging, keeping the first and
// last four hex digits: B782-FF80-92CF-CA66-168A becomes B782****168A.
func MaskLicenseKey(key string) string {
	clean := strings.ReplaceAll(key, "-", "")
	if len(clean) <= 8 {
		return "****"
	}
	return clean[:4] + "****" + clean[len(clean)-4:]
}

// hashLicenseKey returns a short digest of the normalized key for correlating
// audit records without logging the key itself.
func hashLicenseKey(key string) string {
	clean := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(key), "-", ""))
	if clean == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(clean))
	return hex.EncodeToString(sum[:8])
}
