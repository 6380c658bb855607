package promo

import (
	"strings"

	"github.com/google/uuid"
)

const codePrefix = "DANA-"

// NewCode generates a human-shareable promo code. UUID entropy keeps
// codes unguessable; the short uppercase form keeps them typeable.
func NewCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return codePrefix + strings.ToUpper(raw[:8])
}

// Normalize sanitizes user input before lookup: codes are stored
// uppercase.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
