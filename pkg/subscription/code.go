package subscription

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
)

const (
	// CodeLength is the number of hex characters in a redemption code
	CodeLength = 12
	// MaxDurationDays caps generated durations (~10 años)
	MaxDurationDays = 3650
	// DefaultDuration is used when the owner omits the duration
	DefaultDuration = "30d"
	// MaxBatchSize caps the codes created by one GenerateBatch call
	MaxBatchSize = 15
)

// NewCode returns a random code of CodeLength uppercase hex characters
func NewCode() (string, error) {
	buf := make([]byte, CodeLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "generando código aleatorio")
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

// NormalizeCode trims and upper-cases a code typed by a user
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ParseDuration parses "<n>d" into a number of days. Case and whitespace
// are ignored; n must be a positive integer no larger than MaxDurationDays.
func ParseDuration(raw string) (int, error) {
	compact := strings.ToLower(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw))

	if !strings.HasSuffix(compact, "d") {
		return 0, errors.Wrapf(ErrInvalidDuration, "%q debe terminar en 'd'", raw)
	}

	days, err := strconv.Atoi(strings.TrimSuffix(compact, "d"))
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidDuration, "%q no es un número entero de días", raw)
	}
	if days <= 0 {
		return 0, errors.Wrapf(ErrInvalidDuration, "%q debe ser mayor que cero", raw)
	}
	if days > MaxDurationDays {
		return 0, errors.Wrapf(ErrInvalidDuration, "%q supera el máximo de %d días", raw, MaxDurationDays)
	}
	return days, nil
}
