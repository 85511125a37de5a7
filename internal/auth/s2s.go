package auth

import (
	"crypto/subtle"
	"github.com/ariefcatur/go-catalog-orders/internal/apperr"
	"strings"
)

// CheckS2S compares the presented key with the configured one in constant
// time. The header may be "Bearer <key>" or the bare key. An empty
// configured key disables the check.
func CheckS2S(header, key string) error {
	if key == "" {
		return nil
	}
	got := BearerToken(header)
	if got == "" {
		got = strings.TrimSpace(header)
	}
	if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
		return apperr.New(apperr.KindUnauthorized, nil)
	}
	return nil
}
