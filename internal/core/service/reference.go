package service

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

const (
	ReferencePrefix = "LA"

	referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	referenceNonceLen = 8
	referenceNumMax   = 1_000_000
)

// NewReference returns a transaction reference of the form
// LA-<unix ms>-<8 alphanumerics>-<number>.
func NewReference() string {
	return newReference(time.Now())
}

func newReference(now time.Time) string {
	var b strings.Builder
	b.Grow(referenceNonceLen)
	for range referenceNonceLen {
		b.WriteByte(referenceAlphabet[rand.IntN(len(referenceAlphabet))])
	}
	return fmt.Sprintf("%s-%d-%s-%d", ReferencePrefix, now.UnixMilli(), b.String(), rand.IntN(referenceNumMax))
}
