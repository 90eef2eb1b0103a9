package service

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	orderNumberPrefix  = "ORD"
	returnNumberPrefix = "RET"
	numberSuffixLen    = 6
	numberAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NumberGenerator produces human-readable entity numbers.
type NumberGenerator func(prefix string, now time.Time) string

// NewNumber returns prefix, the base36 millisecond timestamp and a random uppercase suffix.
// Uniqueness is enforced by the database; callers retry on a collision.
func NewNumber(prefix string, now time.Time) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36)))

	max := big.NewInt(int64(len(numberAlphabet)))
	for i := 0; i < numberSuffixLen; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand does not fail on supported platforms; fall back to the clock.
			n = big.NewInt(now.UnixNano() % int64(len(numberAlphabet)))
		}
		b.WriteByte(numberAlphabet[n.Int64()])
	}
	return b.String()
}
