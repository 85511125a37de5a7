package orders

import (
	"math/rand"
	"time"
)

const numberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewOrderNumber returns a sortable number: 14-digit UTC timestamp, a dash,
// and 6 random base-36 characters.
func NewOrderNumber(now time.Time) string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = numberAlphabet[rand.Intn(len(numberAlphabet))]
	}
	return now.UTC().Format("20060102150405") + "-" + string(suffix)
}
