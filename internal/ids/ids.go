// Package ids mints and validates the 24-hex object ids used for products,
// customers and orders.
package ids

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"strings"
)

func New() string { return primitive.NewObjectID().Hex() }

// Parse lower-cases s and reports whether it is a well-formed object id.
func Parse(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, err := primitive.ObjectIDFromHex(s); err != nil {
		return "", false
	}
	return s, true
}
