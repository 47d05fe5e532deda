// Package otp generates pickup tokens and one-time collection codes.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"math/big"
)

// Length is the number of digits in a collection code.
const Length = 6

var codeSpace = big.NewInt(1_000_000)

// Generate returns a uniformly random 6-digit numeric code.
func Generate() (string, error) {
	return generate(rand.Reader)
}

func generate(r io.Reader) (string, error) {
	n, err := rand.Int(r, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", Length, n.Int64()), nil
}

// WellFormed reports whether code is exactly six ASCII digits.
func WellFormed(code string) bool {
	if len(code) != Length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// Equal compares a supplied code against the stored one in constant time.
func Equal(stored, supplied string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}

// NewToken formats the pickup token shown to the customer from the day's
// order sequence number.
func NewToken(seq int32) string {
	return fmt.Sprintf("%03d", seq)
}
