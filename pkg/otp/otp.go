package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Length is the number of digits in a redemption code.
const Length = 4

// space is the number of distinct codes, 0000 through 9999.
var space = big.NewInt(10000)

// Generator produces redemption codes.
type Generator interface {
	Generate() (string, error)
}

// RandomGenerator draws codes uniformly from 0000-9999.
type RandomGenerator struct{}

func NewRandomGenerator() Generator {
	return RandomGenerator{}
}

func (RandomGenerator) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, space)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", Length, n.Int64()), nil
}

// Valid reports whether code is exactly four ASCII digits.
func Valid(code string) bool {
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
