package symtab

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// HashFunc maps a key onto a bucket index in [0, buckets).
type HashFunc func(key string, buckets int) int

const (
	polySeed      = 31
	polyFactorMod = 32767
)

// Polynomial accumulates each byte weighted by a running power of 31.
// The factor is kept below 32767 so the products never overflow.
func Polynomial(key string, buckets int) int {
	sum, factor := 0, polySeed
	for i := 0; i < len(key); i++ {
		sum = (sum + (int(key[i])*factor)%buckets) % buckets
		factor = (factor * polySeed) % polyFactorMod
	}
	return sum
}

// XXHash reduces the 64-bit xxhash of key modulo the bucket count.
func XXHash(key string, buckets int) int {
	return int(xxhash.Sum64String(key) % uint64(buckets))
}

// Hash function names accepted by HashByName.
const (
	HashPolynomial = "polynomial"
	HashXXHash     = "xxhash"
)

// HashByName resolves a configured hash function name.
func HashByName(name string) (HashFunc, error) {
	switch name {
	case "", HashPolynomial:
		return Polynomial, nil
	case HashXXHash:
		return XXHash, nil
	default:
		return nil, fmt.Errorf("unknown hash function %q (want %s or %s)", name, HashPolynomial, HashXXHash)
	}
}
