package shortener

import (
	"context"
	"math/bits"
)

const (
	// Base62 characters: 0-9, a-z, A-Z (case sensitive)
	base62Chars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeLength  = 7

	minCode   uint64 = 56800235584      // 62^6, the smallest 7 character code
	codeSpace uint64 = 3464814370624    // 62^7 - 62^6
	counterKey       = "url_counter"
)

// CounterGenerator turns a monotonic counter into scattered 7 character codes.
// The counter is mapped through an affine permutation of the code space, so
// distinct counters below codeSpace never share a code.
type CounterGenerator struct {
	counters   CounterProvider
	multiplier uint64 // coprime with codeSpace
	offset     uint64
}

// NewCounterGenerator creates a new counter-based generator
func NewCounterGenerator(counters CounterProvider) *CounterGenerator {
	return &CounterGenerator{
		counters:   counters,
		multiplier: 0x5DEECE66D,
		offset:     0x9E3779B97F4A7C15 % codeSpace,
	}
}

// Generate returns the code for the next counter value
func (g *CounterGenerator) Generate(ctx context.Context) (string, error) {
	counter, err := g.counters.Next(ctx, counterKey)
	if err != nil {
		return "", err
	}

	return g.encode(uint64(counter)), nil
}

func (g *CounterGenerator) encode(counter uint64) string {
	return toBase62(g.permute(counter) + minCode)
}

// permute maps [0, codeSpace) onto itself
func (g *CounterGenerator) permute(counter uint64) uint64 {
	hi, lo := bits.Mul64(counter%codeSpace, g.multiplier)
	_, rem := bits.Div64(hi, lo, codeSpace)
	return (rem + g.offset) % codeSpace
}

// Type returns the generator type
func (g *CounterGenerator) Type() string {
	return TypeCounter
}

// Close performs cleanup
func (g *CounterGenerator) Close() error {
	if g.counters != nil {
		return g.counters.Close()
	}
	return nil
}

func toBase62(num uint64) string {
	if num == 0 {
		return "0"
	}

	var buf [11]byte
	i := len(buf)
	for num > 0 {
		i--
		buf[i] = base62Chars[num%62]
		num /= 62
	}

	return string(buf[i:])
}

// Ensure CounterGenerator implements Generator interface
var _ Generator = (*CounterGenerator)(nil)
