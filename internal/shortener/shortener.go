package shortener

import (
	"math/big"

	"github.com/google/uuid"
)

// DefaultCodeLength is the length of generated short codes.
const DefaultCodeLength = 7

const (
	minCodeLength = 4
	maxCodeLength = 20
)

// alphabet is base57: digits and letters without 0/O, 1/l/I.
const alphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// encodedUUIDLength is the number of base57 digits needed for 128 bits.
const encodedUUIDLength = 22

// Generator produces candidate short codes. It does not check for
// collisions; the registry's unique index does.
type Generator struct {
	length  int
	newUUID func() (uuid.UUID, error)
}

// NewGenerator returns a generator for codes of the given length. Lengths
// outside 4..20 are clamped so generated codes always pass ValidateCustomCode;
// zero or negative means DefaultCodeLength.
func NewGenerator(length int) *Generator {
	switch {
	case length <= 0:
		length = DefaultCodeLength
	case length < minCodeLength:
		length = minCodeLength
	case length > maxCodeLength:
		length = maxCodeLength
	}
	return &Generator{length: length, newUUID: uuid.NewRandom}
}

// Length returns the length of the codes g generates.
func (g *Generator) Length() int {
	return g.length
}

// Generate returns a new candidate code: a random UUID in base57, most
// significant digit first, cut to the generator's length.
func (g *Generator) Generate() (string, error) {
	id, err := g.newUUID()
	if err != nil {
		return "", err
	}
	return encodeBase57(id)[:g.length], nil
}

func encodeBase57(id uuid.UUID) string {
	n := new(big.Int).SetBytes(id[:])
	base := big.NewInt(int64(len(alphabet)))
	digit := new(big.Int)

	out := make([]byte, encodedUUIDLength)
	for i := encodedUUIDLength - 1; i >= 0; i-- {
		n.DivMod(n, base, digit)
		out[i] = alphabet[digit.Int64()]
	}
	return string(out)
}
