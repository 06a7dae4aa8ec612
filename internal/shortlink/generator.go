package shortlink

import "github.com/jaevor/go-nanoid"

// codeAlphabet is restricted to characters safe in a URL path segment.
const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Generator produces random short codes of a fixed length.
type Generator func() string

// NewGenerator returns a cryptographically-random code generator producing
// codes of exactly length characters from the alphanumeric alphabet. It has
// no awareness of already-allocated codes; collision handling belongs to the
// caller.
func NewGenerator(length int) (Generator, error) {
	gen, err := nanoid.CustomASCII(codeAlphabet, length)
	if err != nil {
		return nil, err
	}

	return Generator(gen), nil
}
