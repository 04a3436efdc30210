package random

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// Source yields uniformly distributed 32-bit integers.
type Source interface {
	Uint32() uint32
}

type cryptoSource struct{}

// New returns a Source backed by crypto/rand.
func New() Source {
	return cryptoSource{}
}

func (cryptoSource) Uint32() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand.Read never returns an error on supported platforms
		panic(fmt.Errorf("failed to read random bytes: %w", err))
	}

	return binary.LittleEndian.Uint32(b[:])
}

// Fixed always returns the same value. It pins Program moves in tests.
type Fixed uint32

func (that Fixed) Uint32() uint32 {
	return uint32(that)
}

// Sequence replays the given values in order and then repeats the last one.
type Sequence struct {
	values []uint32
	pos    int
}

func NewSequence(values ...uint32) *Sequence {
	return &Sequence{values: values}
}

func (that *Sequence) Uint32() uint32 {
	if len(that.values) == 0 {
		return 0
	}

	if that.pos >= len(that.values) {
		return that.values[len(that.values)-1]
	}

	v := that.values[that.pos]
	that.pos++

	return v
}
