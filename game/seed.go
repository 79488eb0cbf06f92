/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
)

// NewSeed reads a high-entropy seed from crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// MustSeed is NewSeed for callers with no way to recover from a broken
// system random source.
func MustSeed() int64 {
	seed, err := NewSeed()
	if err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	return seed
}

// NewRand returns a deterministic generator for seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}
