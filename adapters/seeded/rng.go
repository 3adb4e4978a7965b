// Package seeded provides the deterministic RNG adapter. Streams are keyed
// by operation name so two operations sharing a base seed do not consume
// from the same sequence.
package seeded

import (
	"context"
	"math/rand"

	"binstudy/ports"
)

// RNG implements ports.RNGPort.
type RNG struct{}

// New creates the adapter.
func New() *RNG {
	return &RNG{}
}

// SeededStream creates a deterministic random number generator for a named operation
func (r *RNG) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	if name != "" {
		seed += int64(hashString(name))
	}
	return rand.New(rand.NewSource(seed)), nil
}

// hashString creates a simple hash for deterministic seeding
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c) // djb2 algorithm
	}
	return hash
}

var _ ports.RNGPort = (*RNG)(nil)
