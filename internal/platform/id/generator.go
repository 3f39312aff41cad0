package id

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates opaque IDs for correlating runs across logs and traces.
type Generator interface {
	NewID() (string, error)
}

// RandomGenerator yields prefix + a random (v4) UUID.
type RandomGenerator struct {
	prefix string
}

func NewRandomGenerator(prefix string) *RandomGenerator {
	return &RandomGenerator{prefix: prefix}
}

func (g *RandomGenerator) NewID() (string, error) {
	value, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}

	return g.prefix + value.String(), nil
}
