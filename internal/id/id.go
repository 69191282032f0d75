package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for generated identifiers. Catalogue rows use database keys;
// only transient or externally visible handles are generated here.
const (
	PrefixBatch = "bat"
	PrefixToken = "tok"
)

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g., "bat-V1StGXR8_Z5jdHi6B-myT").
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// NewBatchID returns a fresh batch run identifier.
func NewBatchID() (string, error) {
	return Generate(PrefixBatch)
}

// MustGenerate is like Generate but panics if ID generation fails.
// Use it only where failure should crash the program, such as during initialization.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}
