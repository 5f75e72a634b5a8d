// Package id generates prefixed, URL-safe identifiers.
package id

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes used across the server.
const (
	PrefixItem = "item"
	PrefixSSE  = "sse"
)

// nanoidLength is the default NanoID length.
const nanoidLength = 21

// Generate creates a prefixed unique ID using NanoID
// Format: prefix-nanoid (e.g., "item-V1StGXR8_Z5jdHi6B-myT")
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// HasPrefix reports whether id looks like an identifier generated with prefix.
// It checks shape only; it says nothing about whether the id exists.
func HasPrefix(id, prefix string) bool {
	return strings.HasPrefix(id, prefix+"-") && len(id) == len(prefix)+1+nanoidLength
}
